package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"git.fiblab.net/sim/depotassign/assign"
)

// 缺少容量记录的车场使用的默认容量
const DEFAULT_DEPOT_CAPACITY = 15

// mongo中三张输入表的文档格式
type demandDoc struct {
	Route  string `bson:"route"`
	Demand int32  `bson:"demand"`
}
type costDoc struct {
	Depot string  `bson:"depot"`
	Route string  `bson:"route"`
	Cost  float64 `bson:"cost"`
}
type capacityDoc struct {
	Depot    string `bson:"depot"`
	Capacity int32  `bson:"capacity"`
}

// 文件形式的容量表（与历史数据管线产出的格式一致）
type capacityFile struct {
	Capacities map[string]int `json:"capacities"`
	CapTotal   int            `json:"cap_total"`
}

// LoadDataset 读取需求、距离、时间、容量四张表并组装数据集。
// 每张表都可以是JSON文件或mongo集合；车场集合取自距离矩阵的键，
// 缺少容量记录的车场使用默认容量。
func LoadDataset(mongoURI string, demandPath, distancePath, timePath, capacityPath *Path) (*assign.Dataset, error) {
	// mongo客户端按需惰性创建，纯文件输入不建立连接
	var client *mongo.Client
	lazyClient := func() (*mongo.Client, error) {
		if client != nil {
			return client, nil
		}
		if mongoURI == "" {
			return nil, fmt.Errorf("mongo input requested but -mongo_uri is empty")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		client = c
		return client, nil
	}

	demand, err := loadDemand(demandPath, lazyClient)
	if err != nil {
		return nil, fmt.Errorf("load demand %s: %w", demandPath, err)
	}
	distance, err := loadMatrix(distancePath, lazyClient)
	if err != nil {
		return nil, fmt.Errorf("load distance matrix %s: %w", distancePath, err)
	}
	timeMatrix, err := loadMatrix(timePath, lazyClient)
	if err != nil {
		return nil, fmt.Errorf("load time matrix %s: %w", timePath, err)
	}
	caps, err := loadCapacities(capacityPath, lazyClient)
	if err != nil {
		return nil, fmt.Errorf("load capacities %s: %w", capacityPath, err)
	}

	ds := &assign.Dataset{Distance: distance, Time: timeMatrix}
	for id, d := range demand {
		if d <= 0 {
			return nil, fmt.Errorf("route %s has non-positive demand %d", id, d)
		}
		ds.Routes = append(ds.Routes, assign.Route{ID: id, Demand: d})
	}
	sort.Slice(ds.Routes, func(i, j int) bool { return ds.Routes[i].ID < ds.Routes[j].ID })

	for id := range distance {
		cap, ok := caps[id]
		if !ok {
			log.Warnf("depot %s has no capacity record, using default %d", id, DEFAULT_DEPOT_CAPACITY)
			cap = DEFAULT_DEPOT_CAPACITY
		}
		if cap < 0 {
			return nil, fmt.Errorf("depot %s has negative capacity %d", id, cap)
		}
		ds.Depots = append(ds.Depots, assign.Depot{ID: id, Capacity: cap})
	}
	sort.Slice(ds.Depots, func(i, j int) bool { return ds.Depots[i].ID < ds.Depots[j].ID })

	log.Infof("dataset loaded: %d routes, %d depots, total demand %d",
		len(ds.Routes), len(ds.Depots), ds.TotalDemand())
	return ds, nil
}

func loadDemand(p *Path, lazyClient func() (*mongo.Client, error)) (map[string]int, error) {
	if p.IsFile() {
		out := make(map[string]int)
		if err := readJSON(p.File, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	docs, err := findAll[demandDoc](p, lazyClient)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(docs))
	for _, d := range docs {
		out[d.Route] = int(d.Demand)
	}
	return out, nil
}

func loadMatrix(p *Path, lazyClient func() (*mongo.Client, error)) (assign.CostMatrix, error) {
	if p.IsFile() {
		out := make(assign.CostMatrix)
		if err := readJSON(p.File, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	docs, err := findAll[costDoc](p, lazyClient)
	if err != nil {
		return nil, err
	}
	out := make(assign.CostMatrix)
	for _, d := range docs {
		if out[d.Depot] == nil {
			out[d.Depot] = make(map[string]float64)
		}
		out[d.Depot][d.Route] = d.Cost
	}
	return out, nil
}

func loadCapacities(p *Path, lazyClient func() (*mongo.Client, error)) (map[string]int, error) {
	if p.IsFile() {
		var f capacityFile
		if err := readJSON(p.File, &f); err != nil {
			return nil, err
		}
		return f.Capacities, nil
	}
	docs, err := findAll[capacityDoc](p, lazyClient)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(docs))
	for _, d := range docs {
		out[d.Depot] = int(d.Capacity)
	}
	return out, nil
}

func findAll[T any](p *Path, lazyClient func() (*mongo.Client, error)) ([]T, error) {
	client, err := lazyClient()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cur, err := client.Database(p.DB).Collection(p.Coll).Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
