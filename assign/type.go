package assign

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Objective 优化目标：距离或时间
type Objective string

const (
	ObjectiveDistance Objective = "distance"
	ObjectiveTime     Objective = "time"
)

// Route 线路及其高峰配车需求（外部协作方产出，核心只读）
type Route struct {
	ID     string
	Demand int
}

// Depot 车场及其基础容量
type Depot struct {
	ID       string
	Capacity int
}

// CostMatrix 车场->线路->成本；缺项或非有限值表示无物理连接
type CostMatrix map[string]map[string]float64

func (m CostMatrix) clone() CostMatrix {
	out := make(CostMatrix, len(m))
	for p, row := range m {
		out[p] = make(map[string]float64, len(row))
		for r, v := range row {
			out[p][r] = v
		}
	}
	return out
}

// Dataset 一次求解的完整输入
type Dataset struct {
	Routes   []Route
	Depots   []Depot
	Distance CostMatrix
	Time     CostMatrix
}

// Clone 深拷贝。每次建模都在拷贝上做（溢出车场会改动车场集和成本矩阵），
// 敏感性分析的多次求解因此互不影响。
func (ds *Dataset) Clone() *Dataset {
	return &Dataset{
		Routes:   append([]Route(nil), ds.Routes...),
		Depots:   append([]Depot(nil), ds.Depots...),
		Distance: ds.Distance.clone(),
		Time:     ds.Time.clone(),
	}
}

// FilterTop 返回仅保留需求最大的前n条线路的内存副本，
// 用于把精确逐车模型限制在小规模子集上。
func (ds *Dataset) FilterTop(n int) *Dataset {
	if n <= 0 || n >= len(ds.Routes) {
		return ds.Clone()
	}
	out := ds.Clone()
	sort.SliceStable(out.Routes, func(i, j int) bool {
		if out.Routes[i].Demand != out.Routes[j].Demand {
			return out.Routes[i].Demand > out.Routes[j].Demand
		}
		return out.Routes[i].ID < out.Routes[j].ID
	})
	out.Routes = out.Routes[:n]
	sort.Slice(out.Routes, func(i, j int) bool { return out.Routes[i].ID < out.Routes[j].ID })
	return out
}

// TotalDemand 所有线路需求之和
func (ds *Dataset) TotalDemand() int {
	return lo.SumBy(ds.Routes, func(r Route) int { return r.Demand })
}

func (ds *Dataset) costs(obj Objective) CostMatrix {
	if obj == ObjectiveTime {
		return ds.Time
	}
	return ds.Distance
}

// Config 一次求解的不可变配置，构造时整体传入各组件
type Config struct {
	Objective Objective
	// 松弛模式：x为连续变量，可提取对偶/既约成本
	Relax bool
	// 精确逐车模型（替代聚合模型）
	PerUnit bool

	CapacityScale    float64
	CapacityOverride map[string]int
	// 溢出惩罚系数，0表示不启用虚拟溢出车场
	OverflowPenalty float64
	// 每条线路最多使用的车场数，0表示不限制
	KMax int
	// 距离兼容阈值（km），0表示不启用；仅在目标为距离时生效
	MaxDistance float64

	Backend   string
	TimeLimit time.Duration
	MIPGap    float64
	// 溢出车场时间成本换算用的平均速度（km/h）
	AvgSpeedKmh float64
}

// Validate 基本合法性检查（构模前执行）
func (c Config) Validate() error {
	switch c.Objective {
	case ObjectiveDistance, ObjectiveTime:
	default:
		return fmt.Errorf("invalid objective: %q", c.Objective)
	}
	if c.CapacityScale <= 0 {
		return fmt.Errorf("capacity scale must be positive, got %v", c.CapacityScale)
	}
	if c.PerUnit && c.Relax {
		return fmt.Errorf("per-unit model is always integral, relax is not applicable")
	}
	return nil
}

// PairKey (线路,车场)对
type PairKey struct {
	Route string
	Depot string
}

// Compatibility 线路×车场兼容矩阵
type Compatibility struct {
	pairs  map[PairKey]bool
	Viable int
}

func (a *Compatibility) Compatible(route, depot string) bool {
	return a.pairs[PairKey{Route: route, Depot: depot}]
}

// Assignment 解中的一个非零分配
type Assignment struct {
	Route    string
	Depot    string
	Count    float64
	UnitCost float64
}

// DepotSummary 按车场汇总的分配量
type DepotSummary struct {
	Depot    string
	Assigned float64
}
