package assign

import (
	"runtime"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// SweepRecord 容量缩放扫描中单个系数的记录。
// Objective为nil表示该系数下构模或求解失败，Note给出原因。
type SweepRecord struct {
	Scale     float64
	Objective *float64
	// 容量约束饱和的车场
	Saturated []string
	// 实际分配量偏离需求超过容差的线路（正常情况下不应出现，仅作诊断信号）
	ShortRoutes []string
	Note        string
}

// ShadowRecord 单个车场的+1容量扰动记录。
// Delta = 基准目标值 - 扰动后目标值；最小化问题下应非负。
type ShadowRecord struct {
	Depot        string
	BaseScale    float64
	BaseCapacity int
	BaseObj      float64
	PerturbedObj *float64
	Delta        *float64
	Note         string
}

// Sweep 阶段A：对每个容量缩放系数独立地构模求解（整数聚合模型），
// 单个系数的失败只记录备注，不中断其余扫描。
// 返回记录表以及可行系数中最大者对应的问题与结果（供阶段B做基准，
// 没有可行系数时为nil）。
func Sweep(ds *Dataset, cfg Config, scales []float64) ([]SweepRecord, *Problem, *Result) {
	var basePrb *Problem
	var baseRes *Result
	baseScale := 0.0

	records := make([]SweepRecord, 0, len(scales))
	for _, scale := range scales {
		rec := SweepRecord{Scale: scale}
		c := cfg
		c.CapacityScale = scale
		c.Relax = false
		c.PerUnit = false
		prb, err := Build(ds, c)
		if err != nil {
			rec.Note = err.Error()
			records = append(records, rec)
			continue
		}
		res, err := prb.Solve()
		if err != nil {
			rec.Note = err.Error()
			records = append(records, rec)
			continue
		}
		obj := res.Objective
		rec.Objective = &obj
		rec.Saturated = res.Saturated
		for _, r := range prb.ds.Routes {
			diff := res.AssignedTo(r.ID) - float64(r.Demand)
			if diff > EPS_DEMAND || diff < -EPS_DEMAND {
				rec.ShortRoutes = append(rec.ShortRoutes, r.ID)
			}
		}
		records = append(records, rec)
		// 基准取可行系数中的最大者（容量余量最大）
		if basePrb == nil || scale > baseScale {
			basePrb, baseRes, baseScale = prb, res, scale
		}
	}
	return records, basePrb, baseRes
}

// ShadowPrices 阶段B：对基准解里的每个实车场独立求解一次
// 容量+1的扰动模型（溢出车场与KMax均关闭），
// 用目标值差分近似该车场容量的边际价值。
// 各扰动互不依赖，放在有界worker池上并行执行。
func ShadowPrices(ds *Dataset, cfg Config, basePrb *Problem, baseRes *Result) []ShadowRecord {
	baseCaps := basePrb.Capacities()
	depots := make([]string, 0, len(baseCaps))
	for id := range baseCaps {
		if id == OVERFLOW_ID {
			continue
		}
		depots = append(depots, id)
	}
	sort.Strings(depots)

	results := xsync.NewMapOf[string, ShadowRecord]()
	jobs := make(chan string)
	var wg sync.WaitGroup
	workers := runtime.NumCPU()
	if workers > len(depots) {
		workers = len(depots)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for depot := range jobs {
				results.Store(depot, shadowPrice(ds, cfg, basePrb, baseRes, depot, baseCaps[depot]))
			}
		}()
	}
	for _, depot := range depots {
		jobs <- depot
	}
	close(jobs)
	wg.Wait()

	records := make([]ShadowRecord, 0, len(depots))
	for _, depot := range depots {
		if rec, ok := results.Load(depot); ok {
			records = append(records, rec)
		}
	}
	return records
}

func shadowPrice(ds *Dataset, cfg Config, basePrb *Problem, baseRes *Result, depot string, baseCap int) ShadowRecord {
	rec := ShadowRecord{
		Depot:        depot,
		BaseScale:    basePrb.cfg.CapacityScale,
		BaseCapacity: baseCap,
		BaseObj:      baseRes.Objective,
	}
	c := cfg
	c.CapacityScale = basePrb.cfg.CapacityScale
	c.Relax = false
	c.PerUnit = false
	c.OverflowPenalty = 0
	c.KMax = 0
	// 除目标车场+1外，其余实车场全部钉在基准容量上，
	// 保证扰动模型与基准恰好只差一个单位
	override := make(map[string]int)
	for id, cap := range basePrb.Capacities() {
		if id == OVERFLOW_ID {
			continue
		}
		override[id] = cap
	}
	override[depot] = baseCap + 1
	c.CapacityOverride = override
	prb, err := Build(ds, c)
	if err != nil {
		rec.Note = err.Error()
		return rec
	}
	res, err := prb.Solve()
	if err != nil {
		rec.Note = err.Error()
		return rec
	}
	obj := res.Objective
	delta := rec.BaseObj - obj
	rec.PerturbedObj = &obj
	rec.Delta = &delta
	return rec
}
