package assign

import (
	"fmt"
	"math"
)

// scaleCapacities 车场容量 = 覆写值（若有），否则round(基础容量×系数)，下限0
func scaleCapacities(ds *Dataset, cfg Config) map[string]int {
	caps := make(map[string]int, len(ds.Depots))
	for _, p := range ds.Depots {
		c, ok := cfg.CapacityOverride[p.ID]
		if !ok {
			c = int(math.Round(float64(p.Capacity) * cfg.CapacityScale))
		}
		if c < 0 {
			c = 0
		}
		caps[p.ID] = c
	}
	return caps
}

// injectOverflow 向数据集追加虚拟溢出车场：容量视作无限，
// 单位距离成本 = 惩罚系数 × 该线路在实车场中的最大有限距离（保留两位），
// 时间成本按平均速度换算成分钟。就地修改ds（调用方传入的是拷贝）。
// 某线路在所有实车场都没有有限成本时，无定价基准，返回ErrNoOverflowBaseline。
func injectOverflow(ds *Dataset, caps map[string]int, cfg Config) error {
	if _, ok := ds.Distance[OVERFLOW_ID]; ok {
		return nil
	}
	distRow := make(map[string]float64, len(ds.Routes))
	timeRow := make(map[string]float64, len(ds.Routes))
	for _, r := range ds.Routes {
		maxCost := math.Inf(-1)
		for _, p := range ds.Depots {
			if v, ok := ds.Distance[p.ID][r.ID]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				if v > maxCost {
					maxCost = v
				}
			}
		}
		if math.IsInf(maxCost, -1) {
			return fmt.Errorf("%w: %s", ErrNoOverflowBaseline, r.ID)
		}
		penalty := cfg.OverflowPenalty * maxCost
		distRow[r.ID] = round2(penalty)
		if cfg.AvgSpeedKmh > 0 {
			timeRow[r.ID] = round2(penalty / cfg.AvgSpeedKmh * 60)
		} else {
			timeRow[r.ID] = round2(penalty)
		}
	}
	ds.Distance[OVERFLOW_ID] = distRow
	ds.Time[OVERFLOW_ID] = timeRow
	ds.Depots = append(ds.Depots, Depot{ID: OVERFLOW_ID, Capacity: OVERFLOW_CAPACITY})
	caps[OVERFLOW_ID] = OVERFLOW_CAPACITY
	log.Infof("overflow depot injected with penalty factor %v", cfg.OverflowPenalty)
	return nil
}

// checkCapacity 未启用溢出车场时校验总量可行性，
// 并返回容量缺口 = max(0, 总需求-实车场总容量)。
func checkCapacity(ds *Dataset, caps map[string]int, cfg Config) (float64, error) {
	total := 0
	for _, p := range ds.Depots {
		if p.ID == OVERFLOW_ID {
			continue
		}
		total += caps[p.ID]
	}
	demand := ds.TotalDemand()
	deficit := math.Max(0, float64(demand-total))
	if cfg.OverflowPenalty <= 0 && deficit > 0 {
		return deficit, fmt.Errorf("%w: demand=%d capacity=%d deficit=%.0f",
			ErrCapacityDeficit, demand, total, deficit)
	}
	return deficit, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
