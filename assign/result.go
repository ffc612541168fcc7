package assign

import (
	"sort"

	"github.com/samber/lo"

	"git.fiblab.net/sim/depotassign/assign/milp"
)

// Result 一次求解的导出结果
type Result struct {
	Assignments []Assignment
	Summary     []DepotSummary

	Objective       float64
	TotalCost       float64
	OverflowCount   float64
	OverflowCost    float64
	CapacityDeficit float64

	// 容量约束处于饱和状态（松弛量绝对值<EPS_SLACK）的车场
	Saturated []string

	// 松弛模式下尽力提取的诊断信息；不可用时为nil（区别于取值为零）
	CapacityDuals map[string]float64
	ReducedCosts  map[PairKey]float64

	assignedByRoute map[string]float64
}

// export 从解向量提取结果：
// 只保留取值大于阈值的对，并对每个导出对复核兼容矩阵，
// 复核失败的对丢弃（记录告警而非中断）。
func (p *Problem) export(sol *milp.Solution) *Result {
	costs := p.ds.costs(p.cfg.Objective)
	res := &Result{
		Objective:       sol.Objective,
		CapacityDeficit: p.deficit,
		assignedByRoute: make(map[string]float64, len(p.ds.Routes)),
	}

	keys := lo.Keys(p.pairCols)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Route != keys[j].Route {
			return keys[i].Route < keys[j].Route
		}
		return keys[i].Depot < keys[j].Depot
	})
	for _, k := range keys {
		v := 0.0
		for _, c := range p.pairCols[k] {
			v += sol.Values[c]
		}
		if v <= EPS_VALUE {
			continue
		}
		if !p.compat.Compatible(k.Route, k.Depot) {
			log.Warnf("dropping assignment on incompatible pair (%s,%s)", k.Route, k.Depot)
			continue
		}
		unitCost := costs[k.Depot][k.Route]
		res.Assignments = append(res.Assignments, Assignment{
			Route: k.Route, Depot: k.Depot, Count: v, UnitCost: unitCost,
		})
		res.TotalCost += v * unitCost
		res.assignedByRoute[k.Route] += v
		if k.Depot == OVERFLOW_ID {
			res.OverflowCount += v
			res.OverflowCost += v * unitCost
		}
	}

	byDepot := lo.GroupBy(res.Assignments, func(a Assignment) string { return a.Depot })
	for depot, as := range byDepot {
		res.Summary = append(res.Summary, DepotSummary{
			Depot:    depot,
			Assigned: lo.SumBy(as, func(a Assignment) float64 { return a.Count }),
		})
	}
	sort.Slice(res.Summary, func(i, j int) bool { return res.Summary[i].Depot < res.Summary[j].Depot })

	for _, d := range p.ds.Depots {
		slack := p.model.RowSlack(sol.Values, p.capRow[d.ID])
		if slack < EPS_SLACK && slack > -EPS_SLACK {
			res.Saturated = append(res.Saturated, d.ID)
		}
	}

	if p.cfg.Relax && sol.HasDuals {
		res.CapacityDuals = make(map[string]float64, len(p.capRow))
		for depot, row := range p.capRow {
			res.CapacityDuals[depot] = sol.RowDuals[row]
		}
		res.ReducedCosts = make(map[PairKey]float64, len(p.pairCols))
		for k, cols := range p.pairCols {
			res.ReducedCosts[k] = sol.ColDuals[cols[0]]
		}
	} else if p.cfg.Relax {
		log.Debug("duals unavailable from backend, diagnostics omitted")
	}
	return res
}

// AssignedTo 某线路在解中被分配的总车数
func (r *Result) AssignedTo(route string) float64 {
	return r.assignedByRoute[route]
}
