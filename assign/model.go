package assign

import (
	"fmt"
	"math"

	"git.fiblab.net/sim/depotassign/assign/milp"
)

// buildAggregate 聚合模型：
//
//	min Σ c[r,p]·x[r,p]
//	s.t. Σ_p x[r,p] = demand[r]            ∀r（只对兼容车场求和）
//	     Σ_r x[r,p] <= cap[p]              ∀p
//	     Σ_p z[r,p] <= K, x <= demand[r]·z ∀r,p（仅当KMax>0）
//
// 变量只在兼容对上创建（稀疏建模），不兼容对天然为零；
// 松弛模式下x为连续变量，否则为整数。
// z的耦合系数取线路自身需求，是最紧的合法上界。
func (p *Problem) buildAggregate() {
	costs := p.ds.costs(p.cfg.Objective)
	m := milp.NewModel()
	p.pairCols = make(map[PairKey][]int)
	p.capRow = make(map[string]int)

	for _, r := range p.ds.Routes {
		for _, d := range p.ds.Depots {
			if !p.compat.Compatible(r.ID, d.ID) {
				continue
			}
			c := m.AddCol(fmt.Sprintf("x_%s_%s", r.ID, d.ID),
				costs[d.ID][r.ID], 0, float64(r.Demand), !p.cfg.Relax)
			p.pairCols[PairKey{Route: r.ID, Depot: d.ID}] = []int{c}
		}
	}

	for _, r := range p.ds.Routes {
		row := m.AddRow(fmt.Sprintf("demand_%s", r.ID), float64(r.Demand), float64(r.Demand))
		for _, d := range p.ds.Depots {
			if cols, ok := p.pairCols[PairKey{Route: r.ID, Depot: d.ID}]; ok {
				m.SetCoef(row, cols[0], 1)
			}
		}
	}

	for _, d := range p.ds.Depots {
		row := m.AddRow(fmt.Sprintf("cap_%s", d.ID), math.Inf(-1), float64(p.caps[d.ID]))
		p.capRow[d.ID] = row
		for _, r := range p.ds.Routes {
			if cols, ok := p.pairCols[PairKey{Route: r.ID, Depot: d.ID}]; ok {
				m.SetCoef(row, cols[0], 1)
			}
		}
	}

	if p.cfg.KMax > 0 {
		for _, r := range p.ds.Routes {
			kRow := m.AddRow(fmt.Sprintf("kmax_%s", r.ID), math.Inf(-1), float64(p.cfg.KMax))
			for _, d := range p.ds.Depots {
				cols, ok := p.pairCols[PairKey{Route: r.ID, Depot: d.ID}]
				if !ok {
					continue
				}
				z := m.AddCol(fmt.Sprintf("z_%s_%s", r.ID, d.ID), 0, 0, 1, true)
				m.SetCoef(kRow, z, 1)
				// x - demand·z <= 0
				link := m.AddRow(fmt.Sprintf("link_%s_%s", r.ID, d.ID), math.Inf(-1), 0)
				m.SetCoef(link, cols[0], 1)
				m.SetCoef(link, z, -float64(r.Demand))
			}
		}
	}
	p.model = m
}
