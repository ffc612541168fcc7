package assign

import (
	"fmt"
	"math"

	"git.fiblab.net/sim/depotassign/assign/milp"
)

// buildPerUnit 精确逐车模型：把每条线路的需求炸开成单车任务，
// 每辆车用0/1变量指派给恰好一个兼容车场，车场容量对单车变量求和。
// 规模为O(Σdemand×车场数)，只适用于小子集（由调用方用FilterTop限制，
// 这里不做强制）。用作聚合模型的独立整数证书。
func (p *Problem) buildPerUnit() {
	costs := p.ds.costs(p.cfg.Objective)
	m := milp.NewModel()
	p.pairCols = make(map[PairKey][]int)
	p.capRow = make(map[string]int)

	capCols := make(map[string][]int, len(p.ds.Depots))
	for _, r := range p.ds.Routes {
		for i := 0; i < r.Demand; i++ {
			row := m.AddRow(fmt.Sprintf("unit_%s_%d", r.ID, i), 1, 1)
			for _, d := range p.ds.Depots {
				if !p.compat.Compatible(r.ID, d.ID) {
					continue
				}
				c := m.AddCol(fmt.Sprintf("y_%s_%d_%s", r.ID, i, d.ID),
					costs[d.ID][r.ID], 0, 1, true)
				m.SetCoef(row, c, 1)
				key := PairKey{Route: r.ID, Depot: d.ID}
				p.pairCols[key] = append(p.pairCols[key], c)
				capCols[d.ID] = append(capCols[d.ID], c)
			}
		}
	}

	for _, d := range p.ds.Depots {
		row := m.AddRow(fmt.Sprintf("cap_%s", d.ID), math.Inf(-1), float64(p.caps[d.ID]))
		p.capRow[d.ID] = row
		for _, c := range capCols[d.ID] {
			m.SetCoef(row, c, 1)
		}
	}
	p.model = m
}
