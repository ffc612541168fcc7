package milp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

func init() {
	Register(&simplexBackend{})
}

// simplexBackend 纯LP后端，基于gonum的单纯形实现。
// 不支持整数列，也不回传对偶信息（诊断按不可用处理）。
type simplexBackend struct{}

func (b *simplexBackend) Name() string { return "simplex" }

func (b *simplexBackend) Solve(m *Model, opts Options) (*Solution, error) {
	if m.HasIntegerCols() {
		return nil, fmt.Errorf("%w: backend simplex does not support integer variables", ErrBackendUnavailable)
	}
	n := m.NumCols()
	c := make([]float64, n)
	for i, cc := range m.cols {
		if cc.lb != 0 {
			return nil, fmt.Errorf("%w: backend simplex requires zero lower bounds", ErrBackendUnavailable)
		}
		c[i] = cc.cost
	}

	// 标准形转换：等式行进A/b，不等式行和有限列上界进G/h
	var gRows, aRows [][]float64
	var h, bv []float64
	denseRow := func(r row) []float64 {
		d := make([]float64, n)
		for col, v := range r.coef {
			d[col] = v
		}
		return d
	}
	for _, r := range m.rows {
		switch {
		case r.lb == r.ub:
			aRows = append(aRows, denseRow(r))
			bv = append(bv, r.ub)
		default:
			if !math.IsInf(r.ub, 1) {
				gRows = append(gRows, denseRow(r))
				h = append(h, r.ub)
			}
			if !math.IsInf(r.lb, -1) {
				d := denseRow(r)
				for i := range d {
					d[i] = -d[i]
				}
				gRows = append(gRows, d)
				h = append(h, -r.lb)
			}
		}
	}
	// lp.Convert把所有变量当自由变量处理（拆成x⁺-x⁻），
	// 非负性必须作为-x_i<=0行显式加入，否则贵列会取负值
	for i, cc := range m.cols {
		if !math.IsInf(cc.ub, 1) {
			d := make([]float64, n)
			d[i] = 1
			gRows = append(gRows, d)
			h = append(h, cc.ub)
		}
		d := make([]float64, n)
		d[i] = -1
		gRows = append(gRows, d)
		h = append(h, 0)
	}
	if len(aRows) == 0 {
		return nil, fmt.Errorf("%w: backend simplex requires at least one equality row", ErrBackendUnavailable)
	}

	g := mat.NewDense(len(gRows), n, nil)
	for i, r := range gRows {
		g.SetRow(i, r)
	}
	a := mat.NewDense(len(aRows), n, nil)
	for i, r := range aRows {
		a.SetRow(i, r)
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, bv)
	_, xStd, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: simplex: %v", ErrNotOptimal, err)
	}

	// 标准形把x拆成x⁺-x⁻，前n个是x⁺，随后n个是x⁻
	values := make([]float64, n)
	obj := 0.0
	for i := range values {
		v := xStd[i]
		if len(xStd) >= 2*n {
			v -= xStd[n+i]
		}
		if v < 0 {
			v = 0
		}
		values[i] = v
		obj += c[i] * v
	}
	// 重组后的解再按原模型复核一遍行界，未通过不当作最优上报
	const tol = 1e-6
	for r := range m.rows {
		act := m.RowActivity(values, r)
		if act > m.rows[r].ub+tol || act < m.rows[r].lb-tol {
			return nil, fmt.Errorf("%w: simplex solution violates row %s (activity %v, bounds [%v, %v])",
				ErrNotOptimal, m.rows[r].name, act, m.rows[r].lb, m.rows[r].ub)
		}
	}
	return &Solution{Objective: obj, Values: values}, nil
}
