package milp

import (
	"fmt"
	"time"

	"github.com/lanl/highs"
)

func init() {
	Register(&highsBackend{})
}

// highsBackend 基于HiGHS的MILP/LP后端
type highsBackend struct{}

func (b *highsBackend) Name() string { return "highs" }

func (b *highsBackend) Solve(m *Model, opts Options) (*Solution, error) {
	hm := new(highs.Model)
	hm.ColCosts = make([]float64, m.NumCols())
	hm.ColLower = make([]float64, m.NumCols())
	hm.ColUpper = make([]float64, m.NumCols())
	hm.VarTypes = make([]highs.VariableType, m.NumCols())
	for i, c := range m.cols {
		hm.ColCosts[i] = c.cost
		hm.ColLower[i] = c.lb
		hm.ColUpper[i] = c.ub
		if c.integer {
			hm.VarTypes[i] = highs.IntegerType
		} else {
			hm.VarTypes[i] = highs.ContinuousType
		}
	}
	hm.RowLower = make([]float64, m.NumRows())
	hm.RowUpper = make([]float64, m.NumRows())
	for i, r := range m.rows {
		hm.RowLower[i] = r.lb
		hm.RowUpper[i] = r.ub
		for c, v := range r.coef {
			hm.ConstMatrix = append(hm.ConstMatrix, highs.Nonzero{Row: i, Col: c, Val: v})
		}
	}

	// cgo调用无法中途打断，超时后放弃等待并按未达最优上报
	type outcome struct {
		sol highs.Solution
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		sol, err := hm.Solve()
		ch <- outcome{sol: sol, err: err}
	}()
	var out outcome
	if opts.TimeLimit > 0 {
		select {
		case out = <-ch:
		case <-time.After(opts.TimeLimit):
			return nil, fmt.Errorf("%w: time limit %s exceeded", ErrNotOptimal, opts.TimeLimit)
		}
	} else {
		out = <-ch
	}
	if out.err != nil {
		return nil, fmt.Errorf("highs: %w", out.err)
	}
	if out.sol.Status != highs.Optimal {
		return nil, fmt.Errorf("%w: highs status %s", ErrNotOptimal, out.sol.Status.String())
	}

	s := &Solution{
		Objective: out.sol.Objective,
		Values:    out.sol.ColumnPrimal,
	}
	// 只有纯LP才有对偶信息；长度不符一律视为不可用
	if !m.HasIntegerCols() &&
		len(out.sol.RowDual) == m.NumRows() && len(out.sol.ColumnDual) == m.NumCols() {
		s.RowDuals = out.sol.RowDual
		s.ColDuals = out.sol.ColumnDual
		s.HasDuals = true
	}
	return s, nil
}
