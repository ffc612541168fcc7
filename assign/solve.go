package assign

import (
	"fmt"

	"git.fiblab.net/sim/depotassign/assign/milp"
)

// Problem 一次可求解的完整问题实例。
// 每个实例持有独立的数据拷贝和模型，多次求解之间不共享可变状态。
type Problem struct {
	ds     *Dataset
	cfg    Config
	caps   map[string]int
	compat *Compatibility

	model *milp.Model
	// (线路,车场)对对应的列下标；聚合模型单列，逐车模型每车一列
	pairCols map[PairKey][]int
	// 车场容量约束的行下标
	capRow map[string]int

	// 不含溢出车场的缩放后总容量
	deficit float64
}

// Build 构建问题：容量缩放→溢出注入→兼容矩阵→总量校验→建模。
// 任何校验失败都发生在建模求解之前。
func Build(ds *Dataset, cfg Config) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Problem{ds: ds.Clone(), cfg: cfg}
	known := make(map[string]bool, len(p.ds.Depots))
	for _, d := range p.ds.Depots {
		known[d.ID] = true
	}
	for id := range cfg.CapacityOverride {
		if !known[id] {
			return nil, fmt.Errorf("capacity override references unknown depot %s", id)
		}
	}
	p.caps = scaleCapacities(p.ds, cfg)
	if cfg.OverflowPenalty > 0 {
		if err := injectOverflow(p.ds, p.caps, cfg); err != nil {
			return nil, err
		}
	}
	compat, err := BuildCompatibility(p.ds, cfg)
	if err != nil {
		return nil, err
	}
	p.compat = compat
	deficit, err := checkCapacity(p.ds, p.caps, cfg)
	if err != nil {
		return nil, err
	}
	p.deficit = deficit
	if cfg.PerUnit {
		p.buildPerUnit()
	} else {
		p.buildAggregate()
	}
	log.Debugf("model built: %d cols, %d rows", p.model.NumCols(), p.model.NumRows())
	return p, nil
}

// Solve 调用配置的后端求解并提取结果。
// 后端不存在、求解器未确认最优都按失败上报，不会吞掉近似解。
func (p *Problem) Solve() (*Result, error) {
	backend, err := milp.Get(p.cfg.Backend)
	if err != nil {
		return nil, err
	}
	sol, err := backend.Solve(p.model, milp.Options{
		TimeLimit: p.cfg.TimeLimit,
		MIPGap:    p.cfg.MIPGap,
	})
	if err != nil {
		return nil, fmt.Errorf("solve with backend %s: %w", p.cfg.Backend, err)
	}
	return p.export(sol), nil
}

// Capacities 缩放后的车场容量（含溢出车场）
func (p *Problem) Capacities() map[string]int {
	out := make(map[string]int, len(p.caps))
	for k, v := range p.caps {
		out[k] = v
	}
	return out
}

func (p *Problem) Compat() *Compatibility { return p.compat }
