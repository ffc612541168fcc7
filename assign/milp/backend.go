package milp

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// 错误：请求的求解器后端不存在（配置错误，区别于不可行）
	ErrBackendUnavailable = errors.New("solver backend unavailable")
	// 错误：求解器未确认最优（不可行、无界或超时都归入此类）
	ErrNotOptimal = errors.New("solver did not confirm an optimal solution")
)

// Options 单次求解的参数
type Options struct {
	// 墙上时钟时限，<=0表示不限制
	TimeLimit time.Duration
	// MIP相对gap容差（供调用方校验整数证书用）
	MIPGap float64
}

// Solution 求解结果。对偶信息只有LP求解时才有，
// HasDuals=false时RowDuals/ColDuals为nil，调用方按"诊断不可用"处理。
type Solution struct {
	Objective float64
	Values    []float64
	RowDuals  []float64
	ColDuals  []float64
	HasDuals  bool
}

type Backend interface {
	Name() string
	Solve(m *Model, opts Options) (*Solution, error)
}

var backends = make(map[string]Backend)

func Register(b Backend) {
	backends[b.Name()] = b
}

// Get 按名字取后端；未注册的名字返回ErrBackendUnavailable。
func Get(name string) (Backend, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrBackendUnavailable, name, Names())
	}
	return b, nil
}

func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
