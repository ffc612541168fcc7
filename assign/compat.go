package assign

import (
	"fmt"
	"math"
	"strings"
)

// BuildCompatibility 由成本矩阵推导兼容矩阵A[r,p]。
// 兼容条件：当前目标下存在有限成本；目标为距离且配置了阈值时，
// 还要求距离不超过阈值。溢出车场不受阈值约束，
// 其惩罚定价通常超过阈值，但必须对所有线路保持可用。
// 存在与所有车场都不兼容的线路时返回ErrNoCompatibleDepot（最多列出前10条），
// 此时不会创建任何变量或约束。
func BuildCompatibility(ds *Dataset, cfg Config) (*Compatibility, error) {
	costs := ds.costs(cfg.Objective)
	a := &Compatibility{pairs: make(map[PairKey]bool, len(ds.Routes)*len(ds.Depots))}
	uncovered := make([]string, 0)
	for _, r := range ds.Routes {
		covered := false
		for _, p := range ds.Depots {
			v, ok := costs[p.ID][r.ID]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if cfg.MaxDistance > 0 && cfg.Objective == ObjectiveDistance &&
				p.ID != OVERFLOW_ID && v > cfg.MaxDistance {
				continue
			}
			a.pairs[PairKey{Route: r.ID, Depot: p.ID}] = true
			a.Viable++
			covered = true
		}
		if !covered {
			uncovered = append(uncovered, r.ID)
		}
	}
	if len(uncovered) > 0 {
		preview := uncovered
		if len(preview) > ERR_PREVIEW {
			preview = preview[:ERR_PREVIEW]
		}
		return nil, fmt.Errorf("%w: %s", ErrNoCompatibleDepot, strings.Join(preview, ","))
	}
	log.Debugf("compatibility matrix: %d viable pairs of %d possible",
		a.Viable, len(ds.Routes)*len(ds.Depots))
	return a, nil
}
