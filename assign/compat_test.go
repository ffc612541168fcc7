package assign_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.fiblab.net/sim/depotassign/assign"
)

// 测试实例：2条线路、2个车场
// 需求 R1=5, R2=3；容量 P1=4, P2=6
// 距离 P1:{R1:10,R2:12} P2:{R1:15,R2:8}
// 最优解：R1→P1×4 + R1→P2×1 + R2→P2×3，目标值79
func toyDataset() *assign.Dataset {
	return &assign.Dataset{
		Routes: []assign.Route{{ID: "R1", Demand: 5}, {ID: "R2", Demand: 3}},
		Depots: []assign.Depot{{ID: "P1", Capacity: 4}, {ID: "P2", Capacity: 6}},
		Distance: assign.CostMatrix{
			"P1": {"R1": 10, "R2": 12},
			"P2": {"R1": 15, "R2": 8},
		},
		Time: assign.CostMatrix{
			"P1": {"R1": 30, "R2": 36},
			"P2": {"R1": 45, "R2": 24},
		},
	}
}

func toyConfig() assign.Config {
	return assign.Config{
		Objective:     assign.ObjectiveDistance,
		CapacityScale: 1.0,
		Backend:       "highs",
		TimeLimit:     time.Minute,
		MIPGap:        0.02,
		AvgSpeedKmh:   20,
	}
}

func TestCompatibilityAllFinite(t *testing.T) {
	a, err := assign.BuildCompatibility(toyDataset(), toyConfig())
	require.NoError(t, err)
	assert.Equal(t, 4, a.Viable)
	assert.True(t, a.Compatible("R1", "P1"))
	assert.True(t, a.Compatible("R2", "P2"))
}

func TestCompatibilityDistanceThreshold(t *testing.T) {
	cfg := toyConfig()
	cfg.MaxDistance = 12
	a, err := assign.BuildCompatibility(toyDataset(), cfg)
	require.NoError(t, err)
	// (R1,P2)距离15超阈值，其余保留
	assert.False(t, a.Compatible("R1", "P2"))
	assert.True(t, a.Compatible("R1", "P1"))
	assert.True(t, a.Compatible("R2", "P1"))
	assert.True(t, a.Compatible("R2", "P2"))
	assert.Equal(t, 3, a.Viable)
}

func TestCompatibilityThresholdIgnoredForTimeObjective(t *testing.T) {
	cfg := toyConfig()
	cfg.Objective = assign.ObjectiveTime
	cfg.MaxDistance = 12
	a, err := assign.BuildCompatibility(toyDataset(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Viable)
}

func TestCompatibilityNonFiniteCost(t *testing.T) {
	ds := toyDataset()
	ds.Distance["P1"]["R2"] = math.Inf(1)
	ds.Distance["P2"]["R2"] = math.NaN()
	_, err := assign.BuildCompatibility(ds, toyConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, assign.ErrNoCompatibleDepot)
	assert.Contains(t, err.Error(), "R2")
}

func TestNoCompatibleDepotFailsBeforeSolve(t *testing.T) {
	ds := toyDataset()
	delete(ds.Distance["P1"], "R2")
	delete(ds.Distance["P2"], "R2")
	_, err := assign.Build(ds, toyConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, assign.ErrNoCompatibleDepot)
	assert.Contains(t, err.Error(), "R2")
}
