package milp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelIndexStability(t *testing.T) {
	m := NewModel()
	x := m.AddCol("x", 1, 0, 10, false)
	y := m.AddCol("y", 2, 0, math.Inf(1), true)
	assert.Equal(t, 0, x)
	assert.Equal(t, 1, y)
	assert.Equal(t, 2, m.NumCols())

	i, ok := m.Col("y")
	require.True(t, ok)
	assert.Equal(t, y, i)
	assert.Equal(t, "x", m.ColName(x))

	_, ok = m.Col("z")
	assert.False(t, ok)

	r := m.AddRow("cap", math.Inf(-1), 8)
	m.SetCoef(r, x, 1)
	m.SetCoef(r, y, 2)
	j, ok := m.Row("cap")
	require.True(t, ok)
	assert.Equal(t, r, j)
	assert.Equal(t, "cap", m.RowName(r))
}

func TestModelDuplicateNamePanics(t *testing.T) {
	m := NewModel()
	m.AddCol("x", 1, 0, 1, false)
	assert.Panics(t, func() { m.AddCol("x", 2, 0, 1, false) })
	m.AddRow("r", 0, 0)
	assert.Panics(t, func() { m.AddRow("r", 0, 0) })
}

func TestHasIntegerCols(t *testing.T) {
	m := NewModel()
	m.AddCol("x", 1, 0, 1, false)
	assert.False(t, m.HasIntegerCols())
	m.AddCol("y", 1, 0, 1, true)
	assert.True(t, m.HasIntegerCols())
}

func TestRowActivityAndSlack(t *testing.T) {
	m := NewModel()
	x := m.AddCol("x", 1, 0, 10, false)
	y := m.AddCol("y", 1, 0, 10, false)
	r := m.AddRow("cap", math.Inf(-1), 8)
	m.SetCoef(r, x, 1)
	m.SetCoef(r, y, 2)
	free := m.AddRow("free", math.Inf(-1), math.Inf(1))
	m.SetCoef(free, x, 1)

	values := []float64{3, 2}
	assert.InDelta(t, 7.0, m.RowActivity(values, r), 1e-9)
	assert.InDelta(t, 1.0, m.RowSlack(values, r), 1e-9)
	assert.True(t, math.IsInf(m.RowSlack(values, free), 1))
}
