package milp

import (
	"fmt"
	"math"
)

// 决策变量（列）
type col struct {
	name    string
	cost    float64
	lb, ub  float64
	integer bool
}

// 线性约束（行），lb <= coef·x <= ub
type row struct {
	name   string
	lb, ub float64
	coef   map[int]float64
}

// Model 与求解器无关的线性模型（最小化）。
// 列和行按加入顺序编号，名字到下标的映射在求解前后保持不变，
// 便于按名字回查对偶值、松弛量等诊断信息。
type Model struct {
	cols     []col
	colIndex map[string]int
	rows     []row
	rowIndex map[string]int
}

func NewModel() *Model {
	return &Model{
		cols:     make([]col, 0),
		colIndex: make(map[string]int),
		rows:     make([]row, 0),
		rowIndex: make(map[string]int),
	}
}

// AddCol 新增一列，返回列下标。重名视为建模错误，直接panic。
func (m *Model) AddCol(name string, cost, lb, ub float64, integer bool) int {
	if _, ok := m.colIndex[name]; ok {
		panic(fmt.Sprintf("milp: duplicated col %s", name))
	}
	m.cols = append(m.cols, col{name: name, cost: cost, lb: lb, ub: ub, integer: integer})
	m.colIndex[name] = len(m.cols) - 1
	return len(m.cols) - 1
}

// AddRow 新增一行，返回行下标。系数用SetCoef填充。
func (m *Model) AddRow(name string, lb, ub float64) int {
	if _, ok := m.rowIndex[name]; ok {
		panic(fmt.Sprintf("milp: duplicated row %s", name))
	}
	m.rows = append(m.rows, row{name: name, lb: lb, ub: ub, coef: make(map[int]float64)})
	m.rowIndex[name] = len(m.rows) - 1
	return len(m.rows) - 1
}

func (m *Model) SetCoef(r, c int, v float64) {
	m.rows[r].coef[c] = v
}

func (m *Model) NumCols() int { return len(m.cols) }
func (m *Model) NumRows() int { return len(m.rows) }

func (m *Model) Col(name string) (int, bool) {
	i, ok := m.colIndex[name]
	return i, ok
}

func (m *Model) Row(name string) (int, bool) {
	i, ok := m.rowIndex[name]
	return i, ok
}

func (m *Model) ColName(i int) string { return m.cols[i].name }
func (m *Model) RowName(i int) string { return m.rows[i].name }

// HasIntegerCols 是否含整数列（LP-only后端据此拒绝模型）
func (m *Model) HasIntegerCols() bool {
	for _, c := range m.cols {
		if c.integer {
			return true
		}
	}
	return false
}

// RowActivity 按原始解向量重算行的取值。
// 不依赖后端回传的行值，两个后端行为因此一致。
func (m *Model) RowActivity(values []float64, r int) float64 {
	a := 0.0
	for c, v := range m.rows[r].coef {
		a += v * values[c]
	}
	return a
}

// RowSlack 行上界的松弛量；无上界时返回+Inf。
func (m *Model) RowSlack(values []float64, r int) float64 {
	if math.IsInf(m.rows[r].ub, 1) {
		return math.Inf(1)
	}
	return m.rows[r].ub - m.RowActivity(values, r)
}
