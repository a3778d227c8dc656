package cpsat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveExactlyOnePicksSingleVar(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	c := m.NewBoolVar("c")
	m.AddExactlyOne(a, b, c)

	res, err := m.Solve(Params{Workers: 2, MaxTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, res.Status)

	trues := 0
	for _, v := range []Var{a, b, c} {
		if res.Value(v) {
			trues++
		}
	}
	assert.Equal(t, 1, trues)
}

func TestSolveAndLinkPropagation(t *testing.T) {
	m := NewModel()
	x := m.NewBoolVar("x")
	w := m.NewBoolVar("w")
	y := m.NewBoolVar("y")
	m.AddBoolAnd(y, x, w)
	m.AddFixed(x, true)
	m.AddFixed(w, true)

	res, err := m.Solve(Params{Workers: 1, MaxTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, res.Status)
	assert.True(t, res.Value(y))
}

func TestSolveAndLinkForcesOperandsFalse(t *testing.T) {
	m := NewModel()
	x := m.NewBoolVar("x")
	w := m.NewBoolVar("w")
	y := m.NewBoolVar("y")
	m.AddBoolAnd(y, x, w)
	m.AddFixed(y, false)
	m.AddFixed(x, true)

	res, err := m.Solve(Params{Workers: 1, MaxTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, res.Status)
	assert.False(t, res.Value(w))
}

func TestSolvePigeonholeInfeasible(t *testing.T) {
	m := NewModel()
	const pigeons, holes = 4, 3
	vars := make([][]Var, pigeons)
	for p := 0; p < pigeons; p++ {
		vars[p] = make([]Var, holes)
		for h := 0; h < holes; h++ {
			vars[p][h] = m.NewBoolVar(fmt.Sprintf("p%d_h%d", p, h))
		}
		m.AddExactlyOne(vars[p]...)
	}
	for h := 0; h < holes; h++ {
		col := make([]Var, pigeons)
		for p := 0; p < pigeons; p++ {
			col[p] = vars[p][h]
		}
		m.AddAtMost(1, col...)
	}

	res, err := m.Solve(Params{Workers: 4, MaxTime: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestSolveConflictingFixedInfeasible(t *testing.T) {
	m := NewModel()
	v := m.NewBoolVar("v")
	m.AddFixed(v, true)
	m.AddFixed(v, false)

	res, err := m.Solve(Params{Workers: 1, MaxTime: time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestSolveEmptyExactlyOneInfeasible(t *testing.T) {
	m := NewModel()
	m.NewBoolVar("unused")
	m.AddExactlyOne()

	res, err := m.Solve(Params{Workers: 1, MaxTime: time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestSolveReturnsLeftmostSolution(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddAtMost(1, a, b)

	res, err := m.Solve(Params{Workers: 4, MaxTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, res.Status)
	assert.True(t, res.Value(a), "true-first order commits the first variable")
	assert.False(t, res.Value(b))
}

func TestSolveDeterministicAcrossRuns(t *testing.T) {
	build := func() (*Model, []Var) {
		m := NewModel()
		var vars []Var
		for i := 0; i < 12; i++ {
			vars = append(vars, m.NewBoolVar(fmt.Sprintf("v%d", i)))
		}
		for i := 0; i+3 <= len(vars); i += 3 {
			m.AddExactlyOne(vars[i], vars[i+1], vars[i+2])
		}
		m.AddAtMost(2, vars[0], vars[3], vars[6], vars[9])
		return m, vars
	}

	m1, vars1 := build()
	res1, err := m1.Solve(Params{Workers: 8, MaxTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, res1.Status)

	m2, vars2 := build()
	res2, err := m2.Solve(Params{Workers: 8, MaxTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, res2.Status)

	for i := range vars1 {
		assert.Equal(t, res1.Value(vars1[i]), res2.Value(vars2[i]), "variable %d", i)
	}
}

func TestSolveTimeoutOnTinyBudget(t *testing.T) {
	m := NewModel()
	const pigeons, holes = 9, 8
	vars := make([][]Var, pigeons)
	for p := 0; p < pigeons; p++ {
		vars[p] = make([]Var, holes)
		for h := 0; h < holes; h++ {
			vars[p][h] = m.NewBoolVar(fmt.Sprintf("p%d_h%d", p, h))
		}
		m.AddExactlyOne(vars[p]...)
	}
	for h := 0; h < holes; h++ {
		col := make([]Var, pigeons)
		for p := 0; p < pigeons; p++ {
			col[p] = vars[p][h]
		}
		m.AddAtMost(1, col...)
	}

	res, err := m.Solve(Params{Workers: 2, MaxTime: time.Nanosecond})
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, res.Status)
}
