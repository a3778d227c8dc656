// Package cpsat implements a small boolean constraint solver in the style of CP-SAT
// model building: boolean variables combined through exactly-one, at-most-N and
// and-link constraints, decided by depth-first search with unit propagation.
//
// Search runs as a portfolio of workers over disjoint prefix-assignment subtrees,
// enumerated in the order a sequential depth-first search would visit them; the
// accepted solution is the one from the lowest-numbered subtree. Given the same model
// and parameters, a run that finishes inside its budget always returns the same
// solution.
package cpsat

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Var identifies a boolean variable inside a model.
type Var int32

const unassigned int8 = -1

// Status classifies the outcome of a solve.
type Status int

const (
	// StatusFeasible means a satisfying assignment was found.
	StatusFeasible Status = iota
	// StatusInfeasible means the search space was exhausted without a solution.
	StatusInfeasible
	// StatusTimeout means the budget expired before a verdict.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeout:
		return "timeout"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Params bounds a solve.
type Params struct {
	// MaxTime is the wall-clock budget. Defaults to 60s.
	MaxTime time.Duration
	// Workers is the number of parallel search workers. Defaults to 8.
	Workers int
}

type ctype uint8

const (
	ctExactlyOne ctype = iota
	ctAtMost
	ctAnd
)

type constraint struct {
	typ   ctype
	vars  []Var // for ctAnd: [target, a, b]
	bound int32 // for ctAtMost
}

type fixed struct {
	v   Var
	val int8
}

// Model accumulates variables and constraints. Create choice variables before derived
// ones: branching follows creation order, and and-link targets are resolved by
// propagation once their operands are assigned.
type Model struct {
	names         []string
	constraints   []constraint
	fixedVars     []fixed
	watchers      [][]int32
	contradiction bool
	prepared      bool
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar adds a boolean variable. The name is kept for debugging only.
func (m *Model) NewBoolVar(name string) Var {
	m.names = append(m.names, name)
	return Var(len(m.names) - 1)
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int {
	return len(m.names)
}

// Name returns the debug name of a variable.
func (m *Model) Name(v Var) string {
	return m.names[v]
}

// AddExactlyOne requires exactly one of the variables to be true.
func (m *Model) AddExactlyOne(vars ...Var) {
	if len(vars) == 0 {
		m.contradiction = true
		return
	}
	m.constraints = append(m.constraints, constraint{typ: ctExactlyOne, vars: append([]Var(nil), vars...)})
}

// AddAtMost requires at most bound of the variables to be true.
func (m *Model) AddAtMost(bound int, vars ...Var) {
	if bound < 0 {
		m.contradiction = true
		return
	}
	if len(vars) <= bound {
		return
	}
	m.constraints = append(m.constraints, constraint{typ: ctAtMost, vars: append([]Var(nil), vars...), bound: int32(bound)})
}

// AddBoolAnd links target to the conjunction of a and b.
func (m *Model) AddBoolAnd(target, a, b Var) {
	m.constraints = append(m.constraints, constraint{typ: ctAnd, vars: []Var{target, a, b}})
}

// AddFixed forces a variable to a constant value.
func (m *Model) AddFixed(v Var, value bool) {
	val := int8(0)
	if value {
		val = 1
	}
	m.fixedVars = append(m.fixedVars, fixed{v: v, val: val})
}

func (m *Model) prepare() {
	if m.prepared {
		return
	}
	m.watchers = make([][]int32, len(m.names))
	for ci, c := range m.constraints {
		for _, v := range c.vars {
			m.watchers[v] = append(m.watchers[v], int32(ci))
		}
	}
	m.prepared = true
}

// Result holds the outcome of a solve.
type Result struct {
	Status Status
	// Nodes counts branching nodes explored across all workers.
	Nodes int64

	assign []int8
}

// Value reports the assigned value of a variable in a feasible result.
func (r Result) Value(v Var) bool {
	if r.assign == nil {
		return false
	}
	return r.assign[v] == 1
}

// Solve runs the portfolio search. A panic inside the engine is recovered and
// returned as an error so callers can classify it separately from infeasibility.
func (m *Model) Solve(params Params) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("solver panic: %v", r)
		}
	}()

	if params.MaxTime <= 0 {
		params.MaxTime = 60 * time.Second
	}
	if params.Workers <= 0 {
		params.Workers = 8
	}
	if m.contradiction {
		return Result{Status: StatusInfeasible}, nil
	}
	m.prepare()

	deadline := time.Now().Add(params.MaxTime)

	// Level-0 propagation of fixed variables is shared by every subtree; a conflict
	// here proves the model unsatisfiable outright.
	root := newSearcher(m, deadline)
	for _, f := range m.fixedVars {
		if !root.enqueue(f.v, f.val) {
			return Result{Status: StatusInfeasible}, nil
		}
	}
	if !root.propagate() {
		return Result{Status: StatusInfeasible}, nil
	}

	order := make([]Var, 0, len(m.names))
	for v := 0; v < len(m.names); v++ {
		if root.assign[v] == unassigned {
			order = append(order, Var(v))
		}
	}
	if len(order) == 0 {
		res := Result{Status: StatusFeasible, assign: append([]int8(nil), root.assign...)}
		return res, nil
	}

	depth := splitDepth(params.Workers, len(order))
	patterns := 1 << depth

	var (
		bestPattern atomic.Int64
		timedOut    atomic.Bool
		totalNodes  atomic.Int64
		panicked    atomic.Value
		mu          sync.Mutex
		solutions   = map[int64][]int8{}
	)
	bestPattern.Store(math.MaxInt64)

	var wg sync.WaitGroup
	for w := 0; w < params.Workers && w < patterns; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked.Store(fmt.Sprintf("%v", r))
				}
			}()

			s := newSearcher(m, deadline)
			s.baseline(root)
			for p := int64(workerID); p < int64(patterns); p += int64(params.Workers) {
				if p >= bestPattern.Load() {
					break
				}
				if time.Now().After(deadline) {
					timedOut.Store(true)
					break
				}
				s.pattern = p
				s.best = &bestPattern
				found, stopped := s.searchPattern(order, depth, p)
				if found {
					mu.Lock()
					if p < bestPattern.Load() {
						bestPattern.Store(p)
						solutions[p] = append([]int8(nil), s.assign...)
					}
					mu.Unlock()
					s.unwind()
					break
				}
				s.unwind()
				if stopped {
					if time.Now().After(deadline) {
						timedOut.Store(true)
					}
					break
				}
			}
			totalNodes.Add(s.nodes)
		}(w)
	}
	wg.Wait()

	if p := panicked.Load(); p != nil {
		return Result{Nodes: totalNodes.Load()}, fmt.Errorf("solver panic: %v", p)
	}

	best := bestPattern.Load()
	if best != math.MaxInt64 {
		mu.Lock()
		assign := solutions[best]
		mu.Unlock()
		return Result{Status: StatusFeasible, Nodes: totalNodes.Load(), assign: assign}, nil
	}
	if timedOut.Load() {
		return Result{Status: StatusTimeout, Nodes: totalNodes.Load()}, nil
	}
	return Result{Status: StatusInfeasible, Nodes: totalNodes.Load()}, nil
}

// splitDepth picks the prefix length so there are enough subtrees to spread across
// workers without fragmenting small models.
func splitDepth(workers, free int) int {
	depth := 0
	for (1<<depth) < workers*4 && depth < 10 {
		depth++
	}
	if depth > free {
		depth = free
	}
	return depth
}

type searcher struct {
	m        *Model
	assign   []int8
	trueCnt  []int32
	falseCnt []int32
	trail    []Var
	marks    []int
	queue    []Var
	deadline time.Time
	nodes    int64
	pattern  int64
	best     *atomic.Int64
}

func newSearcher(m *Model, deadline time.Time) *searcher {
	assign := make([]int8, len(m.names))
	for i := range assign {
		assign[i] = unassigned
	}
	return &searcher{
		m:        m,
		assign:   assign,
		trueCnt:  make([]int32, len(m.constraints)),
		falseCnt: make([]int32, len(m.constraints)),
		deadline: deadline,
	}
}

// baseline copies the level-0 state of another searcher.
func (s *searcher) baseline(root *searcher) {
	copy(s.assign, root.assign)
	copy(s.trueCnt, root.trueCnt)
	copy(s.falseCnt, root.falseCnt)
	s.trail = s.trail[:0]
	s.marks = s.marks[:0]
}

// enqueue assigns a variable, recording it on the trail and updating constraint
// counters. It reports false on a conflicting assignment.
func (s *searcher) enqueue(v Var, val int8) bool {
	if s.assign[v] != unassigned {
		return s.assign[v] == val
	}
	s.assign[v] = val
	s.trail = append(s.trail, v)
	s.queue = append(s.queue, v)
	for _, ci := range s.m.watchers[v] {
		if val == 1 {
			s.trueCnt[ci]++
		} else {
			s.falseCnt[ci]++
		}
	}
	return true
}

func (s *searcher) propagate() bool {
	for len(s.queue) > 0 {
		v := s.queue[0]
		s.queue = s.queue[1:]
		for _, ci := range s.m.watchers[v] {
			if !s.apply(ci) {
				s.queue = s.queue[:0]
				return false
			}
		}
	}
	return true
}

func (s *searcher) apply(ci int32) bool {
	c := &s.m.constraints[ci]
	switch c.typ {
	case ctExactlyOne:
		n := int32(len(c.vars))
		switch {
		case s.trueCnt[ci] > 1:
			return false
		case s.falseCnt[ci] == n:
			return false
		case s.trueCnt[ci] == 1:
			for _, v := range c.vars {
				if s.assign[v] == unassigned && !s.enqueue(v, 0) {
					return false
				}
			}
		case s.falseCnt[ci] == n-1:
			for _, v := range c.vars {
				if s.assign[v] == unassigned {
					return s.enqueue(v, 1)
				}
			}
		}
	case ctAtMost:
		switch {
		case s.trueCnt[ci] > c.bound:
			return false
		case s.trueCnt[ci] == c.bound:
			for _, v := range c.vars {
				if s.assign[v] == unassigned && !s.enqueue(v, 0) {
					return false
				}
			}
		}
	case ctAnd:
		t, a, b := c.vars[0], c.vars[1], c.vars[2]
		switch {
		case s.assign[t] == 1:
			if !s.enqueue(a, 1) || !s.enqueue(b, 1) {
				return false
			}
		case s.assign[a] == 0 || s.assign[b] == 0:
			if !s.enqueue(t, 0) {
				return false
			}
		case s.assign[a] == 1 && s.assign[b] == 1:
			if !s.enqueue(t, 1) {
				return false
			}
		case s.assign[t] == 0 && s.assign[a] == 1:
			if !s.enqueue(b, 0) {
				return false
			}
		case s.assign[t] == 0 && s.assign[b] == 1:
			if !s.enqueue(a, 0) {
				return false
			}
		}
	}
	return true
}

func (s *searcher) pushLevel() {
	s.marks = append(s.marks, len(s.trail))
}

func (s *searcher) popLevel() {
	mark := s.marks[len(s.marks)-1]
	s.marks = s.marks[:len(s.marks)-1]
	for i := len(s.trail) - 1; i >= mark; i-- {
		v := s.trail[i]
		val := s.assign[v]
		for _, ci := range s.m.watchers[v] {
			if val == 1 {
				s.trueCnt[ci]--
			} else {
				s.falseCnt[ci]--
			}
		}
		s.assign[v] = unassigned
	}
	s.trail = s.trail[:mark]
	s.queue = s.queue[:0]
}

// unwind drops every level pushed since the baseline.
func (s *searcher) unwind() {
	for len(s.marks) > 0 {
		s.popLevel()
	}
}

// searchPattern fixes the prefix assignment encoded by pattern p over the first depth
// branch variables, then searches the remaining subtree. The first variable occupies
// the most significant bit and a clear bit means true, so ascending pattern numbers
// follow the visit order of a sequential true-first depth-first search.
func (s *searcher) searchPattern(order []Var, depth int, p int64) (found, stopped bool) {
	s.pushLevel()
	for j := 0; j < depth; j++ {
		val := int8(1)
		if p&(1<<(depth-1-j)) != 0 {
			val = 0
		}
		if !s.enqueue(order[j], val) {
			return false, false
		}
	}
	if !s.propagate() {
		return false, false
	}
	return s.search(order, depth)
}

func (s *searcher) search(order []Var, from int) (found, stopped bool) {
	s.nodes++
	if s.nodes&255 == 0 {
		if time.Now().After(s.deadline) {
			return false, true
		}
		if s.best != nil && s.best.Load() < s.pattern {
			return false, true
		}
	}

	idx := -1
	for i := from; i < len(order); i++ {
		if s.assign[order[i]] == unassigned {
			idx = i
			break
		}
	}
	if idx == -1 {
		return true, false
	}

	v := order[idx]
	for _, val := range [2]int8{1, 0} {
		s.pushLevel()
		if s.enqueue(v, val) && s.propagate() {
			found, stopped = s.search(order, idx+1)
			if found || stopped {
				return found, stopped
			}
		}
		s.popLevel()
	}
	return false, false
}
