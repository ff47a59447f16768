package compile

import (
	"fmt"
	"time"

	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// vm evaluates one call of a compiled function. Evaluation is pull-based:
// each root is demanded and the VM recurses into its producers, memoizing
// every value. Switch conditions that turn out uniform at run time skip the
// untaken branch entirely.
//
// A vm is single-use; Function.Call builds a fresh one per call.
type vm struct {
	backend tensor.Backend
	plan    *plan
	prof    *Profile

	inputs   map[*graph.Var]*tensor.Tensor
	snapshot map[*graph.Shared]*tensor.Tensor

	values  map[*graph.Var]*tensor.Tensor
	uses    map[*graph.Var]int
	release map[*graph.Var]func()
}

func newVM(backend tensor.Backend, p *plan, prof *Profile) *vm {
	m := &vm{
		backend:  backend,
		plan:     p,
		prof:     prof,
		inputs:   make(map[*graph.Var]*tensor.Tensor),
		snapshot: make(map[*graph.Shared]*tensor.Tensor),
		values:   make(map[*graph.Var]*tensor.Tensor),
		release:  make(map[*graph.Var]func()),
		uses:     make(map[*graph.Var]int, len(p.uses)),
	}
	for v, n := range p.uses {
		m.uses[v] = n
	}
	return m
}

// bind associates a concrete tensor with a free input variable.
func (m *vm) bind(v *graph.Var, t *tensor.Tensor) {
	m.inputs[v] = t
}

// takeSnapshot reads every shared cell once, before any evaluation. All
// update expressions see the same pre-call values regardless of evaluation
// order.
func (m *vm) takeSnapshot() {
	for _, s := range m.plan.shared {
		m.snapshot[s] = s.Value()
	}
}

func (m *vm) eval(v *graph.Var) (*tensor.Tensor, error) {
	if t, ok := m.values[v]; ok {
		return t, nil
	}

	var t *tensor.Tensor
	switch {
	case v.Owner() != nil:
		var err error
		t, err = m.evalApply(v)
		if err != nil {
			return nil, err
		}
	default:
		var err error
		t, err = m.evalLeaf(v)
		if err != nil {
			return nil, err
		}
	}

	// Keep the value immune to in-place kernels while more than one use
	// remains. The retain is dropped before the last use so the final
	// consumer may overwrite the buffer.
	if m.uses[v] > 1 {
		m.release[v] = t.Retain()
	}
	m.values[v] = t
	return t, nil
}

func (m *vm) evalLeaf(v *graph.Var) (*tensor.Tensor, error) {
	if c, ok := v.IsConst(); ok {
		// Graph constants live across calls; never let a kernel reuse
		// their buffer.
		m.release[v] = c.Retain()
		m.uses[v]++
		return c, nil
	}
	if s := v.SharedCell(); s != nil {
		t, ok := m.snapshot[s]
		if !ok {
			return nil, fmt.Errorf("shared %q was not snapshotted", s.Name())
		}
		return t, nil
	}
	t, ok := m.inputs[v]
	if !ok {
		return nil, fmt.Errorf("input %q is not bound", v.Name())
	}
	// Same for caller-owned argument tensors.
	m.release[v] = t.Retain()
	m.uses[v]++
	return t, nil
}

func (m *vm) evalApply(v *graph.Var) (*tensor.Tensor, error) {
	a := v.Owner()

	if _, ok := a.Op().(graph.SwitchOp); ok {
		return m.evalSwitch(v, a)
	}

	ins := make([]*tensor.Tensor, len(a.Inputs()))
	for i, in := range a.Inputs() {
		t, err := m.eval(in)
		if err != nil {
			return nil, err
		}
		ins[i] = t
	}

	t := m.runOp(a, ins)
	for _, in := range a.Inputs() {
		m.consumed(in)
	}
	return t, nil
}

// evalSwitch demands the condition first. When it is uniform the untaken
// branch is never evaluated, which is what makes switch usable as a guard
// around expensive or partially-defined expressions.
func (m *vm) evalSwitch(v *graph.Var, a *graph.Apply) (*tensor.Tensor, error) {
	condVar, aVar, bVar := a.Inputs()[0], a.Inputs()[1], a.Inputs()[2]

	cond, err := m.eval(condVar)
	if err != nil {
		return nil, err
	}

	if taken, uniform := uniformBool(cond); uniform {
		branch := aVar
		if !taken {
			branch = bVar
		}
		t, err := m.eval(branch)
		if err != nil {
			return nil, err
		}
		if !t.Shape().Equal(v.Shape()) {
			t = m.backend.Broadcast(t, v.Shape())
		}
		m.consumed(condVar)
		m.consumed(branch)
		return t, nil
	}

	av, err := m.eval(aVar)
	if err != nil {
		return nil, err
	}
	bv, err := m.eval(bVar)
	if err != nil {
		return nil, err
	}
	t := m.runOp(a, []*tensor.Tensor{cond, av, bv})
	m.consumed(condVar)
	m.consumed(aVar)
	m.consumed(bVar)
	return t, nil
}

func (m *vm) runOp(a *graph.Apply, ins []*tensor.Tensor) *tensor.Tensor {
	if m.prof == nil {
		return a.Op().Eval(m.backend, ins)
	}
	start := time.Now()
	t := a.Op().Eval(m.backend, ins)
	m.prof.recordOp(a.Op().Name(), time.Since(start))
	return t
}

// consumed records one use of a value; when only the root (or final) use
// remains, the protective retain is dropped.
func (m *vm) consumed(v *graph.Var) {
	m.uses[v]--
	if m.uses[v] == 1 {
		if rel := m.release[v]; rel != nil {
			rel()
			delete(m.release, v)
		}
	}
}

// uniformBool reports whether every element of a bool tensor has the same
// value.
func uniformBool(t *tensor.Tensor) (value, uniform bool) {
	vals := t.AsBool()
	if len(vals) == 0 {
		return false, false
	}
	first := vals[0]
	for _, b := range vals[1:] {
		if b != first {
			return false, false
		}
	}
	return first, true
}
