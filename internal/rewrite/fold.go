package rewrite

import (
	"github.com/glia-ml/glia/internal/backend/cpu"
	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// foldLimit caps how much a folded constant may grow beyond its inputs.
// Folding a broadcast of a scalar into a large dense constant trades compute
// for memory badly, so expansions past the limit stay in the graph.
const foldLimit = 4096

// ConstFold evaluates apply nodes whose inputs are all constants and replaces
// them with the resulting constant.
type ConstFold struct{}

func (ConstFold) Name() string { return "const_fold" }

var foldBackend tensor.Backend = cpu.New()

func (ConstFold) Rewrite(v *graph.Var) (*graph.Var, bool) {
	a := v.Owner()
	if a == nil {
		return nil, false
	}
	ins := a.Inputs()
	vals := make([]*tensor.Tensor, len(ins))
	maxIn := 0
	for i, in := range ins {
		t, ok := in.IsConst()
		if !ok {
			return nil, false
		}
		vals[i] = t
		if n := t.NumElements(); n > maxIn {
			maxIn = n
		}
	}
	if out := v.Shape().NumElements(); out > maxIn && out > foldLimit {
		return nil, false
	}

	// The graph constants outlive this fold; keep them immune to in-place
	// kernels while evaluating.
	for _, t := range vals {
		defer t.Retain()()
	}
	return graph.Const(a.Op().Eval(foldBackend, vals)), true
}
