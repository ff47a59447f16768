// Package rewrite optimizes expression graphs before compilation. Rewrites
// run over a functional rebuild of the graph: every apply node is
// reconstructed bottom-up with its (possibly replaced) inputs, and each rule
// gets a chance to substitute the node with an equivalent, cheaper or more
// numerically stable expression.
package rewrite

import (
	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// Rule rewrites a single apply output. It returns the replacement variable
// and true when it fires; the replacement must have the same dtype and shape
// as the original.
type Rule interface {
	Name() string
	Rewrite(v *graph.Var) (*graph.Var, bool)
}

// Pipeline runs a rule set over a graph until no rule fires or MaxPasses is
// reached.
type Pipeline struct {
	rules []Rule

	// MaxPasses bounds the fixpoint iteration. Rules that fire can expose
	// new opportunities, so the pipeline sweeps repeatedly.
	MaxPasses int
}

// NewPipeline builds a pipeline from the given rules, applied in order at
// every node.
func NewPipeline(rules ...Rule) *Pipeline {
	return &Pipeline{rules: rules, MaxPasses: 8}
}

// Default is the full optimization pipeline: algebraic simplification,
// constant folding and numerical stability rewrites.
func Default() *Pipeline {
	return NewPipeline(
		AddZero{}, MulOne{}, MulZero{}, MulConst{}, SubSelf{}, DivOne{},
		NegNeg{}, PowConst{}, LogExp{}, ExpLog{},
		StableLog1p{}, StableSigmoid{}, StableLogSigmoid{}, StableLogSumExp{},
		ConstFold{},
	)
}

// Minimal is the fast-compile pipeline: just constant folding and the trivial
// identities, skipping the pattern rewrites.
func Minimal() *Pipeline {
	return NewPipeline(AddZero{}, MulOne{}, DivOne{}, ConstFold{})
}

// Run rewrites the graph feeding outputs and returns the replacement
// outputs, in order. Input and shared leaves are preserved as-is, so
// compiled-function bindings remain valid.
func (p *Pipeline) Run(outputs []*graph.Var) []*graph.Var {
	cur := outputs
	for pass := 0; pass < p.MaxPasses; pass++ {
		next, changed := p.sweep(cur)
		cur = next
		if !changed {
			break
		}
	}
	return cur
}

// sweep rebuilds the graph once, applying rules at every reconstructed node.
func (p *Pipeline) sweep(outputs []*graph.Var) ([]*graph.Var, bool) {
	subst := make(map[*graph.Var]*graph.Var)
	changed := false

	lookup := func(v *graph.Var) *graph.Var {
		if r, ok := subst[v]; ok {
			return r
		}
		return v
	}

	for _, a := range graph.Topological(outputs) {
		ins := a.Inputs()
		newIns := make([]*graph.Var, len(ins))
		rebuilt := false
		for i, in := range ins {
			newIns[i] = lookup(in)
			if newIns[i] != in {
				rebuilt = true
			}
		}
		v := a.Output()
		if rebuilt {
			v = graph.NewApply(a.Op(), newIns...)
		}
		if r, fired := p.apply(v); fired {
			v = r
			changed = true
		}
		if v != a.Output() {
			subst[a.Output()] = v
		}
	}

	out := make([]*graph.Var, len(outputs))
	for i, o := range outputs {
		out[i] = lookup(o)
	}
	return out, changed
}

// apply runs the rules at one node until none fires.
func (p *Pipeline) apply(v *graph.Var) (*graph.Var, bool) {
	fired := false
	for {
		again := false
		for _, r := range p.rules {
			if nv, ok := r.Rewrite(v); ok {
				v = nv
				fired = true
				again = true
			}
		}
		if !again {
			return v, fired
		}
	}
}

// opOf matches a variable produced by an op of type T, returning the op and
// its inputs.
func opOf[T graph.Op](v *graph.Var) (T, []*graph.Var, bool) {
	var zero T
	a := v.Owner()
	if a == nil {
		return zero, nil, false
	}
	op, ok := a.Op().(T)
	if !ok {
		return zero, nil, false
	}
	return op, a.Inputs(), true
}

// uniformConst reports whether v is a float constant with every element equal
// to one value, returning that value.
func uniformConst(v *graph.Var) (float64, bool) {
	t, ok := v.IsConst()
	if !ok || !t.DType().IsFloat() || t.NumElements() == 0 {
		return 0, false
	}
	var first float64
	switch t.DType() {
	case tensor.Float32:
		vals := tensor.Values[float32](t)
		first = float64(vals[0])
		for _, x := range vals[1:] {
			if float64(x) != first {
				return 0, false
			}
		}
	case tensor.Float64:
		vals := tensor.Values[float64](t)
		first = vals[0]
		for _, x := range vals[1:] {
			if x != first {
				return 0, false
			}
		}
	}
	return first, true
}

// isConstValue reports whether v is a float constant filled with value.
func isConstValue(v *graph.Var, value float64) bool {
	c, ok := uniformConst(v)
	return ok && c == value
}

// reshapeTo adapts a replacement to the shape of the variable it stands in
// for, broadcasting or leaving it alone as needed.
func reshapeTo(v *graph.Var, shape tensor.Shape) *graph.Var {
	if v.Shape().Equal(shape) {
		return v
	}
	return graph.BroadcastShape(v, shape)
}
