package rewrite

import (
	"github.com/glia-ml/glia/internal/graph"
)

// StableLog1p rewrites log(1+x) to log1p(x), which stays accurate when x is
// tiny and 1+x rounds to 1.
type StableLog1p struct{}

func (StableLog1p) Name() string { return "stable_log1p" }

func (StableLog1p) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.LogOp](v)
	if !ok {
		return nil, false
	}
	_, ins, ok := opOf[graph.AddOp](outer[0])
	if !ok {
		return nil, false
	}
	if isConstValue(ins[0], 1) {
		return reshapeTo(graph.Log1p(ins[1]), v.Shape()), true
	}
	if isConstValue(ins[1], 1) {
		return reshapeTo(graph.Log1p(ins[0]), v.Shape()), true
	}
	return nil, false
}

// StableSigmoid rewrites 1/(1+exp(-x)) to sigmoid(x). The fused kernel does
// not overflow for large negative x the way the spelled-out form does.
type StableSigmoid struct{}

func (StableSigmoid) Name() string { return "stable_sigmoid" }

func (StableSigmoid) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, div, ok := opOf[graph.DivOp](v)
	if !ok || !isConstValue(div[0], 1) {
		return nil, false
	}
	_, add, ok := opOf[graph.AddOp](div[1])
	if !ok {
		return nil, false
	}
	expArm := add[1]
	if isConstValue(add[1], 1) {
		expArm = add[0]
	} else if !isConstValue(add[0], 1) {
		return nil, false
	}
	_, exp, ok := opOf[graph.ExpOp](expArm)
	if !ok {
		return nil, false
	}
	_, neg, ok := opOf[graph.NegOp](exp[0])
	if !ok {
		return nil, false
	}
	return reshapeTo(graph.Sigmoid(neg[0]), v.Shape()), true
}

// StableLogSigmoid rewrites log(sigmoid(x)) to -softplus(-x). The direct form
// underflows to log(0) for large negative x.
type StableLogSigmoid struct{}

func (StableLogSigmoid) Name() string { return "stable_log_sigmoid" }

func (StableLogSigmoid) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.LogOp](v)
	if !ok {
		return nil, false
	}
	_, inner, ok := opOf[graph.SigmoidOp](outer[0])
	if !ok {
		return nil, false
	}
	return graph.Neg(graph.Softplus(graph.Neg(inner[0]))), true
}

// StableLogSumExp rewrites log(sum(exp(x))) into the max-shifted form
// m + log(sum(exp(x-m))), which neither overflows for large x nor collapses
// to -inf for very negative x.
type StableLogSumExp struct{}

func (StableLogSumExp) Name() string { return "stable_logsumexp" }

func (StableLogSumExp) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.LogOp](v)
	if !ok {
		return nil, false
	}
	red := outer[0]

	if _, sum, ok := opOf[graph.SumOp](red); ok {
		if _, exp, ok := opOf[graph.ExpOp](sum[0]); ok && !maxShifted(exp[0]) {
			x := exp[0]
			m := graph.Max(x)
			shifted := graph.Sum(graph.Exp(graph.Sub(x, m)))
			return graph.Add(m, graph.Log(shifted)), true
		}
	}

	if op, sum, ok := opOf[graph.SumDimOp](red); ok {
		if _, exp, ok := opOf[graph.ExpOp](sum[0]); ok && !maxShifted(exp[0]) {
			x := exp[0]
			mKeep := graph.MaxDim(x, op.Dim, true)
			shifted := graph.SumDim(graph.Exp(graph.Sub(x, mKeep)), op.Dim, op.KeepDim)
			m := mKeep
			if !op.KeepDim {
				m = graph.Reshape(mKeep, v.Shape().Clone())
			}
			return graph.Add(m, graph.Log(shifted)), true
		}
	}
	return nil, false
}

// maxShifted reports whether x already has the form y - max(y), so the
// rewrite does not re-shift its own output.
func maxShifted(x *graph.Var) bool {
	_, sub, ok := opOf[graph.SubOp](x)
	if !ok {
		return false
	}
	if _, _, ok := opOf[graph.MaxOp](sub[1]); ok {
		return true
	}
	if _, _, ok := opOf[graph.MaxDimOp](sub[1]); ok {
		return true
	}
	return false
}
