package rewrite

import (
	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// AddZero simplifies x+0 and 0+x to x, and x-0 to x.
type AddZero struct{}

func (AddZero) Name() string { return "add_zero" }

func (AddZero) Rewrite(v *graph.Var) (*graph.Var, bool) {
	if _, ins, ok := opOf[graph.AddOp](v); ok {
		if isConstValue(ins[1], 0) {
			return reshapeTo(ins[0], v.Shape()), true
		}
		if isConstValue(ins[0], 0) {
			return reshapeTo(ins[1], v.Shape()), true
		}
	}
	if _, ins, ok := opOf[graph.SubOp](v); ok && isConstValue(ins[1], 0) {
		return reshapeTo(ins[0], v.Shape()), true
	}
	return nil, false
}

// MulOne simplifies x*1 and 1*x to x.
type MulOne struct{}

func (MulOne) Name() string { return "mul_one" }

func (MulOne) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, ins, ok := opOf[graph.MulOp](v)
	if !ok {
		return nil, false
	}
	if isConstValue(ins[1], 1) {
		return reshapeTo(ins[0], v.Shape()), true
	}
	if isConstValue(ins[0], 1) {
		return reshapeTo(ins[1], v.Shape()), true
	}
	return nil, false
}

// MulZero simplifies x*0 to a zero constant.
type MulZero struct{}

func (MulZero) Name() string { return "mul_zero" }

func (MulZero) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, ins, ok := opOf[graph.MulOp](v)
	if !ok {
		return nil, false
	}
	if isConstValue(ins[0], 0) || isConstValue(ins[1], 0) {
		return graph.Const(tensor.Zeros(v.Shape(), v.DType())), true
	}
	return nil, false
}

// MulConst collapses nested constant multiplies: (x*c1)*c2 becomes x*(c1*c2),
// in any operand order.
type MulConst struct{}

func (MulConst) Name() string { return "mul_const" }

func (MulConst) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.MulOp](v)
	if !ok {
		return nil, false
	}
	rest, c2, ok := constOperand(outer)
	if !ok {
		return nil, false
	}
	_, inner, ok := opOf[graph.MulOp](rest)
	if !ok {
		return nil, false
	}
	x, c1, ok := constOperand(inner)
	if !ok {
		return nil, false
	}
	folded := graph.Mul(x, graph.ConstScalar(x.DType(), c1*c2))
	return reshapeTo(folded, v.Shape()), true
}

// constOperand splits a binary op's inputs into the uniform-constant operand's
// value and the other operand.
func constOperand(ins []*graph.Var) (other *graph.Var, c float64, ok bool) {
	if v, ok := uniformConst(ins[1]); ok {
		return ins[0], v, true
	}
	if v, ok := uniformConst(ins[0]); ok {
		return ins[1], v, true
	}
	return nil, 0, false
}

// SubSelf simplifies x-x to a zero constant.
type SubSelf struct{}

func (SubSelf) Name() string { return "sub_self" }

func (SubSelf) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, ins, ok := opOf[graph.SubOp](v)
	if !ok || ins[0] != ins[1] {
		return nil, false
	}
	return graph.Const(tensor.Zeros(v.Shape(), v.DType())), true
}

// DivOne simplifies x/1 to x.
type DivOne struct{}

func (DivOne) Name() string { return "div_one" }

func (DivOne) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, ins, ok := opOf[graph.DivOp](v)
	if !ok || !isConstValue(ins[1], 1) {
		return nil, false
	}
	return reshapeTo(ins[0], v.Shape()), true
}

// NegNeg simplifies neg(neg(x)) to x.
type NegNeg struct{}

func (NegNeg) Name() string { return "neg_neg" }

func (NegNeg) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.NegOp](v)
	if !ok {
		return nil, false
	}
	_, inner, ok := opOf[graph.NegOp](outer[0])
	if !ok {
		return nil, false
	}
	return inner[0], true
}

// PowConst simplifies x^1 to x and x^0 to ones.
type PowConst struct{}

func (PowConst) Name() string { return "pow_const" }

func (PowConst) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, ins, ok := opOf[graph.PowOp](v)
	if !ok {
		return nil, false
	}
	if isConstValue(ins[1], 1) {
		return reshapeTo(ins[0], v.Shape()), true
	}
	if isConstValue(ins[1], 0) {
		return graph.Const(tensor.Ones(v.Shape(), v.DType())), true
	}
	if isConstValue(ins[1], 2) {
		return reshapeTo(graph.Sqr(ins[0]), v.Shape()), true
	}
	return nil, false
}

// LogExp simplifies log(exp(x)) to x.
type LogExp struct{}

func (LogExp) Name() string { return "log_exp" }

func (LogExp) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.LogOp](v)
	if !ok {
		return nil, false
	}
	_, inner, ok := opOf[graph.ExpOp](outer[0])
	if !ok {
		return nil, false
	}
	return inner[0], true
}

// ExpLog simplifies exp(log(x)) to x. Valid on the log's domain; where x is
// not positive the original expression is already NaN.
type ExpLog struct{}

func (ExpLog) Name() string { return "exp_log" }

func (ExpLog) Rewrite(v *graph.Var) (*graph.Var, bool) {
	_, outer, ok := opOf[graph.ExpOp](v)
	if !ok {
		return nil, false
	}
	_, inner, ok := opOf[graph.LogOp](outer[0])
	if !ok {
		return nil, false
	}
	return inner[0], true
}
