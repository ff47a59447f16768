package graph

import (
	"fmt"

	"github.com/glia-ml/glia/internal/tensor"
)

// SwitchOp is element-wise selection: switch(cond, a, b) takes a where cond
// holds, b elsewhere. The VM evaluates only the taken branch when the
// condition turns out uniform at run time.
type SwitchOp struct{}

func (SwitchOp) Name() string { return "switch" }

func (SwitchOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 3 {
		return 0, nil, fmt.Errorf("expected 3 inputs, got %d", len(inputs))
	}
	cond, a, b := inputs[0], inputs[1], inputs[2]
	if cond.DType() != tensor.Bool {
		return 0, nil, fmt.Errorf("condition dtype is %s, not bool", cond.DType())
	}
	if a.DType() != b.DType() {
		return 0, nil, fmt.Errorf("branch dtype mismatch: %s vs %s", a.DType(), b.DType())
	}
	ab, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return 0, nil, err
	}
	out, _, err := tensor.BroadcastShapes(cond.Shape(), ab)
	if err != nil {
		return 0, nil, err
	}
	return a.DType(), out, nil
}

func (SwitchOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Where(in[0], in[1], in[2])
}

func (SwitchOp) Grad(inputs []*Var, _, g *Var) []*Var {
	cond, a, b := inputs[0], inputs[1], inputs[2]
	zero := ConstScalar(g.DType(), 0)
	return []*Var{
		nil, // no gradient through the condition
		sumToShape(Switch(cond, g, zero), a.Shape()),
		sumToShape(Switch(cond, zero, g), b.Shape()),
	}
}

// cmpOp is the shared shape/type logic of the comparison ops.
func cmpInfer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 2 {
		return 0, nil, fmt.Errorf("expected 2 inputs, got %d", len(inputs))
	}
	a, b := inputs[0], inputs[1]
	if a.DType() != b.DType() {
		return 0, nil, fmt.Errorf("dtype mismatch: %s vs %s", a.DType(), b.DType())
	}
	shape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return 0, nil, err
	}
	return tensor.Bool, shape, nil
}

// GreaterOp computes a > b element-wise.
type GreaterOp struct{}

func (GreaterOp) Name() string { return "gt" }

func (GreaterOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return cmpInfer(inputs)
}

func (GreaterOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Greater(in[0], in[1])
}

func (GreaterOp) Grad(inputs []*Var, _, _ *Var) []*Var { return []*Var{nil, nil} }

// LowerOp computes a < b element-wise.
type LowerOp struct{}

func (LowerOp) Name() string { return "lt" }

func (LowerOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return cmpInfer(inputs)
}

func (LowerOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Lower(in[0], in[1])
}

func (LowerOp) Grad(inputs []*Var, _, _ *Var) []*Var { return []*Var{nil, nil} }

// EqualOp computes a == b element-wise.
type EqualOp struct{}

func (EqualOp) Name() string { return "eq" }

func (EqualOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return cmpInfer(inputs)
}

func (EqualOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Equal(in[0], in[1])
}

func (EqualOp) Grad(inputs []*Var, _, _ *Var) []*Var { return []*Var{nil, nil} }

// CastOp converts to another dtype.
type CastOp struct {
	To tensor.DataType
}

func (op CastOp) Name() string { return "cast" }

func (op CastOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	return op.To, inputs[0].Shape().Clone(), nil
}

func (op CastOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Cast(in[0], op.To)
}

// Casting is not differentiable in general; float-to-float casts pass the
// gradient through.
func (op CastOp) Grad(inputs []*Var, _, g *Var) []*Var {
	if op.To.IsFloat() && inputs[0].DType().IsFloat() {
		return []*Var{Cast(g, inputs[0].DType())}
	}
	return []*Var{nil}
}

// Constructors.

// Switch builds element-wise selection between a and b on cond.
func Switch(cond, a, b *Var) *Var { return apply(SwitchOp{}, cond, a, b) }

// Greater builds a > b.
func Greater(a, b *Var) *Var { return apply(GreaterOp{}, a, b) }

// Lower builds a < b.
func Lower(a, b *Var) *Var { return apply(LowerOp{}, a, b) }

// Equal builds a == b.
func Equal(a, b *Var) *Var { return apply(EqualOp{}, a, b) }

// Cast builds a dtype conversion.
func Cast(x *Var, to tensor.DataType) *Var { return apply(CastOp{To: to}, x) }
