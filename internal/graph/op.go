package graph

import (
	"fmt"

	"github.com/glia-ml/glia/internal/tensor"
)

// Op is a symbolic operation. Ops are stateless beyond their construction
// parameters; the same Op value may appear in many Apply nodes.
type Op interface {
	// Name returns a short identifier used in printed graphs and profiles.
	Name() string

	// Infer computes the output dtype and shape from the inputs, or an
	// error when the application is ill-typed.
	Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error)

	// Eval computes the op on concrete inputs through backend kernels.
	Eval(b tensor.Backend, inputs []*tensor.Tensor) *tensor.Tensor

	// Grad returns symbolic gradients for each input given the symbolic
	// gradient of the output. A nil entry means no gradient flows to that
	// input (non-differentiable or integer-typed).
	Grad(inputs []*Var, output, grad *Var) []*Var
}

// apply type-checks and records one op application, returning the output
// variable. Construction panics on type errors: expression building is
// programmer-driven, so a mismatch is a bug at the call site, mirroring how
// backend kernels treat shape mismatches.
func apply(op Op, inputs ...*Var) *Var {
	dtype, shape, err := op.Infer(inputs)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op.Name(), err))
	}
	out := &Var{dtype: dtype, shape: shape}
	out.owner = &Apply{op: op, inputs: inputs, out: out}
	return out
}

// NewApply re-applies an op to new inputs, re-running inference. Used by the
// rewrite engine when it rebuilds nodes.
func NewApply(op Op, inputs ...*Var) *Var {
	return apply(op, inputs...)
}

// elemwiseInfer implements Infer for element-wise binary ops: inputs must
// share a dtype and their shapes must broadcast.
func elemwiseInfer(name string, inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 2 {
		return 0, nil, fmt.Errorf("expected 2 inputs, got %d", len(inputs))
	}
	a, b := inputs[0], inputs[1]
	if a.DType() != b.DType() {
		return 0, nil, fmt.Errorf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType())
	}
	shape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return 0, nil, err
	}
	return a.DType(), shape, nil
}

// unaryInfer implements Infer for element-wise unary ops. When floatOnly is
// set, integer and bool inputs are rejected.
func unaryInfer(inputs []*Var, floatOnly bool) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	x := inputs[0]
	if floatOnly && !x.DType().IsFloat() {
		return 0, nil, fmt.Errorf("requires a float input, got %s", x.DType())
	}
	return x.DType(), x.Shape().Clone(), nil
}

func errNotFloat(dt tensor.DataType) error {
	return fmt.Errorf("requires a float input, got %s", dt)
}

// sumToShape reduces a gradient over broadcast dimensions so it matches the
// shape of the operand it flows to.
func sumToShape(g *Var, shape tensor.Shape) *Var {
	if g.Shape().Equal(shape) {
		return g
	}
	// Collapse extra leading dimensions introduced by broadcasting.
	for len(g.Shape()) > len(shape) {
		g = SumDim(g, 0, false)
	}
	// Sum dimensions the operand exposed as size 1.
	for i := range shape {
		if shape[i] == 1 && g.Shape()[i] != 1 {
			g = SumDim(g, i, true)
		}
	}
	return g
}

// broadcastTo expands v to shape, or returns it unchanged when it already has it.
func broadcastTo(v *Var, shape tensor.Shape) *Var {
	if v.Shape().Equal(shape) {
		return v
	}
	return BroadcastShape(v, shape)
}
