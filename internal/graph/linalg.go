package graph

import (
	"fmt"

	"github.com/glia-ml/glia/internal/tensor"
)

// MatMulOp is 2-D matrix multiplication.
type MatMulOp struct{}

func (MatMulOp) Name() string { return "matmul" }

func (MatMulOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 2 {
		return 0, nil, fmt.Errorf("expected 2 inputs, got %d", len(inputs))
	}
	a, b := inputs[0], inputs[1]
	if a.DType() != b.DType() {
		return 0, nil, fmt.Errorf("dtype mismatch: %s vs %s", a.DType(), b.DType())
	}
	if !a.DType().IsFloat() {
		return 0, nil, errNotFloat(a.DType())
	}
	if len(a.Shape()) != 2 || len(b.Shape()) != 2 {
		return 0, nil, fmt.Errorf("requires 2D operands, got %v and %v", a.Shape(), b.Shape())
	}
	if a.Shape()[1] != b.Shape()[0] {
		return 0, nil, fmt.Errorf("inner dimensions differ: %v @ %v", a.Shape(), b.Shape())
	}
	return a.DType(), tensor.Shape{a.Shape()[0], b.Shape()[1]}, nil
}

func (MatMulOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.MatMul(in[0], in[1])
}

func (MatMulOp) Grad(inputs []*Var, _, g *Var) []*Var {
	a, c := inputs[0], inputs[1]
	// d(A@B)/dA = G @ Bᵀ, d(A@B)/dB = Aᵀ @ G
	return []*Var{
		MatMul(g, Transpose(c)),
		MatMul(Transpose(a), g),
	}
}

// TransposeOp permutes dimensions. Empty Axes reverses all dimensions.
type TransposeOp struct {
	Axes []int
}

func (TransposeOp) Name() string { return "transpose" }

func (op TransposeOp) axesFor(ndim int) []int {
	if len(op.Axes) > 0 {
		return op.Axes
	}
	axes := make([]int, ndim)
	for i := range axes {
		axes[i] = ndim - 1 - i
	}
	return axes
}

func (op TransposeOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	x := inputs[0]
	ndim := len(x.Shape())
	axes := op.axesFor(ndim)
	if len(axes) != ndim {
		return 0, nil, fmt.Errorf("axes length %d != ndim %d", len(axes), ndim)
	}
	seen := make([]bool, ndim)
	shape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			return 0, nil, fmt.Errorf("invalid axes %v for %dD input", axes, ndim)
		}
		seen[ax] = true
		shape[i] = x.Shape()[ax]
	}
	return x.DType(), shape, nil
}

func (op TransposeOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Transpose(in[0], op.Axes...)
}

func (op TransposeOp) Grad(inputs []*Var, _, g *Var) []*Var {
	axes := op.axesFor(len(inputs[0].Shape()))
	inverse := make([]int, len(axes))
	for i, ax := range axes {
		inverse[ax] = i
	}
	return []*Var{apply(TransposeOp{Axes: inverse}, g)}
}

// ReshapeOp changes the shape, preserving element count and order.
type ReshapeOp struct {
	Shape tensor.Shape
}

func (ReshapeOp) Name() string { return "reshape" }

func (op ReshapeOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	x := inputs[0]
	if err := op.Shape.Validate(); err != nil {
		return 0, nil, err
	}
	if x.Shape().NumElements() != op.Shape.NumElements() {
		return 0, nil, fmt.Errorf("cannot reshape %v to %v (different number of elements)", x.Shape(), op.Shape)
	}
	return x.DType(), op.Shape.Clone(), nil
}

func (op ReshapeOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Reshape(in[0], op.Shape)
}

func (op ReshapeOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{apply(ReshapeOp{Shape: inputs[0].Shape().Clone()}, g)}
}

// BroadcastOp expands an operand to a larger shape following broadcast rules.
// Appears mostly in gradient graphs (the adjoint of reductions).
type BroadcastOp struct {
	Shape tensor.Shape
}

func (BroadcastOp) Name() string { return "broadcast" }

func (op BroadcastOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	x := inputs[0]
	out, _, err := tensor.BroadcastShapes(x.Shape(), op.Shape)
	if err != nil {
		return 0, nil, err
	}
	if !out.Equal(op.Shape) {
		return 0, nil, fmt.Errorf("cannot broadcast %v to %v", x.Shape(), op.Shape)
	}
	return x.DType(), op.Shape.Clone(), nil
}

func (op BroadcastOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Broadcast(in[0], op.Shape)
}

func (op BroadcastOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{sumToShape(g, inputs[0].Shape())}
}

// Constructors.

// MatMul builds a @ b for 2-D operands.
func MatMul(a, b *Var) *Var { return apply(MatMulOp{}, a, b) }

// Transpose builds a dimension permutation; no axes reverses all dimensions.
func Transpose(x *Var, axes ...int) *Var {
	return apply(TransposeOp{Axes: axes}, x)
}

// Reshape builds a reshape to the given shape.
func Reshape(x *Var, shape tensor.Shape) *Var {
	return apply(ReshapeOp{Shape: shape}, x)
}

// BroadcastShape builds an expansion of x to shape.
func BroadcastShape(x *Var, shape tensor.Shape) *Var {
	return apply(BroadcastOp{Shape: shape}, x)
}

// MatMul builds v @ o.
func (v *Var) MatMul(o *Var) *Var { return MatMul(v, o) }

// T builds the transpose of v.
func (v *Var) T() *Var { return Transpose(v) }

// Reshape builds a reshape of v.
func (v *Var) Reshape(shape tensor.Shape) *Var { return Reshape(v, shape) }
