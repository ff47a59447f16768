package graph

import (
	"fmt"

	"github.com/glia-ml/glia/internal/tensor"
)

// SumOp reduces all elements to a scalar.
type SumOp struct{}

func (SumOp) Name() string { return "sum" }

func (SumOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	return inputs[0].DType(), tensor.Shape{}, nil
}

func (SumOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sum(in[0])
}

func (SumOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{broadcastTo(g, inputs[0].Shape())}
}

// MaxOp reduces all elements to their maximum.
type MaxOp struct{}

func (MaxOp) Name() string { return "max" }

func (MaxOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	return inputs[0].DType(), tensor.Shape{}, nil
}

func (MaxOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Max(in[0])
}

func (MaxOp) Grad(inputs []*Var, out, g *Var) []*Var {
	x := inputs[0]
	// Gradient flows only to elements equal to the maximum.
	mask := Equal(x, broadcastTo(out, x.Shape()))
	zero := ConstScalar(g.DType(), 0)
	return []*Var{Switch(mask, broadcastTo(g, x.Shape()), zero)}
}

// dimReduceInfer checks a dimension reduction and returns its output shape.
func dimReduceInfer(inputs []*Var, dim int, keepDim bool) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	x := inputs[0]
	if dim < 0 || dim >= len(x.Shape()) {
		return 0, nil, fmt.Errorf("invalid dim %d for shape %v", dim, x.Shape())
	}
	out := make(tensor.Shape, 0, len(x.Shape()))
	for i, d := range x.Shape() {
		if i == dim {
			if keepDim {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, d)
	}
	return x.DType(), out, nil
}

// dimReduceGradShape re-expands a reduced gradient to the operand shape.
func dimReduceGrad(g *Var, in *Var, dim int, keepDim bool) *Var {
	if !keepDim {
		// Reinsert the reduced dimension as size 1 so broadcasting lines up.
		withDim := make(tensor.Shape, 0, len(in.Shape()))
		for i, d := range in.Shape() {
			if i == dim {
				withDim = append(withDim, 1)
				continue
			}
			withDim = append(withDim, d)
		}
		g = Reshape(g, withDim)
	}
	return broadcastTo(g, in.Shape())
}

// SumDimOp sums along one dimension.
type SumDimOp struct {
	Dim     int
	KeepDim bool
}

func (SumDimOp) Name() string { return "sumdim" }

func (op SumDimOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return dimReduceInfer(inputs, op.Dim, op.KeepDim)
}

func (op SumDimOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.SumDim(in[0], op.Dim, op.KeepDim)
}

func (op SumDimOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{dimReduceGrad(g, inputs[0], op.Dim, op.KeepDim)}
}

// MeanDimOp averages along one dimension.
type MeanDimOp struct {
	Dim     int
	KeepDim bool
}

func (MeanDimOp) Name() string { return "meandim" }

func (op MeanDimOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	dtype, shape, err := dimReduceInfer(inputs, op.Dim, op.KeepDim)
	if err != nil {
		return 0, nil, err
	}
	if !dtype.IsFloat() {
		return 0, nil, errNotFloat(dtype)
	}
	return dtype, shape, nil
}

func (op MeanDimOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.MeanDim(in[0], op.Dim, op.KeepDim)
}

func (op MeanDimOp) Grad(inputs []*Var, _, g *Var) []*Var {
	x := inputs[0]
	n := ConstScalar(x.DType(), float64(x.Shape()[op.Dim]))
	return []*Var{dimReduceGrad(Div(g, n), x, op.Dim, op.KeepDim)}
}

// MaxDimOp takes the maximum along one dimension.
type MaxDimOp struct {
	Dim     int
	KeepDim bool
}

func (MaxDimOp) Name() string { return "maxdim" }

func (op MaxDimOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return dimReduceInfer(inputs, op.Dim, op.KeepDim)
}

func (op MaxDimOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.MaxDim(in[0], op.Dim, op.KeepDim)
}

func (op MaxDimOp) Grad(inputs []*Var, out, g *Var) []*Var {
	x := inputs[0]
	expandedOut := dimReduceGrad(out, x, op.Dim, op.KeepDim)
	mask := Equal(x, expandedOut)
	zero := ConstScalar(g.DType(), 0)
	return []*Var{Switch(mask, dimReduceGrad(g, x, op.Dim, op.KeepDim), zero)}
}

// SoftmaxOp is the numerically stable softmax along one dimension.
type SoftmaxOp struct {
	Dim int
}

func (SoftmaxOp) Name() string { return "softmax" }

func (op SoftmaxOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	if len(inputs) != 1 {
		return 0, nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	x := inputs[0]
	if !x.DType().IsFloat() {
		return 0, nil, errNotFloat(x.DType())
	}
	if op.Dim < 0 || op.Dim >= len(x.Shape()) {
		return 0, nil, fmt.Errorf("invalid dim %d for shape %v", op.Dim, x.Shape())
	}
	return x.DType(), x.Shape().Clone(), nil
}

func (op SoftmaxOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Softmax(in[0], op.Dim)
}

func (op SoftmaxOp) Grad(_ []*Var, out, g *Var) []*Var {
	// dx = s * (g - Σ_dim(g*s))
	inner := apply(SumDimOp{Dim: op.Dim, KeepDim: true}, Mul(g, out))
	return []*Var{Mul(out, Sub(g, inner))}
}

// Constructors.

// Sum builds the total sum of x.
func Sum(x *Var) *Var { return apply(SumOp{}, x) }

// Max builds the total maximum of x.
func Max(x *Var) *Var { return apply(MaxOp{}, x) }

// SumDim builds a sum along dim.
func SumDim(x *Var, dim int, keepDim bool) *Var {
	return apply(SumDimOp{Dim: dim, KeepDim: keepDim}, x)
}

// MeanDim builds a mean along dim.
func MeanDim(x *Var, dim int, keepDim bool) *Var {
	return apply(MeanDimOp{Dim: dim, KeepDim: keepDim}, x)
}

// MaxDim builds a maximum along dim.
func MaxDim(x *Var, dim int, keepDim bool) *Var {
	return apply(MaxDimOp{Dim: dim, KeepDim: keepDim}, x)
}

// Mean builds the mean of all elements.
func Mean(x *Var) *Var {
	n := ConstScalar(x.DType(), float64(x.Shape().NumElements()))
	return Div(Sum(x), n)
}

// Softmax builds softmax along dim.
func Softmax(x *Var, dim int) *Var {
	return apply(SoftmaxOp{Dim: dim}, x)
}

// Sum builds the total sum of v.
func (v *Var) Sum() *Var { return Sum(v) }

// Mean builds the mean of all elements of v.
func (v *Var) Mean() *Var { return Mean(v) }

// SumDim builds a sum of v along dim.
func (v *Var) SumDim(dim int, keepDim bool) *Var { return SumDim(v, dim, keepDim) }

// Softmax builds softmax of v along dim.
func (v *Var) Softmax(dim int) *Var { return Softmax(v, dim) }
