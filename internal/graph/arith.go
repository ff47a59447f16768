package graph

import (
	"github.com/glia-ml/glia/internal/tensor"
)

// AddOp is element-wise addition with broadcasting.
type AddOp struct{}

func (AddOp) Name() string { return "add" }

func (AddOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return elemwiseInfer("add", inputs)
}

func (AddOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Add(in[0], in[1])
}

func (AddOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{
		sumToShape(g, inputs[0].Shape()),
		sumToShape(g, inputs[1].Shape()),
	}
}

// SubOp is element-wise subtraction with broadcasting.
type SubOp struct{}

func (SubOp) Name() string { return "sub" }

func (SubOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return elemwiseInfer("sub", inputs)
}

func (SubOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sub(in[0], in[1])
}

func (SubOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{
		sumToShape(g, inputs[0].Shape()),
		sumToShape(Neg(g), inputs[1].Shape()),
	}
}

// MulOp is element-wise multiplication with broadcasting.
type MulOp struct{}

func (MulOp) Name() string { return "mul" }

func (MulOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return elemwiseInfer("mul", inputs)
}

func (MulOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Mul(in[0], in[1])
}

func (MulOp) Grad(inputs []*Var, _, g *Var) []*Var {
	a, c := inputs[0], inputs[1]
	return []*Var{
		sumToShape(Mul(g, c), a.Shape()),
		sumToShape(Mul(g, a), c.Shape()),
	}
}

// DivOp is element-wise division with broadcasting.
type DivOp struct{}

func (DivOp) Name() string { return "div" }

func (DivOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return elemwiseInfer("div", inputs)
}

func (DivOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Div(in[0], in[1])
}

func (DivOp) Grad(inputs []*Var, out, g *Var) []*Var {
	a, c := inputs[0], inputs[1]
	// d(a/c)/da = 1/c, d(a/c)/dc = -a/c² = -out/c
	return []*Var{
		sumToShape(Div(g, c), a.Shape()),
		sumToShape(Neg(Div(Mul(g, out), c)), c.Shape()),
	}
}

// PowOp is element-wise exponentiation with broadcasting. Floats only.
type PowOp struct{}

func (PowOp) Name() string { return "pow" }

func (PowOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	dtype, shape, err := elemwiseInfer("pow", inputs)
	if err != nil {
		return 0, nil, err
	}
	if !dtype.IsFloat() {
		return 0, nil, errNotFloat(dtype)
	}
	return dtype, shape, nil
}

func (PowOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Pow(in[0], in[1])
}

func (PowOp) Grad(inputs []*Var, out, g *Var) []*Var {
	a, c := inputs[0], inputs[1]
	// d(a^c)/da = c*a^(c-1), d(a^c)/dc = a^c * log(a)
	one := ConstScalar(a.DType(), 1)
	return []*Var{
		sumToShape(Mul(g, Mul(c, Pow(a, Sub(c, one)))), a.Shape()),
		sumToShape(Mul(g, Mul(out, Log(a))), c.Shape()),
	}
}

// MaximumOp is element-wise maximum with broadcasting.
type MaximumOp struct{}

func (MaximumOp) Name() string { return "maximum" }

func (MaximumOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return elemwiseInfer("maximum", inputs)
}

func (MaximumOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Maximum(in[0], in[1])
}

func (MaximumOp) Grad(inputs []*Var, _, g *Var) []*Var {
	a, c := inputs[0], inputs[1]
	// Gradient follows the winning side; ties go to the second input.
	mask := Greater(a, c)
	zero := ConstScalar(g.DType(), 0)
	return []*Var{
		sumToShape(Switch(mask, g, zero), a.Shape()),
		sumToShape(Switch(mask, zero, g), c.Shape()),
	}
}

// MinimumOp is element-wise minimum with broadcasting.
type MinimumOp struct{}

func (MinimumOp) Name() string { return "minimum" }

func (MinimumOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return elemwiseInfer("minimum", inputs)
}

func (MinimumOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Minimum(in[0], in[1])
}

func (MinimumOp) Grad(inputs []*Var, _, g *Var) []*Var {
	a, c := inputs[0], inputs[1]
	mask := Lower(a, c)
	zero := ConstScalar(g.DType(), 0)
	return []*Var{
		sumToShape(Switch(mask, g, zero), a.Shape()),
		sumToShape(Switch(mask, zero, g), c.Shape()),
	}
}

// Constructors.

// Add builds a + b.
func Add(a, b *Var) *Var { return apply(AddOp{}, a, b) }

// Sub builds a - b.
func Sub(a, b *Var) *Var { return apply(SubOp{}, a, b) }

// Mul builds a * b.
func Mul(a, b *Var) *Var { return apply(MulOp{}, a, b) }

// Div builds a / b.
func Div(a, b *Var) *Var { return apply(DivOp{}, a, b) }

// Pow builds a ^ b.
func Pow(a, b *Var) *Var { return apply(PowOp{}, a, b) }

// Maximum builds max(a, b).
func Maximum(a, b *Var) *Var { return apply(MaximumOp{}, a, b) }

// Minimum builds min(a, b).
func Minimum(a, b *Var) *Var { return apply(MinimumOp{}, a, b) }

// Method-chaining forms.

// Add builds v + o.
func (v *Var) Add(o *Var) *Var { return Add(v, o) }

// Sub builds v - o.
func (v *Var) Sub(o *Var) *Var { return Sub(v, o) }

// Mul builds v * o.
func (v *Var) Mul(o *Var) *Var { return Mul(v, o) }

// Div builds v / o.
func (v *Var) Div(o *Var) *Var { return Div(v, o) }

// Pow builds v ^ o.
func (v *Var) Pow(o *Var) *Var { return Pow(v, o) }
