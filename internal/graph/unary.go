package graph

import (
	"github.com/glia-ml/glia/internal/tensor"
)

// NegOp is element-wise negation.
type NegOp struct{}

func (NegOp) Name() string { return "neg" }

func (NegOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, false)
}

func (NegOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Neg(in[0])
}

func (NegOp) Grad(_ []*Var, _, g *Var) []*Var { return []*Var{Neg(g)} }

// AbsOp is element-wise absolute value.
type AbsOp struct{}

func (AbsOp) Name() string { return "abs" }

func (AbsOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, false)
}

func (AbsOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Abs(in[0])
}

func (AbsOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{Mul(g, Sign(inputs[0]))}
}

// SignOp is the element-wise sign (-1, 0, 1).
type SignOp struct{}

func (SignOp) Name() string { return "sign" }

func (SignOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, false)
}

func (SignOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sign(in[0])
}

// Sign is piecewise constant; its gradient is zero everywhere it exists.
func (SignOp) Grad(inputs []*Var, _, g *Var) []*Var { return []*Var{nil} }

// ExpOp is the element-wise exponential.
type ExpOp struct{}

func (ExpOp) Name() string { return "exp" }

func (ExpOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (ExpOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Exp(in[0])
}

func (ExpOp) Grad(_ []*Var, out, g *Var) []*Var { return []*Var{Mul(g, out)} }

// LogOp is the element-wise natural logarithm.
type LogOp struct{}

func (LogOp) Name() string { return "log" }

func (LogOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (LogOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Log(in[0])
}

func (LogOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{Div(g, inputs[0])}
}

// Log1pOp computes log(1+x) accurately near zero.
type Log1pOp struct{}

func (Log1pOp) Name() string { return "log1p" }

func (Log1pOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (Log1pOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Log1p(in[0])
}

func (Log1pOp) Grad(inputs []*Var, _, g *Var) []*Var {
	x := inputs[0]
	return []*Var{Div(g, Add(ConstScalar(x.DType(), 1), x))}
}

// SqrtOp is the element-wise square root.
type SqrtOp struct{}

func (SqrtOp) Name() string { return "sqrt" }

func (SqrtOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (SqrtOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sqrt(in[0])
}

func (SqrtOp) Grad(_ []*Var, out, g *Var) []*Var {
	two := ConstScalar(out.DType(), 2)
	return []*Var{Div(g, Mul(two, out))}
}

// SqrOp is the element-wise square.
type SqrOp struct{}

func (SqrOp) Name() string { return "sqr" }

func (SqrOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, false)
}

func (SqrOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sqr(in[0])
}

func (SqrOp) Grad(inputs []*Var, _, g *Var) []*Var {
	two := ConstScalar(inputs[0].DType(), 2)
	return []*Var{Mul(g, Mul(two, inputs[0]))}
}

// SinOp is the element-wise sine.
type SinOp struct{}

func (SinOp) Name() string { return "sin" }

func (SinOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (SinOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sin(in[0])
}

func (SinOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{Mul(g, Cos(inputs[0]))}
}

// CosOp is the element-wise cosine.
type CosOp struct{}

func (CosOp) Name() string { return "cos" }

func (CosOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (CosOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Cos(in[0])
}

func (CosOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{Neg(Mul(g, Sin(inputs[0])))}
}

// TanhOp is the element-wise hyperbolic tangent.
type TanhOp struct{}

func (TanhOp) Name() string { return "tanh" }

func (TanhOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (TanhOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Tanh(in[0])
}

func (TanhOp) Grad(_ []*Var, out, g *Var) []*Var {
	// d tanh = 1 - tanh²
	one := ConstScalar(out.DType(), 1)
	return []*Var{Mul(g, Sub(one, Sqr(out)))}
}

// SigmoidOp is the element-wise logistic function.
type SigmoidOp struct{}

func (SigmoidOp) Name() string { return "sigmoid" }

func (SigmoidOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (SigmoidOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Sigmoid(in[0])
}

func (SigmoidOp) Grad(_ []*Var, out, g *Var) []*Var {
	// d σ = σ(1-σ)
	one := ConstScalar(out.DType(), 1)
	return []*Var{Mul(g, Mul(out, Sub(one, out)))}
}

// SoftplusOp computes log(1+e^x) without overflow.
type SoftplusOp struct{}

func (SoftplusOp) Name() string { return "softplus" }

func (SoftplusOp) Infer(inputs []*Var) (tensor.DataType, tensor.Shape, error) {
	return unaryInfer(inputs, true)
}

func (SoftplusOp) Eval(b tensor.Backend, in []*tensor.Tensor) *tensor.Tensor {
	return b.Softplus(in[0])
}

func (SoftplusOp) Grad(inputs []*Var, _, g *Var) []*Var {
	return []*Var{Mul(g, Sigmoid(inputs[0]))}
}

// Constructors.

// Neg builds -x.
func Neg(x *Var) *Var { return apply(NegOp{}, x) }

// Abs builds |x|.
func Abs(x *Var) *Var { return apply(AbsOp{}, x) }

// Sign builds sign(x).
func Sign(x *Var) *Var { return apply(SignOp{}, x) }

// Exp builds e^x.
func Exp(x *Var) *Var { return apply(ExpOp{}, x) }

// Log builds ln(x).
func Log(x *Var) *Var { return apply(LogOp{}, x) }

// Log1p builds log(1+x).
func Log1p(x *Var) *Var { return apply(Log1pOp{}, x) }

// Sqrt builds √x.
func Sqrt(x *Var) *Var { return apply(SqrtOp{}, x) }

// Sqr builds x².
func Sqr(x *Var) *Var { return apply(SqrOp{}, x) }

// Sin builds sin(x).
func Sin(x *Var) *Var { return apply(SinOp{}, x) }

// Cos builds cos(x).
func Cos(x *Var) *Var { return apply(CosOp{}, x) }

// Tanh builds tanh(x).
func Tanh(x *Var) *Var { return apply(TanhOp{}, x) }

// Sigmoid builds 1/(1+e^-x).
func Sigmoid(x *Var) *Var { return apply(SigmoidOp{}, x) }

// Softplus builds log(1+e^x).
func Softplus(x *Var) *Var { return apply(SoftplusOp{}, x) }

// Method-chaining forms.

// Neg builds -v.
func (v *Var) Neg() *Var { return Neg(v) }

// Exp builds e^v.
func (v *Var) Exp() *Var { return Exp(v) }

// Log builds ln(v).
func (v *Var) Log() *Var { return Log(v) }

// Sqrt builds √v.
func (v *Var) Sqrt() *Var { return Sqrt(v) }

// Sqr builds v².
func (v *Var) Sqr() *Var { return Sqr(v) }

// Tanh builds tanh(v).
func (v *Var) Tanh() *Var { return Tanh(v) }

// Sigmoid builds σ(v).
func (v *Var) Sigmoid() *Var { return Sigmoid(v) }

// Softplus builds softplus(v).
func (v *Var) Softplus() *Var { return Softplus(v) }
