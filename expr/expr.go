// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr provides the public API for building symbolic tensor
// expressions.
//
// Expressions are graphs of variables: free inputs, constants, shared
// variables and op applications. Nothing is computed at construction; the
// function package compiles a graph into a callable.
//
//	a := expr.Scalar("a", tensor.Float64)
//	b := expr.Scalar("b", tensor.Float64)
//	c := a.Add(b)
//
//	f := function.MustCompile(
//		function.Inputs(a, b),
//		function.Outputs(c),
//	)
//	out, _ := f.Call(tensor.Scalar(1.5), tensor.Scalar(2.5))
//	// tensor.Item[float64](out[0]) == 4.0
//
// Gradients are symbolic too: Grad returns new expressions that can be
// compiled alongside (or instead of) the cost.
package expr

import (
	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// Var is a node in a symbolic expression graph.
type Var = graph.Var

// Apply records one op application inside a graph.
type Apply = graph.Apply

// Op is a symbolic operation.
type Op = graph.Op

// Shared is a persistent storage cell usable in expressions. Its value
// survives across calls and can be updated by compiled functions.
type Shared = graph.Shared

// Update pairs a shared cell with the expression that replaces its value
// after each call.
type Update = graph.Update

// Variable constructors.

// NewVar creates a free input variable with the given dtype and static shape.
func NewVar(name string, dtype tensor.DataType, shape tensor.Shape) *Var {
	return graph.NewVar(name, dtype, shape)
}

// Scalar creates a 0-D input variable.
func Scalar(name string, dtype tensor.DataType) *Var { return graph.Scalar(name, dtype) }

// Vector creates a 1-D input variable.
func Vector(name string, dtype tensor.DataType, n int) *Var {
	return graph.Vector(name, dtype, n)
}

// Matrix creates a 2-D input variable.
func Matrix(name string, dtype tensor.DataType, rows, cols int) *Var {
	return graph.Matrix(name, dtype, rows, cols)
}

// Const creates a constant from a concrete tensor.
func Const(t *tensor.Tensor) *Var { return graph.Const(t) }

// ConstScalar creates a 0-D constant with the given value converted to dtype.
func ConstScalar(dtype tensor.DataType, v float64) *Var { return graph.ConstScalar(dtype, v) }

// NewShared creates a shared variable holding the given initial value.
func NewShared(name string, value *tensor.Tensor) *Shared { return graph.NewShared(name, value) }

// Arithmetic.

// Add builds a+b with broadcasting.
func Add(a, b *Var) *Var { return graph.Add(a, b) }

// Sub builds a-b with broadcasting.
func Sub(a, b *Var) *Var { return graph.Sub(a, b) }

// Mul builds element-wise a*b with broadcasting.
func Mul(a, b *Var) *Var { return graph.Mul(a, b) }

// Div builds element-wise a/b with broadcasting.
func Div(a, b *Var) *Var { return graph.Div(a, b) }

// Pow builds element-wise a^b.
func Pow(a, b *Var) *Var { return graph.Pow(a, b) }

// Maximum builds the element-wise maximum of a and b.
func Maximum(a, b *Var) *Var { return graph.Maximum(a, b) }

// Minimum builds the element-wise minimum of a and b.
func Minimum(a, b *Var) *Var { return graph.Minimum(a, b) }

// Element-wise functions.

// Neg builds -x.
func Neg(x *Var) *Var { return graph.Neg(x) }

// Abs builds |x|.
func Abs(x *Var) *Var { return graph.Abs(x) }

// Sign builds sign(x).
func Sign(x *Var) *Var { return graph.Sign(x) }

// Exp builds e^x.
func Exp(x *Var) *Var { return graph.Exp(x) }

// Log builds ln(x).
func Log(x *Var) *Var { return graph.Log(x) }

// Log1p builds log(1+x), accurate near zero.
func Log1p(x *Var) *Var { return graph.Log1p(x) }

// Sqrt builds √x.
func Sqrt(x *Var) *Var { return graph.Sqrt(x) }

// Sqr builds x².
func Sqr(x *Var) *Var { return graph.Sqr(x) }

// Sin builds sin(x).
func Sin(x *Var) *Var { return graph.Sin(x) }

// Cos builds cos(x).
func Cos(x *Var) *Var { return graph.Cos(x) }

// Tanh builds tanh(x).
func Tanh(x *Var) *Var { return graph.Tanh(x) }

// Sigmoid builds the logistic function 1/(1+e^-x).
func Sigmoid(x *Var) *Var { return graph.Sigmoid(x) }

// Softplus builds log(1+e^x) without overflow.
func Softplus(x *Var) *Var { return graph.Softplus(x) }

// Linear algebra and shape.

// MatMul builds a @ b for 2-D operands.
func MatMul(a, b *Var) *Var { return graph.MatMul(a, b) }

// Transpose builds a dimension permutation; no axes reverses all dimensions.
func Transpose(x *Var, axes ...int) *Var { return graph.Transpose(x, axes...) }

// Reshape builds a reshape to the given shape.
func Reshape(x *Var, shape tensor.Shape) *Var { return graph.Reshape(x, shape) }

// Broadcast builds an expansion of x to shape.
func Broadcast(x *Var, shape tensor.Shape) *Var { return graph.BroadcastShape(x, shape) }

// Reductions.

// Sum builds the total sum of x.
func Sum(x *Var) *Var { return graph.Sum(x) }

// Mean builds the mean of all elements of x.
func Mean(x *Var) *Var { return graph.Mean(x) }

// Max builds the total maximum of x.
func Max(x *Var) *Var { return graph.Max(x) }

// SumDim builds a sum along dim.
func SumDim(x *Var, dim int, keepDim bool) *Var { return graph.SumDim(x, dim, keepDim) }

// MeanDim builds a mean along dim.
func MeanDim(x *Var, dim int, keepDim bool) *Var { return graph.MeanDim(x, dim, keepDim) }

// MaxDim builds a maximum along dim.
func MaxDim(x *Var, dim int, keepDim bool) *Var { return graph.MaxDim(x, dim, keepDim) }

// Softmax builds the numerically stable softmax along dim.
func Softmax(x *Var, dim int) *Var { return graph.Softmax(x, dim) }

// Selection and comparison.

// Switch builds element-wise selection: a where cond holds, b elsewhere.
// When the condition turns out uniform at run time, only the taken branch is
// evaluated.
func Switch(cond, a, b *Var) *Var { return graph.Switch(cond, a, b) }

// Greater builds a > b with a bool result.
func Greater(a, b *Var) *Var { return graph.Greater(a, b) }

// Lower builds a < b with a bool result.
func Lower(a, b *Var) *Var { return graph.Lower(a, b) }

// Equal builds a == b with a bool result.
func Equal(a, b *Var) *Var { return graph.Equal(a, b) }

// Cast builds a conversion to another dtype.
func Cast(x *Var, to tensor.DataType) *Var { return graph.Cast(x, to) }

// Differentiation and debugging.

// Grad differentiates a scalar cost with respect to each wrt variable,
// returning one symbolic gradient per variable.
func Grad(cost *Var, wrt ...*Var) ([]*Var, error) { return graph.Grad(cost, wrt...) }

// MustGrad is Grad but panics on error.
func MustGrad(cost *Var, wrt ...*Var) []*Var { return graph.MustGrad(cost, wrt...) }

// Sprint renders the graph feeding the outputs as a readable listing.
func Sprint(outputs ...*Var) string { return graph.Sprint(outputs...) }
