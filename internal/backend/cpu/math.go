package cpu

import (
	"fmt"
	"math"

	"github.com/glia-ml/glia/internal/parallel"
	"github.com/glia-ml/glia/internal/tensor"
)

func unaryKernel[T tensor.DType](out, x *tensor.Tensor, f func(T) T, cfg parallel.Config) {
	xv, ov := tensor.Values[T](x), tensor.Values[T](out)
	parallel.Range(len(ov), func(start, end int) {
		for i := start; i < end; i++ {
			ov[i] = f(xv[i])
		}
	}, cfg)
}

// unary applies a float64 function element-wise, with float32 round-tripped
// through float64. Non-float dtypes panic unless ints is set.
func (c *Backend) unary(name string, x *tensor.Tensor, f func(float64) float64, ints func(int64) int64) *tensor.Tensor {
	out := tensor.MustNew(x.Shape(), x.DType(), c.device)
	switch x.DType() {
	case tensor.Float32:
		unaryKernel(out, x, func(v float32) float32 { return float32(f(float64(v))) }, c.par)
	case tensor.Float64:
		unaryKernel(out, x, f, c.par)
	case tensor.Int32:
		if ints == nil {
			panic(fmt.Sprintf("%s: unsupported dtype int32", name))
		}
		unaryKernel(out, x, func(v int32) int32 { return int32(ints(int64(v))) }, c.par)
	case tensor.Int64:
		if ints == nil {
			panic(fmt.Sprintf("%s: unsupported dtype int64", name))
		}
		unaryKernel(out, x, ints, c.par)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}

// Neg computes -x.
func (c *Backend) Neg(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("neg", x, func(v float64) float64 { return -v }, func(v int64) int64 { return -v })
}

// Abs computes |x|.
func (c *Backend) Abs(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("abs", x, math.Abs, func(v int64) int64 {
		if v < 0 {
			return -v
		}
		return v
	})
}

// Sign computes the sign of x (-1, 0, or 1).
func (c *Backend) Sign(x *tensor.Tensor) *tensor.Tensor {
	sign := func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	}
	return c.unary("sign", x, sign, func(v int64) int64 { return int64(sign(float64(v))) })
}

// Exp computes e^x.
func (c *Backend) Exp(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("exp", x, math.Exp, nil)
}

// Log computes the natural logarithm.
func (c *Backend) Log(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("log", x, math.Log, nil)
}

// Log1p computes log(1+x) accurately for x near zero.
func (c *Backend) Log1p(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("log1p", x, math.Log1p, nil)
}

// Sqrt computes the square root.
func (c *Backend) Sqrt(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("sqrt", x, math.Sqrt, nil)
}

// Sqr computes x².
func (c *Backend) Sqr(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("sqr", x, func(v float64) float64 { return v * v }, func(v int64) int64 { return v * v })
}

// Sin computes the sine.
func (c *Backend) Sin(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("sin", x, math.Sin, nil)
}

// Cos computes the cosine.
func (c *Backend) Cos(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("cos", x, math.Cos, nil)
}

// Tanh computes the hyperbolic tangent.
func (c *Backend) Tanh(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("tanh", x, math.Tanh, nil)
}

// Sigmoid computes 1/(1+e^-x) without overflow for large |x|.
func (c *Backend) Sigmoid(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("sigmoid", x, sigmoid64, nil)
}

func sigmoid64(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	// exp(v) underflows instead of exp(-v) overflowing.
	e := math.Exp(v)
	return e / (1 + e)
}

// Softplus computes log(1+e^x) without overflow for large |x|.
func (c *Backend) Softplus(x *tensor.Tensor) *tensor.Tensor {
	return c.unary("softplus", x, softplus64, nil)
}

func softplus64(v float64) float64 {
	// softplus(x) = max(x, 0) + log1p(exp(-|x|))
	return math.Max(v, 0) + math.Log1p(math.Exp(-math.Abs(v)))
}

// Cast converts the tensor to a different dtype.
func (c *Backend) Cast(x *tensor.Tensor, dtype tensor.DataType) *tensor.Tensor {
	if x.DType() == dtype {
		return x.Clone()
	}
	out := tensor.MustNew(x.Shape(), dtype, c.device)
	n := x.NumElements()

	read := readerFor(x)
	switch dtype {
	case tensor.Float32:
		ov := out.AsFloat32()
		for i := 0; i < n; i++ {
			ov[i] = float32(read(i))
		}
	case tensor.Float64:
		ov := out.AsFloat64()
		for i := 0; i < n; i++ {
			ov[i] = read(i)
		}
	case tensor.Int32:
		ov := out.AsInt32()
		for i := 0; i < n; i++ {
			ov[i] = int32(read(i))
		}
	case tensor.Int64:
		ov := out.AsInt64()
		for i := 0; i < n; i++ {
			ov[i] = int64(read(i))
		}
	case tensor.Bool:
		ov := out.AsBool()
		for i := 0; i < n; i++ {
			ov[i] = read(i) != 0
		}
	default:
		panic(fmt.Sprintf("cast: unsupported dtype %s", dtype))
	}
	return out
}

// readerFor returns an element reader converting any dtype to float64.
func readerFor(x *tensor.Tensor) func(int) float64 {
	switch x.DType() {
	case tensor.Float32:
		v := x.AsFloat32()
		return func(i int) float64 { return float64(v[i]) }
	case tensor.Float64:
		v := x.AsFloat64()
		return func(i int) float64 { return v[i] }
	case tensor.Int32:
		v := x.AsInt32()
		return func(i int) float64 { return float64(v[i]) }
	case tensor.Int64:
		v := x.AsInt64()
		return func(i int) float64 { return float64(v[i]) }
	case tensor.Bool:
		v := x.AsBool()
		return func(i int) float64 {
			if v[i] {
				return 1
			}
			return 0
		}
	default:
		panic(fmt.Sprintf("unsupported dtype %s", x.DType()))
	}
}
