package cpu

import (
	"fmt"
	"math"

	"github.com/glia-ml/glia/internal/parallel"
	"github.com/glia-ml/glia/internal/tensor"
)

// binKernel applies f element-wise over a and b into out, honoring NumPy
// broadcasting. Same-shape inputs take the contiguous fast path.
func binKernel[T tensor.DType](out, a, b *tensor.Tensor, f func(T, T) T, cfg parallel.Config) {
	av, bv, ov := tensor.Values[T](a), tensor.Values[T](b), tensor.Values[T](out)
	if a.Shape().Equal(b.Shape()) {
		parallel.Range(len(ov), func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f(av[i], bv[i])
			}
		}, cfg)
		return
	}

	outStrides := out.Shape().ComputeStrides()
	aStr := tensor.BroadcastStrides(a.Shape(), a.Strides(), out.Shape())
	bStr := tensor.BroadcastStrides(b.Shape(), b.Strides(), out.Shape())
	parallel.Range(len(ov), func(start, end int) {
		for i := start; i < end; i++ {
			ov[i] = f(av[flatOffset(i, outStrides, aStr)], bv[flatOffset(i, outStrides, bStr)])
		}
	}, cfg)
}

// binInplace applies f into a when shapes match exactly.
func binInplace[T tensor.DType](a, b *tensor.Tensor, f func(T, T) T, cfg parallel.Config) {
	av, bv := tensor.Values[T](a), tensor.Values[T](b)
	parallel.Range(len(av), func(start, end int) {
		for i := start; i < end; i++ {
			av[i] = f(av[i], bv[i])
		}
	}, cfg)
}

// binFns carries the per-dtype implementations of one binary op.
// A nil entry means the op does not support that dtype.
type binFns struct {
	f32 func(float32, float32) float32
	f64 func(float64, float64) float64
	i32 func(int32, int32) int32
	i64 func(int64, int64) int64
}

func (c *Backend) binary(name string, a, b *tensor.Tensor, fns binFns) *tensor.Tensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	// Inplace fast path: same shapes and a owns its buffer exclusively.
	inplace := a.Shape().Equal(b.Shape()) && a.IsUnique()

	run := func(doInplace func(), doOut func(out *tensor.Tensor)) *tensor.Tensor {
		if inplace {
			doInplace()
			return a
		}
		out := tensor.MustNew(outShape, a.DType(), c.device)
		doOut(out)
		return out
	}

	switch a.DType() {
	case tensor.Float32:
		if fns.f32 == nil {
			panic(fmt.Sprintf("%s: unsupported dtype float32", name))
		}
		return run(
			func() { binInplace(a, b, fns.f32, c.par) },
			func(out *tensor.Tensor) { binKernel(out, a, b, fns.f32, c.par) },
		)
	case tensor.Float64:
		if fns.f64 == nil {
			panic(fmt.Sprintf("%s: unsupported dtype float64", name))
		}
		return run(
			func() { binInplace(a, b, fns.f64, c.par) },
			func(out *tensor.Tensor) { binKernel(out, a, b, fns.f64, c.par) },
		)
	case tensor.Int32:
		if fns.i32 == nil {
			panic(fmt.Sprintf("%s: unsupported dtype int32", name))
		}
		return run(
			func() { binInplace(a, b, fns.i32, c.par) },
			func(out *tensor.Tensor) { binKernel(out, a, b, fns.i32, c.par) },
		)
	case tensor.Int64:
		if fns.i64 == nil {
			panic(fmt.Sprintf("%s: unsupported dtype int64", name))
		}
		return run(
			func() { binInplace(a, b, fns.i64, c.par) },
			func(out *tensor.Tensor) { binKernel(out, a, b, fns.i64, c.par) },
		)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
}

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("add", a, b, binFns{
		f32: func(x, y float32) float32 { return x + y },
		f64: func(x, y float64) float64 { return x + y },
		i32: func(x, y int32) int32 { return x + y },
		i64: func(x, y int64) int64 { return x + y },
	})
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("sub", a, b, binFns{
		f32: func(x, y float32) float32 { return x - y },
		f64: func(x, y float64) float64 { return x - y },
		i32: func(x, y int32) int32 { return x - y },
		i64: func(x, y int64) int64 { return x - y },
	})
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("mul", a, b, binFns{
		f32: func(x, y float32) float32 { return x * y },
		f64: func(x, y float64) float64 { return x * y },
		i32: func(x, y int32) int32 { return x * y },
		i64: func(x, y int64) int64 { return x * y },
	})
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("div", a, b, binFns{
		f32: func(x, y float32) float32 { return x / y },
		f64: func(x, y float64) float64 { return x / y },
		i32: func(x, y int32) int32 { return x / y },
		i64: func(x, y int64) int64 { return x / y },
	})
}

// Pow performs element-wise exponentiation with broadcasting. Floats only.
func (c *Backend) Pow(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("pow", a, b, binFns{
		f32: func(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) },
		f64: math.Pow,
	})
}

// Maximum performs element-wise maximum with broadcasting.
func (c *Backend) Maximum(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("maximum", a, b, binFns{
		f32: func(x, y float32) float32 { return max(x, y) },
		f64: func(x, y float64) float64 { return max(x, y) },
		i32: func(x, y int32) int32 { return max(x, y) },
		i64: func(x, y int64) int64 { return max(x, y) },
	})
}

// Minimum performs element-wise minimum with broadcasting.
func (c *Backend) Minimum(a, b *tensor.Tensor) *tensor.Tensor {
	return c.binary("minimum", a, b, binFns{
		f32: func(x, y float32) float32 { return min(x, y) },
		f64: func(x, y float64) float64 { return min(x, y) },
		i32: func(x, y int32) int32 { return min(x, y) },
		i64: func(x, y int64) int64 { return min(x, y) },
	})
}

// cmpKernel evaluates pred element-wise into a bool tensor with broadcasting.
func cmpKernel[T tensor.DType](out, a, b *tensor.Tensor, pred func(T, T) bool, cfg parallel.Config) {
	av, bv := tensor.Values[T](a), tensor.Values[T](b)
	ov := out.AsBool()
	if a.Shape().Equal(b.Shape()) {
		parallel.Range(len(ov), func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = pred(av[i], bv[i])
			}
		}, cfg)
		return
	}
	outStrides := out.Shape().ComputeStrides()
	aStr := tensor.BroadcastStrides(a.Shape(), a.Strides(), out.Shape())
	bStr := tensor.BroadcastStrides(b.Shape(), b.Strides(), out.Shape())
	parallel.Range(len(ov), func(start, end int) {
		for i := start; i < end; i++ {
			ov[i] = pred(av[flatOffset(i, outStrides, aStr)], bv[flatOffset(i, outStrides, bStr)])
		}
	}, cfg)
}

func (c *Backend) compare(name string, a, b *tensor.Tensor,
	p32 func(float32, float32) bool, p64 func(float64, float64) bool,
	pi32 func(int32, int32) bool, pi64 func(int64, int64) bool) *tensor.Tensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	out := tensor.MustNew(outShape, tensor.Bool, c.device)
	switch a.DType() {
	case tensor.Float32:
		cmpKernel(out, a, b, p32, c.par)
	case tensor.Float64:
		cmpKernel(out, a, b, p64, c.par)
	case tensor.Int32:
		cmpKernel(out, a, b, pi32, c.par)
	case tensor.Int64:
		cmpKernel(out, a, b, pi64, c.par)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return out
}

// Greater computes a > b element-wise.
func (c *Backend) Greater(a, b *tensor.Tensor) *tensor.Tensor {
	return c.compare("greater", a, b,
		func(x, y float32) bool { return x > y },
		func(x, y float64) bool { return x > y },
		func(x, y int32) bool { return x > y },
		func(x, y int64) bool { return x > y })
}

// Lower computes a < b element-wise.
func (c *Backend) Lower(a, b *tensor.Tensor) *tensor.Tensor {
	return c.compare("lower", a, b,
		func(x, y float32) bool { return x < y },
		func(x, y float64) bool { return x < y },
		func(x, y int32) bool { return x < y },
		func(x, y int64) bool { return x < y })
}

// Equal computes a == b element-wise.
func (c *Backend) Equal(a, b *tensor.Tensor) *tensor.Tensor {
	return c.compare("equal", a, b,
		func(x, y float32) bool { return x == y },
		func(x, y float64) bool { return x == y },
		func(x, y int32) bool { return x == y },
		func(x, y int64) bool { return x == y })
}

// whereKernel selects from x or y based on cond, all broadcast to out.
func whereKernel[T tensor.DType](out, cond, x, y *tensor.Tensor, cfg parallel.Config) {
	cv := cond.AsBool()
	xv, yv, ov := tensor.Values[T](x), tensor.Values[T](y), tensor.Values[T](out)
	outStrides := out.Shape().ComputeStrides()
	cStr := tensor.BroadcastStrides(cond.Shape(), cond.Strides(), out.Shape())
	xStr := tensor.BroadcastStrides(x.Shape(), x.Strides(), out.Shape())
	yStr := tensor.BroadcastStrides(y.Shape(), y.Strides(), out.Shape())
	parallel.Range(len(ov), func(start, end int) {
		for i := start; i < end; i++ {
			if cv[flatOffset(i, outStrides, cStr)] {
				ov[i] = xv[flatOffset(i, outStrides, xStr)]
			} else {
				ov[i] = yv[flatOffset(i, outStrides, yStr)]
			}
		}
	}, cfg)
}

// Where selects elements from x where cond is true, else from y.
func (c *Backend) Where(cond, x, y *tensor.Tensor) *tensor.Tensor {
	if cond.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition dtype is %s, not bool", cond.DType()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}
	xyShape, _, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, _, err := tensor.BroadcastShapes(cond.Shape(), xyShape)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	out := tensor.MustNew(outShape, x.DType(), c.device)
	switch x.DType() {
	case tensor.Float32:
		whereKernel[float32](out, cond, x, y, c.par)
	case tensor.Float64:
		whereKernel[float64](out, cond, x, y, c.par)
	case tensor.Int32:
		whereKernel[int32](out, cond, x, y, c.par)
	case tensor.Int64:
		whereKernel[int64](out, cond, x, y, c.par)
	case tensor.Bool:
		whereKernel[bool](out, cond, x, y, c.par)
	default:
		panic(fmt.Sprintf("where: unsupported dtype %s", x.DType()))
	}
	return out
}
