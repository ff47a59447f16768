package cpu

import (
	"fmt"
	"math"

	"github.com/glia-ml/glia/internal/tensor"
)

// Sum reduces all elements to a scalar.
func (c *Backend) Sum(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.MustNew(tensor.Shape{}, x.DType(), c.device)
	switch x.DType() {
	case tensor.Float32:
		var acc float64 // accumulate in float64 to limit drift
		for _, v := range x.AsFloat32() {
			acc += float64(v)
		}
		out.AsFloat32()[0] = float32(acc)
	case tensor.Float64:
		var acc float64
		for _, v := range x.AsFloat64() {
			acc += v
		}
		out.AsFloat64()[0] = acc
	case tensor.Int32:
		var acc int32
		for _, v := range x.AsInt32() {
			acc += v
		}
		out.AsInt32()[0] = acc
	case tensor.Int64:
		var acc int64
		for _, v := range x.AsInt64() {
			acc += v
		}
		out.AsInt64()[0] = acc
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return out
}

// Max reduces all elements to their maximum.
func (c *Backend) Max(x *tensor.Tensor) *tensor.Tensor {
	if x.NumElements() == 0 {
		panic("max: empty tensor")
	}
	out := tensor.MustNew(tensor.Shape{}, x.DType(), c.device)
	switch x.DType() {
	case tensor.Float32:
		acc := float32(math.Inf(-1))
		for _, v := range x.AsFloat32() {
			acc = max(acc, v)
		}
		out.AsFloat32()[0] = acc
	case tensor.Float64:
		acc := math.Inf(-1)
		for _, v := range x.AsFloat64() {
			acc = max(acc, v)
		}
		out.AsFloat64()[0] = acc
	case tensor.Int32:
		acc := x.AsInt32()[0]
		for _, v := range x.AsInt32() {
			acc = max(acc, v)
		}
		out.AsInt32()[0] = acc
	case tensor.Int64:
		acc := x.AsInt64()[0]
		for _, v := range x.AsInt64() {
			acc = max(acc, v)
		}
		out.AsInt64()[0] = acc
	default:
		panic(fmt.Sprintf("max: unsupported dtype %s", x.DType()))
	}
	return out
}

// reduceDimShape computes the output shape of a dimension reduction.
func reduceDimShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		if i == dim {
			if keepDim {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, d)
	}
	return out
}

// reduceDim runs a per-slice accumulator over one dimension.
// For each output position it iterates the reduced dimension and combines
// elements with acc, starting from init.
func reduceDim[T float32 | float64 | int32 | int64](dst, src []T, shape tensor.Shape, dim int, init T, acc func(T, T) T) {
	// outer: product of dims before dim; inner: product after.
	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	dimSize := shape[dim]

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			a := init
			base := o*dimSize*inner + in
			for d := 0; d < dimSize; d++ {
				a = acc(a, src[base+d*inner])
			}
			dst[o*inner+in] = a
		}
	}
}

func (c *Backend) checkDim(name string, x *tensor.Tensor, dim int) {
	if dim < 0 || dim >= len(x.Shape()) {
		panic(fmt.Sprintf("%s: invalid dim %d for shape %v", name, dim, x.Shape()))
	}
}

// SumDim sums along one dimension.
func (c *Backend) SumDim(x *tensor.Tensor, dim int, keepDim bool) *tensor.Tensor {
	c.checkDim("sumdim", x, dim)
	out := tensor.MustNew(reduceDimShape(x.Shape(), dim, keepDim), x.DType(), c.device)
	switch x.DType() {
	case tensor.Float32:
		reduceDim(out.AsFloat32(), x.AsFloat32(), x.Shape(), dim, 0, func(a, v float32) float32 { return a + v })
	case tensor.Float64:
		reduceDim(out.AsFloat64(), x.AsFloat64(), x.Shape(), dim, 0, func(a, v float64) float64 { return a + v })
	case tensor.Int32:
		reduceDim(out.AsInt32(), x.AsInt32(), x.Shape(), dim, 0, func(a, v int32) int32 { return a + v })
	case tensor.Int64:
		reduceDim(out.AsInt64(), x.AsInt64(), x.Shape(), dim, 0, func(a, v int64) int64 { return a + v })
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}
	return out
}

// MeanDim averages along one dimension. Floats only.
func (c *Backend) MeanDim(x *tensor.Tensor, dim int, keepDim bool) *tensor.Tensor {
	c.checkDim("meandim", x, dim)
	sum := c.SumDim(x, dim, keepDim)
	n := float64(x.Shape()[dim])
	switch x.DType() {
	case tensor.Float32:
		v := sum.AsFloat32()
		for i := range v {
			v[i] /= float32(n)
		}
	case tensor.Float64:
		v := sum.AsFloat64()
		for i := range v {
			v[i] /= n
		}
	default:
		panic(fmt.Sprintf("meandim: unsupported dtype %s", x.DType()))
	}
	return sum
}

// MaxDim takes the maximum along one dimension.
func (c *Backend) MaxDim(x *tensor.Tensor, dim int, keepDim bool) *tensor.Tensor {
	c.checkDim("maxdim", x, dim)
	out := tensor.MustNew(reduceDimShape(x.Shape(), dim, keepDim), x.DType(), c.device)
	switch x.DType() {
	case tensor.Float32:
		reduceDim(out.AsFloat32(), x.AsFloat32(), x.Shape(), dim, float32(math.Inf(-1)),
			func(a, v float32) float32 { return max(a, v) })
	case tensor.Float64:
		reduceDim(out.AsFloat64(), x.AsFloat64(), x.Shape(), dim, math.Inf(-1),
			func(a, v float64) float64 { return max(a, v) })
	case tensor.Int32:
		reduceDim(out.AsInt32(), x.AsInt32(), x.Shape(), dim, math.MinInt32,
			func(a, v int32) int32 { return max(a, v) })
	case tensor.Int64:
		reduceDim(out.AsInt64(), x.AsInt64(), x.Shape(), dim, math.MinInt64,
			func(a, v int64) int64 { return max(a, v) })
	default:
		panic(fmt.Sprintf("maxdim: unsupported dtype %s", x.DType()))
	}
	return out
}

// Softmax computes softmax along dim with max-shifting for stability.
func (c *Backend) Softmax(x *tensor.Tensor, dim int) *tensor.Tensor {
	c.checkDim("softmax", x, dim)
	if !x.DType().IsFloat() {
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	shape := x.Shape()
	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	dimSize := shape[dim]

	out := tensor.MustNew(shape, x.DType(), c.device)
	read := readerFor(x)
	readOut := readerFor(out)
	write := writerFor(out)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in
			m := math.Inf(-1)
			for d := 0; d < dimSize; d++ {
				m = max(m, read(base+d*inner))
			}
			var sum float64
			for d := 0; d < dimSize; d++ {
				e := math.Exp(read(base+d*inner) - m)
				write(base+d*inner, e)
				sum += e
			}
			for d := 0; d < dimSize; d++ {
				write(base+d*inner, readOut(base+d*inner)/sum)
			}
		}
	}
	return out
}

// writerFor returns an element writer converting float64 to the tensor dtype.
func writerFor(x *tensor.Tensor) func(int, float64) {
	switch x.DType() {
	case tensor.Float32:
		v := x.AsFloat32()
		return func(i int, val float64) { v[i] = float32(val) }
	case tensor.Float64:
		v := x.AsFloat64()
		return func(i int, val float64) { v[i] = val }
	default:
		panic(fmt.Sprintf("unsupported dtype %s", x.DType()))
	}
}
