// Package cpu implements the pure-Go CPU backend for compiled functions.
package cpu

import (
	"fmt"

	"github.com/glia-ml/glia/internal/parallel"
	"github.com/glia-ml/glia/internal/tensor"
)

// Backend implements tensor.Backend on the CPU with goroutine parallelism.
type Backend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend with default parallelism.
func New() *Backend {
	return &Backend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend that never spawns goroutines.
// Useful for deterministic profiling and debugging.
func NewSequential() *Backend {
	return &Backend{
		device: tensor.CPU,
		par:    parallel.Config{},
	}
}

// Name returns the backend name.
func (c *Backend) Name() string { return "CPU" }

// Device returns the compute device.
func (c *Backend) Device() tensor.Device { return c.device }

// Reshape returns a tensor with the same data and a new shape.
func (c *Backend) Reshape(x *tensor.Tensor, shape tensor.Shape) *tensor.Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}
	if x.NumElements() != shape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			x.Shape(), shape))
	}
	result := tensor.MustNew(shape, x.DType(), c.device)
	copy(result.Data(), x.Data()[:x.ByteSize()])
	return result
}

// Transpose permutes the tensor's dimensions. With no axes given, all
// dimensions are reversed.
func (c *Backend) Transpose(x *tensor.Tensor, axes ...int) *tensor.Tensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	result := tensor.MustNew(newShape, x.DType(), c.device)

	// Gather via permuted strides.
	srcStrides := x.Strides()
	permStrides := make([]int, ndim)
	for i, ax := range axes {
		permStrides[i] = srcStrides[ax]
	}
	outStrides := newShape.ComputeStrides()

	n := result.NumElements()
	elemSize := x.DType().Size()
	src, dst := x.Data(), result.Data()
	parallel.Range(n, func(start, end int) {
		for i := start; i < end; i++ {
			srcOff := flatOffset(i, outStrides, permStrides)
			copy(dst[i*elemSize:(i+1)*elemSize], src[srcOff*elemSize:(srcOff+1)*elemSize])
		}
	}, c.par)

	return result
}

// Broadcast materializes x expanded to the given shape.
func (c *Backend) Broadcast(x *tensor.Tensor, shape tensor.Shape) *tensor.Tensor {
	if x.Shape().Equal(shape) {
		return x.Clone()
	}
	out, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !out.Equal(shape) {
		panic(fmt.Sprintf("broadcast: cannot expand %v to %v", x.Shape(), shape))
	}
	result := tensor.MustNew(shape, x.DType(), c.device)

	outStrides := shape.ComputeStrides()
	srcStrides := tensor.BroadcastStrides(x.Shape(), x.Strides(), shape)
	n := result.NumElements()
	elemSize := x.DType().Size()
	src, dst := x.Data(), result.Data()
	parallel.Range(n, func(start, end int) {
		for i := start; i < end; i++ {
			srcOff := flatOffset(i, outStrides, srcStrides)
			copy(dst[i*elemSize:(i+1)*elemSize], src[srcOff*elemSize:(srcOff+1)*elemSize])
		}
	}, c.par)
	return result
}

// flatOffset maps a flat index over outStrides onto an operand's flat offset
// through that operand's (possibly zero) broadcast strides.
func flatOffset(i int, outStrides, opStrides []int) int {
	off := 0
	rem := i
	for d := 0; d < len(outStrides); d++ {
		if outStrides[d] == 0 {
			continue
		}
		idx := rem / outStrides[d]
		rem %= outStrides[d]
		off += idx * opStrides[d]
	}
	return off
}
