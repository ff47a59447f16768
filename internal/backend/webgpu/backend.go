//go:build windows

// Package webgpu implements a GPU backend on WebGPU compute shaders via
// go-webgpu's zero-CGO bindings. Only float32 kernels run on the GPU; every
// other dtype and op falls through to the CPU backend.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/glia-ml/glia/internal/backend/cpu"
	"github.com/glia-ml/glia/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Backend executes float32 kernels on the GPU and delegates everything else
// to the embedded CPU backend.
type Backend struct {
	*cpu.Backend

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Compiled shader and pipeline cache, keyed by kernel name.
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex
}

// New acquires a WebGPU device. Fails when no adapter is available or the
// native wgpu library cannot be loaded.
func New() (b *Backend, err error) {
	// The bindings panic when wgpu_native is missing.
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Backend{
		Backend:   cpu.New(),
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}, nil
}

// IsAvailable reports whether a WebGPU device can be acquired.
func IsAvailable() bool {
	b, err := New()
	if err != nil {
		return false
	}
	b.Release()
	return true
}

// Release frees the GPU resources. The backend must not be used afterwards.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pipelines {
		p.Release()
	}
	for _, s := range b.shaders {
		s.Release()
	}
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}

// Name identifies the backend in profiles and diagnostics.
func (b *Backend) Name() string { return "WebGPU" }

// Device returns the device tag stamped on result tensors.
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }

// gpuEligible reports whether a kernel for these operands runs on the GPU:
// float32 only, and for binaries both shapes equal (broadcasting stays on
// the CPU path).
func gpuEligible(ts ...*tensor.Tensor) bool {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			return false
		}
		if !t.Shape().Equal(ts[0].Shape()) {
			return false
		}
	}
	return true
}

// Add computes x+y, on the GPU when both operands are float32 and same-shape.
func (b *Backend) Add(x, y *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x, y) {
		if out, err := b.runBinary(x, y, "add", addShader); err == nil {
			return out
		}
	}
	return b.Backend.Add(x, y)
}

// Sub computes x-y.
func (b *Backend) Sub(x, y *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x, y) {
		if out, err := b.runBinary(x, y, "sub", subShader); err == nil {
			return out
		}
	}
	return b.Backend.Sub(x, y)
}

// Mul computes x*y.
func (b *Backend) Mul(x, y *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x, y) {
		if out, err := b.runBinary(x, y, "mul", mulShader); err == nil {
			return out
		}
	}
	return b.Backend.Mul(x, y)
}

// Div computes x/y.
func (b *Backend) Div(x, y *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x, y) {
		if out, err := b.runBinary(x, y, "div", divShader); err == nil {
			return out
		}
	}
	return b.Backend.Div(x, y)
}

// Neg computes -x.
func (b *Backend) Neg(x *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x) {
		if out, err := b.runUnary(x, "neg", negShader); err == nil {
			return out
		}
	}
	return b.Backend.Neg(x)
}

// Exp computes e^x.
func (b *Backend) Exp(x *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x) {
		if out, err := b.runUnary(x, "exp", expShader); err == nil {
			return out
		}
	}
	return b.Backend.Exp(x)
}

// Log computes ln(x).
func (b *Backend) Log(x *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x) {
		if out, err := b.runUnary(x, "log", logShader); err == nil {
			return out
		}
	}
	return b.Backend.Log(x)
}

// Sqrt computes the square root.
func (b *Backend) Sqrt(x *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x) {
		if out, err := b.runUnary(x, "sqrt", sqrtShader); err == nil {
			return out
		}
	}
	return b.Backend.Sqrt(x)
}

// Tanh computes the hyperbolic tangent.
func (b *Backend) Tanh(x *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x) {
		if out, err := b.runUnary(x, "tanh", tanhShader); err == nil {
			return out
		}
	}
	return b.Backend.Tanh(x)
}

// Sigmoid computes the logistic function.
func (b *Backend) Sigmoid(x *tensor.Tensor) *tensor.Tensor {
	if gpuEligible(x) {
		if out, err := b.runUnary(x, "sigmoid", sigmoidShader); err == nil {
			return out
		}
	}
	return b.Backend.Sigmoid(x)
}

// MatMul computes the 2-D matrix product.
func (b *Backend) MatMul(x, y *tensor.Tensor) *tensor.Tensor {
	if x.DType() == tensor.Float32 && y.DType() == tensor.Float32 &&
		len(x.Shape()) == 2 && len(y.Shape()) == 2 {
		if out, err := b.runMatMul(x, y); err == nil {
			return out
		}
	}
	return b.Backend.MatMul(x, y)
}
