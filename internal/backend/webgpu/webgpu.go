//go:build !windows

// Package webgpu implements a GPU backend on WebGPU compute shaders via
// go-webgpu's zero-CGO bindings. Only float32 kernels run on the GPU; every
// other dtype and op falls through to the CPU backend.
//
// The native wgpu library currently ships for windows only; on other
// platforms New always fails and the CPU backend is used instead.
package webgpu

import (
	"errors"

	"github.com/glia-ml/glia/internal/tensor"
)

// Backend is the WebGPU compute backend. On this platform it is a
// placeholder that can never be constructed.
type Backend struct {
	tensor.Backend
}

// New reports WebGPU as unavailable.
func New() (*Backend, error) {
	return nil, errors.New("webgpu: not supported on this platform")
}

// Release is a no-op on this platform.
func (b *Backend) Release() {}

// IsAvailable reports whether a WebGPU device can be acquired.
func IsAvailable() bool { return false }
