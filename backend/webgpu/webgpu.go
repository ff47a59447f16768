// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend: float32 kernels dispatched as
// GPU compute shaders, with automatic CPU fallback for everything else.
//
//	gpu, err := webgpu.New()
//	if err != nil {
//		// no adapter available, fall back to cpu.New()
//	}
//	defer gpu.Release()
//
//	f := function.MustCompile(
//		function.Inputs(x),
//		function.Outputs(y),
//		function.WithBackend(gpu),
//	)
//
// The native wgpu library currently ships for windows; on other platforms
// New returns an error.
package webgpu

import (
	internalwebgpu "github.com/glia-ml/glia/internal/backend/webgpu"
)

// Backend executes float32 kernels on the GPU and falls back to the CPU
// backend for unsupported ops and dtypes.
type Backend = internalwebgpu.Backend

// New acquires a WebGPU device, or fails when none is available.
func New() (*Backend, error) { return internalwebgpu.New() }

// IsAvailable reports whether a WebGPU device can be acquired.
func IsAvailable() bool { return internalwebgpu.IsAvailable() }
