// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU backend: pure-Go kernels parallelized across
// cores, with cache-blocked matrix multiplication. This is the default
// backend for compiled functions.
//
//	f := function.MustCompile(
//		function.Inputs(x),
//		function.Outputs(y),
//		function.WithBackend(cpu.New()),
//	)
package cpu

import (
	internalcpu "github.com/glia-ml/glia/internal/backend/cpu"
)

// Backend executes kernels on the CPU.
type Backend = internalcpu.Backend

// New creates a CPU backend that parallelizes large kernels across all
// available cores.
func New() *Backend { return internalcpu.New() }

// NewSequential creates a single-threaded CPU backend. Useful for
// benchmarking and deterministic debugging.
func NewSequential() *Backend { return internalcpu.NewSequential() }
