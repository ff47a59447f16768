// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package function provides the public API for compiling symbolic
// expressions into callable functions.
//
// Compiling rewrites the graph (algebraic simplification, constant folding
// and numerical-stability substitutions), then wires a lazy evaluator over
// the chosen backend:
//
//	x := expr.Vector("x", tensor.Float64, 3)
//	f := function.MustCompile(
//		function.Inputs(x),
//		function.Outputs(expr.Sum(expr.Sqr(x))),
//	)
//	out, err := f.Call(tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3}))
//
// Shared-variable updates turn a function into a stateful step, the building
// block the optim package uses for training loops.
package function

import (
	"github.com/glia-ml/glia/internal/compile"
	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// Function is a compiled expression graph.
type Function = compile.Function

// Profile holds per-op timings collected from a profiled function.
type Profile = compile.Profile

// Option configures Compile.
type Option = compile.Option

// Mode selects the optimization effort spent at compile time.
type Mode = compile.Mode

// Optimization modes.
const (
	// FastRun applies the full rewrite pipeline. The default.
	FastRun Mode = compile.FastRun
	// FastCompile skips the pattern rewrites for near-instant compilation.
	FastCompile Mode = compile.FastCompile
)

// Compile builds a callable function from symbolic outputs and updates.
func Compile(opts ...Option) (*Function, error) { return compile.Compile(opts...) }

// MustCompile is Compile but panics on error.
func MustCompile(opts ...Option) *Function { return compile.MustCompile(opts...) }

// Inputs declares the free input variables, in the order Call expects them.
func Inputs(vars ...*graph.Var) Option { return compile.Inputs(vars...) }

// Outputs declares the expressions whose values Call returns, in order.
func Outputs(vars ...*graph.Var) Option { return compile.Outputs(vars...) }

// WithUpdates attaches shared-variable updates, applied together after each
// call. Every update expression reads the pre-call values.
func WithUpdates(updates ...graph.Update) Option { return compile.WithUpdates(updates...) }

// WithBackend selects the backend that executes kernels. Defaults to CPU.
func WithBackend(b tensor.Backend) Option { return compile.WithBackend(b) }

// WithMode selects the optimization mode. Defaults to FastRun.
func WithMode(m Mode) Option { return compile.WithMode(m) }

// WithProfiling enables per-op timing collection.
func WithProfiling() Option { return compile.WithProfiling() }
