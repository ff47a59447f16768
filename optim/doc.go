// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim builds symbolic optimizer updates for training loops.
//
// Each optimizer differentiates a scalar cost with respect to shared
// parameter cells and returns the update pairs that implement one training
// step. Compiling the updates into a function turns every call into a step:
//
//	updates, err := optim.SGD(cost, params, optim.SGDConfig{LR: 0.1})
//	step := function.MustCompile(
//		function.Inputs(x, y),
//		function.Outputs(cost),
//		function.WithUpdates(updates...),
//	)
//	for i := 0; i < epochs; i++ {
//		step.Call(batchX, batchY) // parameters move in-place
//	}
//
// Optimizer state (momentum velocities, Adam moments, the step counter) lives
// in shared cells created by the builder, so it persists across calls like
// the parameters themselves.
package optim
