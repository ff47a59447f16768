// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-ml/glia/expr"
	"github.com/glia-ml/glia/function"
	"github.com/glia-ml/glia/optim"
	"github.com/glia-ml/glia/tensor"
)

// quadratic builds cost = sum((w - target)^2) over a single parameter cell.
func quadratic(t *testing.T, target []float64) (*expr.Shared, *expr.Var) {
	t.Helper()
	w := expr.NewShared("w", tensor.Zeros(tensor.Shape{len(target)}, tensor.Float64))
	tgt := expr.Const(tensor.MustFromSlice(target, tensor.Shape{len(target)}))
	return w, expr.Sum(expr.Sqr(expr.Sub(w.Var(), tgt)))
}

func TestSGDStep(t *testing.T) {
	w, cost := quadratic(t, []float64{1, -1})
	updates, err := optim.SGD(cost, []*expr.Shared{w}, optim.SGDConfig{LR: 0.1})
	require.NoError(t, err)
	require.Len(t, updates, 1)

	step := function.MustCompile(function.WithUpdates(updates...))
	_, err = step.Call()
	require.NoError(t, err)

	// Gradient at w=0 is 2*(w-target) = [-2, 2]; one step moves 0.1 of that.
	assert.InDelta(t, 0.2, tensor.Values[float64](w.Value())[0], 1e-12)
	assert.InDelta(t, -0.2, tensor.Values[float64](w.Value())[1], 1e-12)
}

func TestSGDConvergesOnQuadratic(t *testing.T) {
	w, cost := quadratic(t, []float64{1, -1, 0.5})
	updates, err := optim.SGD(cost, []*expr.Shared{w}, optim.SGDConfig{LR: 0.1})
	require.NoError(t, err)

	step := function.MustCompile(function.Outputs(cost), function.WithUpdates(updates...))
	var last float64
	for i := 0; i < 100; i++ {
		out, err := step.Call()
		require.NoError(t, err)
		last = tensor.Item[float64](out[0])
	}

	assert.Less(t, last, 1e-6)
	v := tensor.Values[float64](w.Value())
	assert.InDelta(t, 1.0, v[0], 1e-3)
	assert.InDelta(t, -1.0, v[1], 1e-3)
	assert.InDelta(t, 0.5, v[2], 1e-3)
}

func TestSGDMomentum(t *testing.T) {
	w, cost := quadratic(t, []float64{2})
	updates, err := optim.SGD(cost, []*expr.Shared{w}, optim.SGDConfig{LR: 0.05, Momentum: 0.9})
	require.NoError(t, err)
	// Velocity cell plus the parameter itself.
	require.Len(t, updates, 2)

	step := function.MustCompile(function.Outputs(cost), function.WithUpdates(updates...))
	for i := 0; i < 200; i++ {
		_, err := step.Call()
		require.NoError(t, err)
	}
	assert.InDelta(t, 2.0, tensor.Item[float64](w.Value()), 1e-2)
}

func TestSGDRequiresParams(t *testing.T) {
	_, cost := quadratic(t, []float64{1})
	_, err := optim.SGD(cost, nil, optim.SGDConfig{})
	require.Error(t, err)
}

func TestAdamFirstStepSize(t *testing.T) {
	// With bias correction the very first Adam step is close to lr in each
	// coordinate, whatever the gradient scale.
	w, cost := quadratic(t, []float64{100})
	updates, err := optim.Adam(cost, []*expr.Shared{w}, optim.AdamConfig{LR: 0.01})
	require.NoError(t, err)
	// Step counter, two moments, parameter.
	require.Len(t, updates, 4)

	step := function.MustCompile(function.WithUpdates(updates...))
	_, err = step.Call()
	require.NoError(t, err)

	got := tensor.Item[float64](w.Value())
	assert.InDelta(t, 0.01, got, 1e-6)
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	w, cost := quadratic(t, []float64{0.3, -0.7})
	updates, err := optim.Adam(cost, []*expr.Shared{w}, optim.AdamConfig{LR: 0.05})
	require.NoError(t, err)

	step := function.MustCompile(function.Outputs(cost), function.WithUpdates(updates...))
	for i := 0; i < 500; i++ {
		_, err := step.Call()
		require.NoError(t, err)
	}

	v := tensor.Values[float64](w.Value())
	assert.InDelta(t, 0.3, v[0], 1e-2)
	assert.InDelta(t, -0.7, v[1], 1e-2)
}

func TestAdamStepCounter(t *testing.T) {
	w, cost := quadratic(t, []float64{1})
	updates, err := optim.Adam(cost, []*expr.Shared{w}, optim.AdamConfig{})
	require.NoError(t, err)

	var counter *expr.Shared
	for _, u := range updates {
		if u.Shared.Name() == "adam.step" {
			counter = u.Shared
		}
	}
	require.NotNil(t, counter)

	step := function.MustCompile(function.WithUpdates(updates...))
	for i := 0; i < 3; i++ {
		_, err := step.Call()
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, tensor.Item[float64](counter.Value()))
}

func TestOptimizersHandleFloat32(t *testing.T) {
	w := expr.NewShared("w", tensor.Zeros(tensor.Shape{2}, tensor.Float32))
	tgt := expr.Const(tensor.MustFromSlice([]float32{1, -1}, tensor.Shape{2}))
	cost := expr.Sum(expr.Sqr(expr.Sub(w.Var(), tgt)))

	updates, err := optim.Adam(cost, []*expr.Shared{w}, optim.AdamConfig{LR: 0.1})
	require.NoError(t, err)

	step := function.MustCompile(function.WithUpdates(updates...))
	for i := 0; i < 50; i++ {
		_, err := step.Call()
		require.NoError(t, err)
	}

	v := tensor.Values[float32](w.Value())
	assert.False(t, math.IsNaN(float64(v[0])))
	assert.InDelta(t, 1.0, v[0], 0.2)
	assert.InDelta(t, -1.0, v[1], 0.2)
}
