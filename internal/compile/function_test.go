package compile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

func TestScalarAddition(t *testing.T) {
	a := graph.Scalar("a", tensor.Float64)
	b := graph.Scalar("b", tensor.Float64)
	c := graph.Add(a, b)

	f, err := Compile(Inputs(a, b), Outputs(c))
	require.NoError(t, err)

	out, err := f.Call(tensor.Scalar(1.5), tensor.Scalar(2.5))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 4.0, tensor.Item[float64](out[0]))
}

func TestMultipleOutputs(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 3)
	f := MustCompile(Inputs(x), Outputs(graph.Sum(x), graph.Max(x)))

	out, err := f.Call(tensor.MustFromSlice([]float64{1, 5, 2}, tensor.Shape{3}))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 8.0, tensor.Item[float64](out[0]))
	assert.Equal(t, 5.0, tensor.Item[float64](out[1]))
}

func TestSharedSubexpressionEvaluatedOnce(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 4)
	e := graph.Exp(x)
	f := MustCompile(Inputs(x), Outputs(graph.Add(e, e)), WithProfiling())

	_, err := f.Call(tensor.MustFromSlice([]float64{0, 1, 2, 3}, tensor.Shape{4}))
	require.NoError(t, err)
	assert.Equal(t, 1, f.Profile().OpCount("exp"))
}

func TestCallValidation(t *testing.T) {
	a := graph.Scalar("a", tensor.Float64)
	b := graph.Scalar("b", tensor.Float64)
	f := MustCompile(Inputs(a, b), Outputs(graph.Add(a, b)))

	_, err := f.Call(tensor.Scalar(1.0))
	assert.Error(t, err, "wrong arity")

	_, err = f.Call(tensor.Scalar(1.0), nil)
	assert.Error(t, err, "nil argument")

	_, err = f.Call(tensor.Scalar(1.0), tensor.MustFromSlice([]float32{1}, tensor.Shape{1}))
	assert.Error(t, err, "dtype mismatch")

	_, err = f.Call(tensor.Scalar(1.0), tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}))
	assert.Error(t, err, "shape mismatch")
}

func TestCompileValidation(t *testing.T) {
	a := graph.Scalar("a", tensor.Float64)
	b := graph.Scalar("b", tensor.Float64)
	c := graph.Add(a, b)

	_, err := Compile(Inputs(a, b))
	assert.Error(t, err, "no outputs")

	_, err = Compile(Inputs(a), Outputs(c))
	assert.Error(t, err, "undeclared input")

	_, err = Compile(Inputs(a, a, b), Outputs(c))
	assert.Error(t, err, "duplicate input")

	_, err = Compile(Inputs(a, c), Outputs(c))
	assert.Error(t, err, "apply output declared as input")
}

func TestUpdateValidation(t *testing.T) {
	w := graph.NewShared("w", tensor.Scalar(0.0))

	_, err := Compile(WithUpdates(graph.Update{Shared: w, Expr: nil}))
	assert.Error(t, err, "nil expression")

	wrongShape := graph.Const(tensor.Zeros(tensor.Shape{2}, tensor.Float64))
	_, err = Compile(WithUpdates(graph.Update{Shared: w, Expr: wrongShape}))
	assert.Error(t, err, "shape mismatch")

	wrongDType := graph.ConstScalar(tensor.Float32, 0)
	_, err = Compile(WithUpdates(graph.Update{Shared: w, Expr: wrongDType}))
	assert.Error(t, err, "dtype mismatch")

	expr := graph.Add(w.Var(), graph.ConstScalar(tensor.Float64, 1))
	_, err = Compile(WithUpdates(
		graph.Update{Shared: w, Expr: expr},
		graph.Update{Shared: w, Expr: expr},
	))
	assert.Error(t, err, "duplicate cell")
}

func TestUpdateAccumulator(t *testing.T) {
	counter := graph.NewShared("counter", tensor.Scalar(0.0))
	next := graph.Add(counter.Var(), graph.ConstScalar(tensor.Float64, 1))

	f := MustCompile(
		Outputs(counter.Var()),
		WithUpdates(graph.Update{Shared: counter, Expr: next}),
	)

	for i := 0; i < 3; i++ {
		out, err := f.Call()
		require.NoError(t, err)
		// The output reads the pre-update value.
		assert.Equal(t, float64(i), tensor.Item[float64](out[0]))
	}
	assert.Equal(t, 3.0, tensor.Item[float64](counter.Value()))
}

func TestUpdatesReadOneSnapshot(t *testing.T) {
	// Swapping two cells only works if both update expressions read the
	// pre-call values.
	a := graph.NewShared("a", tensor.Scalar(1.0))
	b := graph.NewShared("b", tensor.Scalar(2.0))

	f := MustCompile(WithUpdates(
		graph.Update{Shared: a, Expr: b.Var()},
		graph.Update{Shared: b, Expr: a.Var()},
	))

	_, err := f.Call()
	require.NoError(t, err)
	assert.Equal(t, 2.0, tensor.Item[float64](a.Value()))
	assert.Equal(t, 1.0, tensor.Item[float64](b.Value()))

	_, err = f.Call()
	require.NoError(t, err)
	assert.Equal(t, 1.0, tensor.Item[float64](a.Value()))
	assert.Equal(t, 2.0, tensor.Item[float64](b.Value()))
}

func TestOutputsSurviveLaterCalls(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 2)
	f := MustCompile(Inputs(x), Outputs(graph.Neg(x)))

	first, err := f.Call(tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}))
	require.NoError(t, err)
	_, err = f.Call(tensor.MustFromSlice([]float64{7, 8}, tensor.Shape{2}))
	require.NoError(t, err)

	assert.Equal(t, []float64{-1, -2}, tensor.Values[float64](first[0]))
}

func TestArgumentsNotClobbered(t *testing.T) {
	// In-place kernels must never write into caller-owned tensors.
	x := graph.Vector("x", tensor.Float64, 2)
	y := graph.Vector("y", tensor.Float64, 2)
	f := MustCompile(Inputs(x, y), Outputs(graph.Add(x, y)))

	ax := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2})
	ay := tensor.MustFromSlice([]float64{10, 20}, tensor.Shape{2})
	out, err := f.Call(ax, ay)
	require.NoError(t, err)

	assert.Equal(t, []float64{11, 22}, tensor.Values[float64](out[0]))
	assert.Equal(t, []float64{1, 2}, tensor.Values[float64](ax))
	assert.Equal(t, []float64{10, 20}, tensor.Values[float64](ay))
}

func TestLazySwitchSkipsUntakenBranch(t *testing.T) {
	x := graph.Scalar("x", tensor.Float64)
	zero := graph.ConstScalar(tensor.Float64, 0)
	safe := graph.Switch(graph.Greater(x, zero), graph.Log(x), zero)

	f := MustCompile(Inputs(x), Outputs(safe), WithProfiling())

	// Negative input: log(x) would be NaN but is never evaluated.
	out, err := f.Call(tensor.Scalar(-3.0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, tensor.Item[float64](out[0]))
	assert.Equal(t, 0, f.Profile().OpCount("log"))
	assert.Equal(t, 0, f.Profile().OpCount("switch"))

	out, err = f.Call(tensor.Scalar(math.E))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tensor.Item[float64](out[0]), 1e-12)
	assert.Equal(t, 1, f.Profile().OpCount("log"))
}

func TestMixedSwitchEvaluatesBothBranches(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 4)
	zero := graph.Const(tensor.Zeros(tensor.Shape{4}, tensor.Float64))
	out := graph.Switch(graph.Greater(x, zero), graph.Exp(x), graph.Neg(x))

	f := MustCompile(Inputs(x), Outputs(out), WithProfiling())
	res, err := f.Call(tensor.MustFromSlice([]float64{-1, 1, -2, 2}, tensor.Shape{4}))
	require.NoError(t, err)

	v := tensor.Values[float64](res[0])
	assert.Equal(t, 1.0, v[0])
	assert.InDelta(t, math.E, v[1], 1e-12)
	assert.Equal(t, 2.0, v[2])
	assert.Equal(t, 1, f.Profile().OpCount("switch"))
	assert.Equal(t, 1, f.Profile().OpCount("exp"))
	assert.Equal(t, 1, f.Profile().OpCount("neg"))
}

func TestFastCompileMode(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 3)
	one := graph.ConstScalar(tensor.Float64, 1)
	sig := graph.Div(one, graph.Add(one, graph.Exp(graph.Neg(x))))

	f := MustCompile(Inputs(x), Outputs(sig), WithMode(FastCompile))
	assert.Equal(t, FastCompile, f.Mode())

	// The spelled-out form is kept but still computes the right thing.
	names := make(map[string]bool)
	for _, a := range graph.Topological(f.Outputs()) {
		names[a.Op().Name()] = true
	}
	assert.False(t, names["sigmoid"])

	out, err := f.Call(tensor.MustFromSlice([]float64{0, 1, -1}, tensor.Shape{3}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tensor.Values[float64](out[0])[0], 1e-12)
}

func TestStabilityRewriteImprovesAccuracy(t *testing.T) {
	// log(1+x) for tiny x: the fused log1p keeps the value, the naive form
	// would round 1+x to 1.
	x := graph.Scalar("x", tensor.Float64)
	one := graph.ConstScalar(tensor.Float64, 1)
	f := MustCompile(Inputs(x), Outputs(graph.Log(graph.Add(one, x))))

	out, err := f.Call(tensor.Scalar(1e-18))
	require.NoError(t, err)
	assert.InDelta(t, 1e-18, tensor.Item[float64](out[0]), 1e-28)
}

func TestSigmoidRewriteAvoidsOverflow(t *testing.T) {
	x := graph.Scalar("x", tensor.Float64)
	one := graph.ConstScalar(tensor.Float64, 1)
	f := MustCompile(Inputs(x), Outputs(graph.Div(one, graph.Add(one, graph.Exp(graph.Neg(x))))))

	out, err := f.Call(tensor.Scalar(-1000.0))
	require.NoError(t, err)
	v := tensor.Item[float64](out[0])
	assert.False(t, math.IsNaN(v))
	assert.Equal(t, 0.0, v)
}

func TestCall1(t *testing.T) {
	a := graph.Scalar("a", tensor.Float64)
	f := MustCompile(Inputs(a), Outputs(graph.Sqr(a)))

	out, err := f.Call1(tensor.Scalar(3.0))
	require.NoError(t, err)
	assert.Equal(t, 9.0, tensor.Item[float64](out))

	multi := MustCompile(Inputs(a), Outputs(a, graph.Sqr(a)))
	_, err = multi.Call1(tensor.Scalar(1.0))
	assert.Error(t, err)
}

func TestProfileCounts(t *testing.T) {
	a := graph.Scalar("a", tensor.Float64)
	f := MustCompile(Inputs(a), Outputs(graph.Exp(a)), WithProfiling())

	require.NotNil(t, f.Profile())
	assert.NotEmpty(t, f.Profile().ID)

	for i := 0; i < 3; i++ {
		_, err := f.Call(tensor.Scalar(0.0))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.Profile().Calls())
	assert.Equal(t, 3, f.Profile().OpCount("exp"))
}

func TestMatMulPipeline(t *testing.T) {
	x := graph.Matrix("x", tensor.Float64, 2, 3)
	w := graph.NewShared("w", tensor.MustFromSlice([]float64{1, 0, 0, 1, 1, 1}, tensor.Shape{3, 2}))

	f := MustCompile(Inputs(x), Outputs(graph.MatMul(x, w.Var())))
	out, err := f.Call(tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}))
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 2}, out[0].Shape())
	assert.Equal(t, []float64{1+3, 2+3, 4+6, 5+6}, tensor.Values[float64](out[0]))
}
