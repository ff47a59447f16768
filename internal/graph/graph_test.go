package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-ml/glia/internal/tensor"
)

func TestVarConstruction(t *testing.T) {
	a := Scalar("a", tensor.Float64)
	assert.Equal(t, "a", a.Name())
	assert.Equal(t, tensor.Float64, a.DType())
	assert.True(t, a.Shape().IsScalar())
	assert.True(t, a.IsInput())
	assert.Nil(t, a.Owner())

	m := Matrix("m", tensor.Float32, 2, 3)
	assert.Equal(t, tensor.Shape{2, 3}, m.Shape())

	assert.Panics(t, func() { NewVar("bad", tensor.Float64, tensor.Shape{-1}) })
}

func TestConst(t *testing.T) {
	c := Const(tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}))
	v, ok := c.IsConst()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, tensor.Values[float64](v))
	assert.False(t, c.IsInput())

	s := ConstScalar(tensor.Float32, 2.5)
	assert.Equal(t, tensor.Float32, s.DType())
	assert.True(t, s.Shape().IsScalar())
}

func TestApplyLinksOwner(t *testing.T) {
	a := Scalar("a", tensor.Float64)
	b := Scalar("b", tensor.Float64)
	c := Add(a, b)

	require.NotNil(t, c.Owner())
	assert.Equal(t, "add", c.Owner().Op().Name())
	assert.Equal(t, []*Var{a, b}, c.Owner().Inputs())
	assert.Same(t, c, c.Owner().Output())
	assert.False(t, c.IsInput())
}

func TestElemwiseShapeInference(t *testing.T) {
	m := Matrix("m", tensor.Float64, 2, 3)
	row := Vector("r", tensor.Float64, 3)
	s := Scalar("s", tensor.Float64)

	assert.Equal(t, tensor.Shape{2, 3}, Add(m, row).Shape())
	assert.Equal(t, tensor.Shape{2, 3}, Mul(m, s).Shape())
	assert.Equal(t, tensor.Shape{2, 3}, Sub(s, m).Shape())
}

func TestInferPanics(t *testing.T) {
	f := Scalar("f", tensor.Float64)
	i := Scalar("i", tensor.Int64)
	assert.Panics(t, func() { Add(f, i) }, "dtype mismatch")

	a := Vector("a", tensor.Float64, 3)
	b := Vector("b", tensor.Float64, 4)
	assert.Panics(t, func() { Add(a, b) }, "incompatible shapes")

	assert.Panics(t, func() { Exp(i) }, "float-only op on int")
	assert.Panics(t, func() { MatMul(a, b) }, "matmul needs 2-D")
}

func TestReduceInference(t *testing.T) {
	m := Matrix("m", tensor.Float64, 2, 3)

	assert.True(t, Sum(m).Shape().IsScalar())
	assert.True(t, Mean(m).Shape().IsScalar())
	assert.Equal(t, tensor.Shape{2}, SumDim(m, 1, false).Shape())
	assert.Equal(t, tensor.Shape{2, 1}, SumDim(m, 1, true).Shape())
	assert.Equal(t, tensor.Shape{3}, MaxDim(m, 0, false).Shape())
	assert.Equal(t, tensor.Shape{2, 3}, Softmax(m, 1).Shape())

	assert.Panics(t, func() { SumDim(m, 2, false) })
}

func TestLinalgInference(t *testing.T) {
	a := Matrix("a", tensor.Float64, 2, 3)
	b := Matrix("b", tensor.Float64, 3, 4)

	assert.Equal(t, tensor.Shape{2, 4}, MatMul(a, b).Shape())
	assert.Equal(t, tensor.Shape{3, 2}, Transpose(a).Shape())
	assert.Equal(t, tensor.Shape{6}, Reshape(a, tensor.Shape{6}).Shape())
	assert.Panics(t, func() { Reshape(a, tensor.Shape{5}) })
	assert.Panics(t, func() { MatMul(a, Matrix("c", tensor.Float64, 2, 4)) })
}

func TestComparisonAndSwitch(t *testing.T) {
	a := Vector("a", tensor.Float64, 3)
	b := Vector("b", tensor.Float64, 3)

	cond := Greater(a, b)
	assert.Equal(t, tensor.Bool, cond.DType())
	assert.Equal(t, tensor.Shape{3}, cond.Shape())

	sw := Switch(cond, a, b)
	assert.Equal(t, tensor.Float64, sw.DType())
	assert.Equal(t, tensor.Shape{3}, sw.Shape())

	// Condition must be bool.
	assert.Panics(t, func() { Switch(a, a, b) })
}

func TestCastInference(t *testing.T) {
	a := Vector("a", tensor.Float64, 3)
	c := Cast(a, tensor.Float32)
	assert.Equal(t, tensor.Float32, c.DType())
	assert.Equal(t, tensor.Shape{3}, c.Shape())
}

func TestSharedCell(t *testing.T) {
	w := NewShared("w", tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}))
	v := w.Var()

	assert.Equal(t, "w", v.Name())
	assert.Same(t, w, v.SharedCell())
	assert.False(t, v.IsInput())
	assert.Equal(t, []float64{1, 2}, tensor.Values[float64](w.Value()))

	require.NoError(t, w.SetValue(tensor.MustFromSlice([]float64{3, 4}, tensor.Shape{2})))
	assert.Equal(t, []float64{3, 4}, tensor.Values[float64](w.Value()))

	// Wrong dtype and wrong shape are rejected.
	assert.Error(t, w.SetValue(tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{2})))
	assert.Error(t, w.SetValue(tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3})))

	assert.Panics(t, func() { NewShared("nil", nil) })
}

func TestSharedValueIsSnapshot(t *testing.T) {
	w := NewShared("w", tensor.MustFromSlice([]float64{1}, tensor.Shape{1}))
	before := w.Value()
	require.NoError(t, w.SetValue(tensor.MustFromSlice([]float64{9}, tensor.Shape{1})))
	assert.Equal(t, []float64{1}, tensor.Values[float64](before))
}

func TestTopologicalOrder(t *testing.T) {
	a := Scalar("a", tensor.Float64)
	b := Scalar("b", tensor.Float64)
	c := Add(a, b)
	d := Mul(c, c)
	e := Neg(d)

	order := Topological([]*Var{e})
	require.Len(t, order, 3)

	// Every apply appears after the applies producing its inputs.
	pos := make(map[*Apply]int)
	for i, ap := range order {
		pos[ap] = i
	}
	for _, ap := range order {
		for _, in := range ap.Inputs() {
			if owner := in.Owner(); owner != nil {
				assert.Less(t, pos[owner], pos[ap])
			}
		}
	}
	assert.Same(t, e.Owner(), order[2])
}

func TestAncestorsAndInputs(t *testing.T) {
	a := Scalar("a", tensor.Float64)
	b := Scalar("b", tensor.Float64)
	w := NewShared("w", tensor.Scalar(1.0))
	out := Add(Mul(a, w.Var()), b)

	ins := Inputs([]*Var{out})
	assert.ElementsMatch(t, []*Var{a, b}, ins)

	shared := SharedVars([]*Var{out})
	require.Len(t, shared, 1)
	assert.Same(t, w, shared[0])

	anc := Ancestors([]*Var{out})
	assert.Contains(t, anc, a)
	assert.Contains(t, anc, w.Var())
}

func TestSharedVarsDeduplicated(t *testing.T) {
	w := NewShared("w", tensor.Scalar(1.0))
	out := Add(w.Var(), w.Var())
	assert.Len(t, SharedVars([]*Var{out}), 1)
}

func TestMethodChaining(t *testing.T) {
	x := Matrix("x", tensor.Float64, 4, 3)
	w := Matrix("w", tensor.Float64, 3, 2)
	b := Vector("b", tensor.Float64, 2)

	y := x.MatMul(w).Add(b).Sigmoid().Sum()
	assert.True(t, y.Shape().IsScalar())
	assert.Equal(t, "sum", y.Owner().Op().Name())
}

func TestSprint(t *testing.T) {
	a := Scalar("a", tensor.Float64)
	b := Scalar("b", tensor.Float64)
	c := Mul(Add(a, b), a)

	s := Sprint(c)
	assert.Contains(t, s, "%0 = add(")
	assert.Contains(t, s, "%1 = mul(%0")
	assert.True(t, strings.HasSuffix(s, "return %1\n"))
}
