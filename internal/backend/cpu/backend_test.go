package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-ml/glia/internal/tensor"
)

func f64(t *testing.T, vals []float64, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.FromSlice(vals, shape)
	require.NoError(t, err)
	return tt
}

func TestAddSameShape(t *testing.T) {
	c := New()
	a := f64(t, []float64{1, 2, 3}, tensor.Shape{3})
	b := f64(t, []float64{10, 20, 30}, tensor.Shape{3})
	out := c.Add(a, b)
	assert.Equal(t, []float64{11, 22, 33}, tensor.Values[float64](out))
}

func TestAddInplaceFastPath(t *testing.T) {
	c := New()
	a := f64(t, []float64{1, 2}, tensor.Shape{2})
	b := f64(t, []float64{3, 4}, tensor.Shape{2})

	// a owns its buffer, so the result reuses it.
	out := c.Add(a, b)
	assert.Same(t, a, out)
}

func TestAddRespectsSharedBuffers(t *testing.T) {
	c := New()
	a := f64(t, []float64{1, 2}, tensor.Shape{2})
	release := a.Retain()
	defer release()

	b := f64(t, []float64{3, 4}, tensor.Shape{2})
	out := c.Add(a, b)
	assert.NotSame(t, a, out)
	assert.Equal(t, []float64{1, 2}, tensor.Values[float64](a))
	assert.Equal(t, []float64{4, 6}, tensor.Values[float64](out))
}

func TestBinaryBroadcasting(t *testing.T) {
	c := New()

	// Row vector against a matrix.
	m := f64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	row := f64(t, []float64{10, 20, 30}, tensor.Shape{3})
	out := c.Add(m, row)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, tensor.Values[float64](out))

	// Column against a row.
	col := f64(t, []float64{1, 2}, tensor.Shape{2, 1})
	row2 := f64(t, []float64{10, 20, 30}, tensor.Shape{1, 3})
	out = c.Mul(col, row2)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float64{10, 20, 30, 20, 40, 60}, tensor.Values[float64](out))

	// Scalar against anything.
	s := tensor.Scalar(2.0)
	out = c.Mul(m, s)
	assert.Equal(t, []float64{2, 4, 6, 8, 10, 12}, tensor.Values[float64](out))
}

func TestSubDivPow(t *testing.T) {
	c := New()
	a := f64(t, []float64{8, 9, 16}, tensor.Shape{3})
	b := f64(t, []float64{2, 3, 4}, tensor.Shape{3})

	assert.Equal(t, []float64{6, 6, 12}, tensor.Values[float64](c.Sub(a.Copy(), b)))
	assert.Equal(t, []float64{4, 3, 4}, tensor.Values[float64](c.Div(a.Copy(), b)))
	assert.Equal(t, []float64{64, 729, 65536}, tensor.Values[float64](c.Pow(a.Copy(), b)))
}

func TestMaximumMinimum(t *testing.T) {
	c := New()
	a := f64(t, []float64{1, 5, 3}, tensor.Shape{3})
	b := f64(t, []float64{4, 2, 3}, tensor.Shape{3})
	assert.Equal(t, []float64{4, 5, 3}, tensor.Values[float64](c.Maximum(a.Copy(), b)))
	assert.Equal(t, []float64{1, 2, 3}, tensor.Values[float64](c.Minimum(a.Copy(), b)))
}

func TestIntArithmetic(t *testing.T) {
	c := New()
	a := tensor.MustFromSlice([]int64{7, 8}, tensor.Shape{2})
	b := tensor.MustFromSlice([]int64{2, 4}, tensor.Shape{2})
	assert.Equal(t, []int64{9, 12}, tensor.Values[int64](c.Add(a.Copy(), b)))
	assert.Equal(t, []int64{3, 2}, tensor.Values[int64](c.Div(a.Copy(), b)))
}

func TestBinaryDTypeMismatchPanics(t *testing.T) {
	c := New()
	a := tensor.MustFromSlice([]float32{1}, tensor.Shape{1})
	b := tensor.MustFromSlice([]float64{1}, tensor.Shape{1})
	assert.Panics(t, func() { c.Add(a, b) })
}

func TestBinaryIncompatibleShapesPanics(t *testing.T) {
	c := New()
	a := f64(t, []float64{1, 2, 3}, tensor.Shape{3})
	b := f64(t, []float64{1, 2}, tensor.Shape{2})
	assert.Panics(t, func() { c.Add(a, b) })
}

func TestCompareOps(t *testing.T) {
	c := New()
	a := f64(t, []float64{1, 5, 3}, tensor.Shape{3})
	b := f64(t, []float64{4, 2, 3}, tensor.Shape{3})

	gt := c.Greater(a, b)
	assert.Equal(t, tensor.Bool, gt.DType())
	assert.Equal(t, []bool{false, true, false}, gt.AsBool())

	lt := c.Lower(a, b)
	assert.Equal(t, []bool{true, false, false}, lt.AsBool())

	eq := c.Equal(a, b)
	assert.Equal(t, []bool{false, false, true}, eq.AsBool())
}

func TestCompareBroadcasts(t *testing.T) {
	c := New()
	m := f64(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	s := tensor.Scalar(2.5)
	gt := c.Greater(m, s)
	assert.Equal(t, tensor.Shape{2, 2}, gt.Shape())
	assert.Equal(t, []bool{false, false, true, true}, gt.AsBool())
}

func TestWhere(t *testing.T) {
	c := New()
	m := f64(t, []float64{-1, 2, -3, 4}, tensor.Shape{4})
	zero := tensor.Scalar(0.0)
	cond := c.Greater(m, zero)
	out := c.Where(cond, m, zero)
	assert.Equal(t, []float64{0, 2, 0, 4}, tensor.Values[float64](out))
}

func TestWhereRequiresBoolCond(t *testing.T) {
	c := New()
	x := f64(t, []float64{1}, tensor.Shape{1})
	assert.Panics(t, func() { c.Where(x, x, x) })
}

func TestUnaryOps(t *testing.T) {
	c := New()
	x := f64(t, []float64{-2, 0, 3}, tensor.Shape{3})

	assert.Equal(t, []float64{2, 0, -3}, tensor.Values[float64](c.Neg(x)))
	assert.Equal(t, []float64{2, 0, 3}, tensor.Values[float64](c.Abs(x)))
	assert.Equal(t, []float64{-1, 0, 1}, tensor.Values[float64](c.Sign(x)))
	assert.Equal(t, []float64{4, 0, 9}, tensor.Values[float64](c.Sqr(x)))
}

func TestUnaryMath(t *testing.T) {
	c := New()
	x := f64(t, []float64{0, 1}, tensor.Shape{2})

	exp := tensor.Values[float64](c.Exp(x))
	assert.InDelta(t, 1.0, exp[0], 1e-12)
	assert.InDelta(t, 2.718281828459045, exp[1], 1e-12)

	sq := tensor.Values[float64](c.Sqrt(f64(t, []float64{4, 9}, tensor.Shape{2})))
	assert.Equal(t, []float64{2, 3}, sq)

	lg := tensor.Values[float64](c.Log(f64(t, []float64{1, 2.718281828459045}, tensor.Shape{2})))
	assert.InDelta(t, 0.0, lg[0], 1e-12)
	assert.InDelta(t, 1.0, lg[1], 1e-12)
}

func TestUnaryIntPanicsForFloatOnlyOps(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]int64{1}, tensor.Shape{1})
	assert.Panics(t, func() { c.Exp(x) })
	assert.NotPanics(t, func() { c.Neg(x) })
}

func TestCast(t *testing.T) {
	c := New()
	x := f64(t, []float64{1.7, -0.5, 0}, tensor.Shape{3})

	i := c.Cast(x, tensor.Int64)
	assert.Equal(t, []int64{1, 0, 0}, tensor.Values[int64](i))

	f32 := c.Cast(x, tensor.Float32)
	assert.Equal(t, []float32{1.7, -0.5, 0}, tensor.Values[float32](f32))

	b := c.Cast(x, tensor.Bool)
	assert.Equal(t, []bool{true, true, false}, b.AsBool())

	// Same-dtype cast is a cheap view.
	same := c.Cast(x, tensor.Float64)
	assert.Equal(t, tensor.Values[float64](x), tensor.Values[float64](same))
}

func TestTranspose(t *testing.T) {
	c := New()
	m := f64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	tr := c.Transpose(m)
	assert.Equal(t, tensor.Shape{3, 2}, tr.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, tensor.Values[float64](tr))

	// Explicit axes: identity permutation leaves the layout alone.
	id := c.Transpose(m, 0, 1)
	assert.Equal(t, tensor.Values[float64](m), tensor.Values[float64](id))

	assert.Panics(t, func() { c.Transpose(m, 0, 0) })
	assert.Panics(t, func() { c.Transpose(m, 0, 2) })
}

func TestReshape(t *testing.T) {
	c := New()
	m := f64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	r := c.Reshape(m, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, r.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Values[float64](r))

	assert.Panics(t, func() { c.Reshape(m, tensor.Shape{4}) })
}

func TestBroadcastMaterializes(t *testing.T) {
	c := New()
	row := f64(t, []float64{1, 2, 3}, tensor.Shape{3})
	out := c.Broadcast(row, tensor.Shape{2, 3})
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, tensor.Values[float64](out))

	col := f64(t, []float64{1, 2}, tensor.Shape{2, 1})
	out = c.Broadcast(col, tensor.Shape{2, 3})
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, tensor.Values[float64](out))

	assert.Panics(t, func() { c.Broadcast(row, tensor.Shape{4}) })
}

func TestSequentialMatchesParallel(t *testing.T) {
	par, seq := New(), NewSequential()
	n := 1000
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i) * 0.25
	}
	x := f64(t, vals, tensor.Shape{n})
	y := f64(t, vals, tensor.Shape{n})

	a := par.Mul(x.Copy(), y)
	b := seq.Mul(x.Copy(), y)
	assert.Equal(t, tensor.Values[float64](a), tensor.Values[float64](b))
}
