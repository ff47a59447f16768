package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glia-ml/glia/internal/tensor"
)

func TestSum(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	out := c.Sum(x)
	assert.True(t, out.Shape().IsScalar())
	assert.Equal(t, 10.0, tensor.Item[float64](out))

	i := tensor.MustFromSlice([]int64{5, -2, 7}, tensor.Shape{3})
	assert.Equal(t, int64(10), tensor.Item[int64](c.Sum(i)))
}

func TestMax(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{-5, 3, -1}, tensor.Shape{3})
	assert.Equal(t, 3.0, tensor.Item[float64](c.Max(x)))

	neg := tensor.MustFromSlice([]float64{-5, -3, -9}, tensor.Shape{3})
	assert.Equal(t, -3.0, tensor.Item[float64](c.Max(neg)))
}

func TestSumDim(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	rows := c.SumDim(x, 1, false)
	assert.Equal(t, tensor.Shape{2}, rows.Shape())
	assert.Equal(t, []float64{6, 15}, tensor.Values[float64](rows))

	cols := c.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, cols.Shape())
	assert.Equal(t, []float64{5, 7, 9}, tensor.Values[float64](cols))

	keep := c.SumDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1}, keep.Shape())
	assert.Equal(t, []float64{6, 15}, tensor.Values[float64](keep))

	assert.Panics(t, func() { c.SumDim(x, 2, false) })
}

func TestSumDimMiddle(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}, tensor.Shape{2, 3, 2})

	out := c.SumDim(x, 1, false)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float64{9, 12, 27, 30}, tensor.Values[float64](out))
}

func TestMeanDim(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := c.MeanDim(x, 1, false)
	assert.Equal(t, []float64{2, 5}, tensor.Values[float64](out))

	i := tensor.MustFromSlice([]int64{1, 2}, tensor.Shape{2})
	assert.Panics(t, func() { c.MeanDim(i, 0, false) })
}

func TestMaxDim(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1, 9, 3, 7, 5, 6}, tensor.Shape{2, 3})

	out := c.MaxDim(x, 1, false)
	assert.Equal(t, []float64{9, 7}, tensor.Values[float64](out))

	keep := c.MaxDim(x, 0, true)
	assert.Equal(t, tensor.Shape{1, 3}, keep.Shape())
	assert.Equal(t, []float64{7, 9, 6}, tensor.Values[float64](keep))
}

func TestSoftmax(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3})
	out := c.Softmax(x, 1)

	v := tensor.Values[float64](out)
	assert.InDelta(t, 1.0, v[0]+v[1]+v[2], 1e-12)
	assert.InDelta(t, 1.0, v[3]+v[4]+v[5], 1e-12)
	assert.Greater(t, v[2], v[1])
	assert.Greater(t, v[1], v[0])
	assert.InDelta(t, 1.0/3.0, v[3], 1e-12)
}

func TestSoftmaxStableAtExtremes(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1000, 1001, 1002}, tensor.Shape{3})
	out := c.Softmax(x, 0)

	v := tensor.Values[float64](out)
	var sum float64
	for _, e := range v {
		assert.False(t, math.IsNaN(e))
		assert.False(t, math.IsInf(e, 0))
		sum += e
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestSigmoidStableAtExtremes(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{-1000, 0, 1000}, tensor.Shape{3})
	out := c.Sigmoid(x)

	v := tensor.Values[float64](out)
	assert.Equal(t, 0.0, v[0])
	assert.Equal(t, 0.5, v[1])
	assert.Equal(t, 1.0, v[2])
}

func TestSoftplusStableAtExtremes(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{-1000, 0, 1000}, tensor.Shape{3})
	out := c.Softplus(x)

	v := tensor.Values[float64](out)
	assert.Equal(t, 0.0, v[0])
	assert.InDelta(t, math.Log(2), v[1], 1e-12)
	// For large x, softplus(x) ~ x with no overflow.
	assert.Equal(t, 1000.0, v[2])
}

func TestLog1pAccuracy(t *testing.T) {
	c := New()
	x := tensor.MustFromSlice([]float64{1e-15}, tensor.Shape{1})
	out := c.Log1p(x)
	// Naive log(1+x) would lose almost all precision here.
	assert.InDelta(t, 1e-15, tensor.Item[float64](out), 1e-25)
}
