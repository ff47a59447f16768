package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/tensor"
)

// checkGradients compares compiled symbolic gradients against central finite
// differences of the cost, element by element.
func checkGradients(t *testing.T, cost *graph.Var, inputs []*graph.Var, args []*tensor.Tensor) {
	t.Helper()
	const eps = 1e-6

	grads, err := graph.Grad(cost, inputs...)
	require.NoError(t, err)

	costFn := MustCompile(Inputs(inputs...), Outputs(cost))
	gradFn := MustCompile(Inputs(inputs...), Outputs(grads...))

	symbolic, err := gradFn.Call(args...)
	require.NoError(t, err)

	evalCost := func() float64 {
		out, err := costFn.Call(args...)
		require.NoError(t, err)
		return tensor.Item[float64](out[0])
	}

	for i, arg := range args {
		vals := tensor.Values[float64](arg)
		sym := tensor.Values[float64](symbolic[i])
		for j := range vals {
			orig := vals[j]
			vals[j] = orig + eps
			plus := evalCost()
			vals[j] = orig - eps
			minus := evalCost()
			vals[j] = orig

			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, sym[j], 1e-4,
				"input %d element %d: numeric %g, symbolic %g", i, j, numeric, sym[j])
		}
	}
}

func TestGradQuadratic(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 3)
	cost := graph.Sum(graph.Sqr(x))
	checkGradients(t, cost, []*graph.Var{x},
		[]*tensor.Tensor{tensor.MustFromSlice([]float64{1, -2, 0.5}, tensor.Shape{3})})
}

func TestGradElemwiseChain(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 4)
	cost := graph.Sum(graph.Tanh(graph.Exp(graph.Mul(x, x))))
	checkGradients(t, cost, []*graph.Var{x},
		[]*tensor.Tensor{tensor.MustFromSlice([]float64{0.1, -0.3, 0.5, 0.2}, tensor.Shape{4})})
}

func TestGradMatMul(t *testing.T) {
	a := graph.Matrix("a", tensor.Float64, 2, 3)
	b := graph.Matrix("b", tensor.Float64, 3, 2)
	cost := graph.Sum(graph.MatMul(a, b))
	checkGradients(t, cost, []*graph.Var{a, b}, []*tensor.Tensor{
		tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
		tensor.MustFromSlice([]float64{0.5, -1, 2, 0.25, -0.5, 1}, tensor.Shape{3, 2}),
	})
}

func TestGradBroadcastBias(t *testing.T) {
	x := graph.Matrix("x", tensor.Float64, 3, 2)
	b := graph.Vector("b", tensor.Float64, 2)
	cost := graph.Sum(graph.Sigmoid(graph.Add(x, b)))
	checkGradients(t, cost, []*graph.Var{x, b}, []*tensor.Tensor{
		tensor.MustFromSlice([]float64{0.2, -0.4, 0.6, 0.1, -0.3, 0.5}, tensor.Shape{3, 2}),
		tensor.MustFromSlice([]float64{0.7, -0.2}, tensor.Shape{2}),
	})
}

func TestGradLogSumExp(t *testing.T) {
	// The stability rewrite replaces the graph; gradients must still match
	// the mathematical derivative of the original expression.
	x := graph.Vector("x", tensor.Float64, 4)
	cost := graph.Log(graph.Sum(graph.Exp(x)))
	checkGradients(t, cost, []*graph.Var{x},
		[]*tensor.Tensor{tensor.MustFromSlice([]float64{1, 2, 0.5, -1}, tensor.Shape{4})})
}

func TestGradDivision(t *testing.T) {
	x := graph.Vector("x", tensor.Float64, 2)
	y := graph.Vector("y", tensor.Float64, 2)
	cost := graph.Sum(graph.Div(x, y))
	checkGradients(t, cost, []*graph.Var{x, y}, []*tensor.Tensor{
		tensor.MustFromSlice([]float64{1, -2}, tensor.Shape{2}),
		tensor.MustFromSlice([]float64{2, 4}, tensor.Shape{2}),
	})
}

func TestGradMeanDim(t *testing.T) {
	x := graph.Matrix("x", tensor.Float64, 2, 3)
	cost := graph.Sum(graph.Sqr(graph.MeanDim(x, 1, false)))
	checkGradients(t, cost, []*graph.Var{x},
		[]*tensor.Tensor{tensor.MustFromSlice([]float64{1, 2, 3, -1, 0, 1}, tensor.Shape{2, 3})})
}
