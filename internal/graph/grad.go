package graph

import (
	"fmt"

	"github.com/glia-ml/glia/internal/tensor"
)

// Grad differentiates a scalar cost with respect to each of the wrt
// variables, returning one symbolic gradient expression per variable, in
// order. Gradients are accumulated in reverse topological order; a wrt
// variable the cost does not depend on gets a zero gradient of its shape.
func Grad(cost *Var, wrt ...*Var) ([]*Var, error) {
	if !cost.DType().IsFloat() {
		return nil, fmt.Errorf("grad: cost must be a float expression, got %s", cost.DType())
	}
	if !cost.Shape().IsScalar() {
		return nil, fmt.Errorf("grad: cost must be a scalar, got shape %v", cost.Shape())
	}
	if len(wrt) == 0 {
		return nil, fmt.Errorf("grad: no variables to differentiate with respect to")
	}

	grads := map[*Var]*Var{
		cost: ConstScalar(cost.DType(), 1),
	}

	order := Topological([]*Var{cost})
	for i := len(order) - 1; i >= 0; i-- {
		a := order[i]
		g, ok := grads[a.Output()]
		if !ok {
			continue
		}
		inputGrads := a.Op().Grad(a.Inputs(), a.Output(), g)
		if len(inputGrads) != len(a.Inputs()) {
			return nil, fmt.Errorf("grad: op %s returned %d gradients for %d inputs",
				a.Op().Name(), len(inputGrads), len(a.Inputs()))
		}
		for j, ig := range inputGrads {
			if ig == nil {
				continue
			}
			in := a.Inputs()[j]
			if !ig.Shape().Equal(in.Shape()) {
				return nil, fmt.Errorf("grad: op %s produced gradient of shape %v for input of shape %v",
					a.Op().Name(), ig.Shape(), in.Shape())
			}
			if prev, ok := grads[in]; ok {
				grads[in] = Add(prev, ig)
			} else {
				grads[in] = ig
			}
		}
	}

	out := make([]*Var, len(wrt))
	for i, w := range wrt {
		if g, ok := grads[w]; ok {
			out[i] = g
			continue
		}
		if !w.DType().IsFloat() {
			return nil, fmt.Errorf("grad: cannot differentiate with respect to %s variable %s", w.DType(), w.Name())
		}
		out[i] = Const(tensor.Zeros(w.Shape(), w.DType()))
	}
	return out, nil
}

// MustGrad is Grad but panics on error.
func MustGrad(cost *Var, wrt ...*Var) []*Var {
	gs, err := Grad(cost, wrt...)
	if err != nil {
		panic(err)
	}
	return gs
}
