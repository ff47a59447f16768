// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"fmt"

	"github.com/glia-ml/glia/expr"
	"github.com/glia-ml/glia/tensor"
)

// SGDConfig holds hyperparameters for stochastic gradient descent.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum coefficient (default: 0, plain SGD)
}

// SGD returns the update pairs for one gradient-descent step on cost with
// respect to params.
//
// Plain SGD:
//
//	param = param - lr * gradient
//
// With momentum, a velocity cell is created per parameter:
//
//	velocity = momentum * velocity + gradient
//	param    = param - lr * velocity
func SGD(cost *expr.Var, params []*expr.Shared, config SGDConfig) ([]expr.Update, error) {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("optim: no parameters")
	}

	wrt := make([]*expr.Var, len(params))
	for i, p := range params {
		wrt[i] = p.Var()
	}
	grads, err := expr.Grad(cost, wrt...)
	if err != nil {
		return nil, err
	}

	var updates []expr.Update
	for i, p := range params {
		v := p.Var()
		lr := expr.ConstScalar(v.DType(), config.LR)
		g := grads[i]

		if config.Momentum == 0 {
			updates = append(updates, expr.Update{
				Shared: p,
				Expr:   expr.Sub(v, expr.Mul(lr, g)),
			})
			continue
		}

		vel := expr.NewShared(p.Name()+".velocity", tensor.Zeros(v.Shape(), v.DType()))
		mom := expr.ConstScalar(v.DType(), config.Momentum)
		velNew := expr.Add(expr.Mul(mom, vel.Var()), g)
		updates = append(updates,
			expr.Update{Shared: vel, Expr: velNew},
			expr.Update{Shared: p, Expr: expr.Sub(v, expr.Mul(lr, velNew))},
		)
	}
	return updates, nil
}
