// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"fmt"

	"github.com/glia-ml/glia/expr"
	"github.com/glia-ml/glia/tensor"
)

// AdamConfig holds hyperparameters for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moving-average coefficients (default: [0.9, 0.999])
	Eps   float64    // Denominator stabilizer (default: 1e-8)
}

// Adam returns the update pairs for one Adam step on cost with respect to
// params. Two moment cells are created per parameter and one shared step
// counter per call to Adam.
//
// Update rule (Kingma & Ba, 2014):
//
//	t = t + 1
//	m = beta1*m + (1-beta1)*gradient
//	v = beta2*v + (1-beta2)*gradient²
//	m_hat = m / (1 - beta1^t)
//	v_hat = v / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
func Adam(cost *expr.Var, params []*expr.Shared, config AdamConfig) ([]expr.Update, error) {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
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

	// One step counter drives the bias correction for the whole group.
	step := expr.NewShared("adam.step", tensor.Scalar(0.0))
	stepNew := expr.Add(step.Var(), expr.ConstScalar(tensor.Float64, 1))

	beta1 := expr.ConstScalar(tensor.Float64, config.Betas[0])
	beta2 := expr.ConstScalar(tensor.Float64, config.Betas[1])
	one := expr.ConstScalar(tensor.Float64, 1)
	corr1 := expr.Sub(one, expr.Pow(beta1, stepNew))
	corr2 := expr.Sub(one, expr.Pow(beta2, stepNew))

	updates := []expr.Update{{Shared: step, Expr: stepNew}}
	for i, p := range params {
		v := p.Var()
		g := grads[i]
		dt := v.DType()

		m := expr.NewShared(p.Name()+".m", tensor.Zeros(v.Shape(), dt))
		s := expr.NewShared(p.Name()+".v", tensor.Zeros(v.Shape(), dt))

		b1 := expr.ConstScalar(dt, config.Betas[0])
		b2 := expr.ConstScalar(dt, config.Betas[1])
		oneMinusB1 := expr.ConstScalar(dt, 1-config.Betas[0])
		oneMinusB2 := expr.ConstScalar(dt, 1-config.Betas[1])

		mNew := expr.Add(expr.Mul(b1, m.Var()), expr.Mul(oneMinusB1, g))
		sNew := expr.Add(expr.Mul(b2, s.Var()), expr.Mul(oneMinusB2, expr.Sqr(g)))

		mHat := expr.Div(mNew, expr.Cast(corr1, dt))
		sHat := expr.Div(sNew, expr.Cast(corr2, dt))

		lr := expr.ConstScalar(dt, config.LR)
		eps := expr.ConstScalar(dt, config.Eps)
		delta := expr.Div(expr.Mul(lr, mHat), expr.Add(expr.Sqrt(sHat), eps))

		updates = append(updates,
			expr.Update{Shared: m, Expr: mNew},
			expr.Update{Shared: s, Expr: sNew},
			expr.Update{Shared: p, Expr: expr.Sub(v, delta)},
		)
	}
	return updates, nil
}
