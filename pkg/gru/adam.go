package gru

import "math"

// adam implements the Adam optimizer over a fixed parameter set
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
}

func newAdam(cfg Config) *adam {
	return &adam{lr: cfg.LearningRate, beta1: cfg.Beta1, beta2: cfg.Beta2, eps: cfg.Epsilon}
}

// step applies one update from the accumulated gradients
func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range params {
		for i, g := range p.g {
			p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
			p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g
			mHat := p.m[i] / c1
			vHat := p.v[i] / c2
			p.w[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
