package gru

import (
	"math"
	"math/rand"
)

// gruLayer is a gated recurrent layer:
//
//	z  = σ(Wz x + Uz h + bz)
//	r  = σ(Wr x + Ur h + br)
//	hh = tanh(Wh x + Uh (r ⊙ h) + bh)
//	h' = z ⊙ h + (1 - z) ⊙ hh
type gruLayer struct {
	inputs, units int
	wz, wr, wh    *param // [units, inputs]
	uz, ur, uh    *param // [units, units]
	bz, br, bh    *param // [units]
}

// gruStep caches one time step for backpropagation
type gruStep struct {
	x, hp       []float64
	z, r, hh, h []float64
}

func newGRULayer(name string, inputs, units int, rng *rand.Rand) *gruLayer {
	l := &gruLayer{
		inputs: inputs,
		units:  units,
		wz:     newParam(name+"/wz", units, inputs),
		wr:     newParam(name+"/wr", units, inputs),
		wh:     newParam(name+"/wh", units, inputs),
		uz:     newParam(name+"/uz", units, units),
		ur:     newParam(name+"/ur", units, units),
		uh:     newParam(name+"/uh", units, units),
		bz:     newParam(name+"/bz", units, 1),
		br:     newParam(name+"/br", units, 1),
		bh:     newParam(name+"/bh", units, 1),
	}
	// fan-out counts all three gates, matching a fused [inputs, 3*units] kernel
	for _, w := range []*param{l.wz, l.wr, l.wh} {
		w.glorotUniform(rng, inputs, 3*units)
	}
	for _, u := range []*param{l.uz, l.ur, l.uh} {
		u.orthogonal(rng)
	}
	return l
}

func (l *gruLayer) params() []*param {
	return []*param{l.wz, l.wr, l.wh, l.uz, l.ur, l.uh, l.bz, l.br, l.bh}
}

func (l *gruLayer) step(x, hp []float64) gruStep {
	u := l.units
	s := gruStep{
		x:  x,
		hp: hp,
		z:  make([]float64, u),
		r:  make([]float64, u),
		hh: make([]float64, u),
		h:  make([]float64, u),
	}

	copy(s.z, l.bz.w)
	mulAdd(s.z, l.wz, x)
	mulAdd(s.z, l.uz, hp)

	copy(s.r, l.br.w)
	mulAdd(s.r, l.wr, x)
	mulAdd(s.r, l.ur, hp)

	rh := make([]float64, u)
	for j := 0; j < u; j++ {
		s.z[j] = sigmoid(s.z[j])
		s.r[j] = sigmoid(s.r[j])
		rh[j] = s.r[j] * hp[j]
	}

	copy(s.hh, l.bh.w)
	mulAdd(s.hh, l.wh, x)
	mulAdd(s.hh, l.uh, rh)

	for j := 0; j < u; j++ {
		s.hh[j] = math.Tanh(s.hh[j])
		s.h[j] = s.z[j]*hp[j] + (1-s.z[j])*s.hh[j]
	}
	return s
}

// forward runs the sequence from a zero initial state
func (l *gruLayer) forward(seq [][]float64) []gruStep {
	steps := make([]gruStep, len(seq))
	h := make([]float64, l.units)
	for t, x := range seq {
		steps[t] = l.step(x, h)
		h = steps[t].h
	}
	return steps
}

// backward accumulates parameter gradients through time.
// dh[t] is the upstream gradient on h[t] and may be nil.
// Returns the gradient on every input step.
func (l *gruLayer) backward(steps []gruStep, dh [][]float64) [][]float64 {
	u := l.units
	dx := make([][]float64, len(steps))
	dhNext := make([]float64, u)

	daz := make([]float64, u)
	dar := make([]float64, u)
	dah := make([]float64, u)
	rh := make([]float64, u)

	for t := len(steps) - 1; t >= 0; t-- {
		s := steps[t]
		dht := dhNext
		if dh[t] != nil {
			for j := range dht {
				dht[j] += dh[t][j]
			}
		}

		dhp := make([]float64, u)
		for j := 0; j < u; j++ {
			dz := dht[j] * (s.hp[j] - s.hh[j])
			daz[j] = dz * s.z[j] * (1 - s.z[j])
			dah[j] = dht[j] * (1 - s.z[j]) * (1 - s.hh[j]*s.hh[j])
			dhp[j] = dht[j] * s.z[j]
			rh[j] = s.r[j] * s.hp[j]
		}

		outerAdd(l.wh, dah, s.x)
		outerAdd(l.uh, dah, rh)
		addGrad(l.bh, dah)

		drh := make([]float64, u)
		mulTAdd(drh, l.uh, dah)
		for j := 0; j < u; j++ {
			dar[j] = drh[j] * s.hp[j] * s.r[j] * (1 - s.r[j])
			dhp[j] += drh[j] * s.r[j]
		}

		outerAdd(l.wz, daz, s.x)
		outerAdd(l.uz, daz, s.hp)
		addGrad(l.bz, daz)
		outerAdd(l.wr, dar, s.x)
		outerAdd(l.ur, dar, s.hp)
		addGrad(l.br, dar)

		mulTAdd(dhp, l.uz, daz)
		mulTAdd(dhp, l.ur, dar)

		dxt := make([]float64, l.inputs)
		mulTAdd(dxt, l.wz, daz)
		mulTAdd(dxt, l.wr, dar)
		mulTAdd(dxt, l.wh, dah)
		dx[t] = dxt

		dhNext = dhp
	}
	return dx
}

// denseLayer is a fully-connected sigmoid head producing independent per-bit probabilities
type denseLayer struct {
	inputs, outputs int
	w               *param // [outputs, inputs]
	b               *param // [outputs]
}

func newDenseLayer(name string, inputs, outputs int, rng *rand.Rand) *denseLayer {
	l := &denseLayer{
		inputs:  inputs,
		outputs: outputs,
		w:       newParam(name+"/w", outputs, inputs),
		b:       newParam(name+"/b", outputs, 1),
	}
	l.w.glorotUniform(rng, inputs, outputs)
	return l
}

func (l *denseLayer) params() []*param {
	return []*param{l.w, l.b}
}

func (l *denseLayer) forward(x []float64) []float64 {
	out := make([]float64, l.outputs)
	copy(out, l.b.w)
	mulAdd(out, l.w, x)
	for i := range out {
		out[i] = sigmoid(out[i])
	}
	return out
}

// backward takes the gradient on the pre-activation and returns the gradient on x
func (l *denseLayer) backward(x, dlogit []float64) []float64 {
	outerAdd(l.w, dlogit, x)
	addGrad(l.b, dlogit)
	dx := make([]float64, l.inputs)
	mulTAdd(dx, l.w, dlogit)
	return dx
}

// dropoutMask draws an inverted-dropout mask; survivors are scaled by 1/(1-rate)
func dropoutMask(rng *rand.Rand, n int, rate float64) []float64 {
	mask := make([]float64, n)
	if rate <= 0 {
		for i := range mask {
			mask[i] = 1
		}
		return mask
	}
	keep := 1 / (1 - rate)
	for i := range mask {
		if rng.Float64() >= rate {
			mask[i] = keep
		}
	}
	return mask
}
