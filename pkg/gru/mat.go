package gru

import (
	"math"
	"math/rand"
)

// param is a trainable row-major matrix (or vector when cols == 1)
// with its gradient and Adam moments
type param struct {
	name       string
	rows, cols int
	w, g, m, v []float64
}

func newParam(name string, rows, cols int) *param {
	n := rows * cols
	return &param{
		name: name,
		rows: rows,
		cols: cols,
		w:    make([]float64, n),
		g:    make([]float64, n),
		m:    make([]float64, n),
		v:    make([]float64, n),
	}
}

func (p *param) zeroGrad() {
	for i := range p.g {
		p.g[i] = 0
	}
}

// glorotUniform fills w from U(-limit, limit), limit = sqrt(6 / (fanIn + fanOut))
func (p *param) glorotUniform(rng *rand.Rand, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.w {
		p.w[i] = (rng.Float64()*2 - 1) * limit
	}
}

// orthogonal fills a square matrix with orthonormal rows (Gram-Schmidt on normal samples)
func (p *param) orthogonal(rng *rand.Rand) {
	n := p.rows
	for i := 0; i < n; i++ {
		row := p.w[i*n : (i+1)*n]
		for {
			for j := range row {
				row[j] = rng.NormFloat64()
			}
			for k := 0; k < i; k++ {
				prev := p.w[k*n : (k+1)*n]
				d := dot(row, prev)
				for j := range row {
					row[j] -= d * prev[j]
				}
			}
			norm := math.Sqrt(dot(row, row))
			if norm > 1e-8 {
				for j := range row {
					row[j] /= norm
				}
				break
			}
		}
	}
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// mulAdd computes out += W x for W [rows, cols]
func mulAdd(out []float64, w *param, x []float64) {
	for i := 0; i < w.rows; i++ {
		row := w.w[i*w.cols : (i+1)*w.cols]
		out[i] += dot(row, x)
	}
}

// mulTAdd computes out += Wᵀ d for W [rows, cols]
func mulTAdd(out []float64, w *param, d []float64) {
	for i := 0; i < w.rows; i++ {
		if d[i] == 0 {
			continue
		}
		row := w.w[i*w.cols : (i+1)*w.cols]
		for j, v := range row {
			out[j] += v * d[i]
		}
	}
}

// outerAdd accumulates g += d xᵀ into the gradient of W
func outerAdd(w *param, d, x []float64) {
	for i := 0; i < w.rows; i++ {
		if d[i] == 0 {
			continue
		}
		g := w.g[i*w.cols : (i+1)*w.cols]
		for j, v := range x {
			g[j] += d[i] * v
		}
	}
}

// addGrad accumulates a bias gradient
func addGrad(b *param, d []float64) {
	for i, v := range d {
		b.g[i] += v
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
