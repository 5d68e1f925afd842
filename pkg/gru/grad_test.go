package gru

import (
	"math"
	"math/rand"
	"testing"
)

func exampleLoss(m *Model, seq [][]float64, y []float64) float64 {
	f := m.forward(seq, false)
	return binaryCrossEntropy(y, f.out)
}

// TestGradientCheck compares backpropagated gradients with central differences
func TestGradientCheck(t *testing.T) {
	t.Parallel()

	m := New(Config{Units: [2]int{4, 3}, DropoutRate: NoDropout, Seed: 11})
	if err := m.Build([2]int{3, 2}, 2); err != nil {
		t.Fatalf("Build: %v", err)
	}

	rng := rand.New(rand.NewSource(5))
	seq := make([][]float64, 3)
	for s := range seq {
		seq[s] = []float64{rng.Float64(), rng.Float64()}
	}
	y := []float64{1, 0}

	m.zeroGrad()
	f := m.forward(seq, true)
	dlogit := make([]float64, len(y))
	for j := range dlogit {
		dlogit[j] = (f.out[j] - y[j]) / float64(len(y))
	}
	m.backward(f, dlogit)

	const eps = 1e-5
	for _, p := range m.params {
		for i := range p.w {
			orig := p.w[i]
			p.w[i] = orig + eps
			plus := exampleLoss(m, seq, y)
			p.w[i] = orig - eps
			minus := exampleLoss(m, seq, y)
			p.w[i] = orig

			numeric := (plus - minus) / (2 * eps)
			analytic := p.g[i]
			tol := 1e-6 + 1e-4*(math.Abs(numeric)+math.Abs(analytic))
			if math.Abs(numeric-analytic) > tol {
				t.Errorf("%s[%d]: analytic %.8g numeric %.8g", p.name, i, analytic, numeric)
			}
		}
	}
}

func TestOrthogonalInit(t *testing.T) {
	t.Parallel()

	p := newParam("u", 5, 5)
	p.orthogonal(rand.New(rand.NewSource(1)))
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			d := dot(p.w[i*5:(i+1)*5], p.w[j*5:(j+1)*5])
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(d-want) > 1e-9 {
				t.Errorf("row %d · row %d = %v, want %v", i, j, d, want)
			}
		}
	}
}

func TestGlorotUniformBounds(t *testing.T) {
	t.Parallel()

	p := newParam("w", 8, 4)
	p.glorotUniform(rand.New(rand.NewSource(1)), 4, 24)
	limit := math.Sqrt(6.0 / 28)
	for i, v := range p.w {
		if math.Abs(v) > limit {
			t.Errorf("w[%d] = %v exceeds limit %v", i, v, limit)
		}
	}
}

func TestDropoutMask(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	mask := dropoutMask(rng, 1000, 0.2)
	kept := 0
	for _, v := range mask {
		switch v {
		case 0:
		case 1.25:
			kept++
		default:
			t.Fatalf("unexpected mask value %v", v)
		}
	}
	if kept < 700 || kept > 900 {
		t.Errorf("kept %d of 1000, expected about 800", kept)
	}

	for _, v := range dropoutMask(rng, 10, 0) {
		if v != 1 {
			t.Fatalf("zero rate should keep everything, got %v", v)
		}
	}
}

func TestLossAndMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		y, p    []float64
		loss    float64
		matches int
	}{
		{"perfect", []float64{1, 0}, []float64{1, 0}, -math.Log(1 - probEpsilon), 2},
		{"half", []float64{1, 0}, []float64{0.5, 0.5}, math.Log(2), 1},
		{"threshold is exclusive", []float64{1}, []float64{0.5}, math.Log(2), 0},
		{"above threshold", []float64{1, 1}, []float64{0.51, 0.9}, (-math.Log(0.51) - math.Log(0.9)) / 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := binaryCrossEntropy(tt.y, tt.p); math.Abs(got-tt.loss) > 1e-9 {
				t.Errorf("loss = %v, want %v", got, tt.loss)
			}
			if got := bitMatches(tt.y, tt.p); got != tt.matches {
				t.Errorf("matches = %d, want %d", got, tt.matches)
			}
		})
	}
}

func TestAdamStep(t *testing.T) {
	t.Parallel()

	p := newParam("w", 1, 2)
	p.w[0], p.w[1] = 1, -1
	p.g[0], p.g[1] = 0.5, -2
	a := newAdam(DefaultConfig())
	a.step([]*param{p})

	// first step moves each weight by about lr against its gradient sign
	if d := 1 - p.w[0]; math.Abs(d-0.001) > 1e-6 {
		t.Errorf("w[0] moved %v, want 0.001", d)
	}
	if d := p.w[1] - (-1); math.Abs(d-0.001) > 1e-6 {
		t.Errorf("w[1] moved %v, want 0.001", d)
	}
}
