// Package gru implements the two-layer GRU multi-label classifier that predicts
// per-platform sales increases.
//
// The network is GRU(32, full sequence) → Dropout(0.2) → GRU(16, last step) →
// Dense(sigmoid), trained with binary cross-entropy and Adam. Each output bit
// is an independent probability; there is no normalisation across outputs.
//
// A Model is single-owner: Build it, Fit it one session at a time, then
// Predict or Evaluate. Release drops the weights.
package gru

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/tensor"
)

// Model is the stacked GRU classifier
type Model struct {
	cfg Config

	built   bool
	steps   int // L
	width   int // features per step
	outputs int // K*H

	l1    *gruLayer
	l2    *gruLayer
	dense *denseLayer

	params []*param
	opt    *adam
	rng    *rand.Rand

	epochs   int // completed epochs across all sessions
	training atomic.Bool
}

// New creates an unbuilt model with the given configuration
func New(cfg Config) *Model {
	return &Model{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration
func (m *Model) Config() Config {
	return m.cfg
}

// Build initialises the weights for inputs of shape [steps, width] and outputSize bits.
// Building again discards previous weights and training state.
func (m *Model) Build(inputShape [2]int, outputSize int) error {
	if m.training.Load() {
		return model.ErrTrainingInProgress
	}
	if inputShape[0] <= 0 || inputShape[1] <= 0 || outputSize <= 0 {
		return fmt.Errorf("invalid model shape: input %v, output %d", inputShape, outputSize)
	}

	m.rng = rand.New(rand.NewSource(m.cfg.Seed))
	m.steps, m.width, m.outputs = inputShape[0], inputShape[1], outputSize
	m.l1 = newGRULayer("gru_1", m.width, m.cfg.Units[0], m.rng)
	m.l2 = newGRULayer("gru_2", m.cfg.Units[0], m.cfg.Units[1], m.rng)
	m.dense = newDenseLayer("dense_1", m.cfg.Units[1], outputSize, m.rng)

	m.params = nil
	m.params = append(m.params, m.l1.params()...)
	m.params = append(m.params, m.l2.params()...)
	m.params = append(m.params, m.dense.params()...)
	m.opt = newAdam(m.cfg)
	m.epochs = 0
	m.built = true
	return nil
}

// IsBuilt returns whether Build has been called
func (m *Model) IsBuilt() bool {
	return m.built
}

// IsTrained returns whether at least one epoch has completed
func (m *Model) IsTrained() bool {
	return m.built && m.epochs > 0
}

// Epochs returns the number of completed epochs
func (m *Model) Epochs() int {
	return m.epochs
}

// InputShape returns [steps, width]
func (m *Model) InputShape() [2]int {
	return [2]int{m.steps, m.width}
}

// OutputSize returns the number of output bits
func (m *Model) OutputSize() int {
	return m.outputs
}

// ParamCount returns the number of trainable weights
func (m *Model) ParamCount() int {
	n := 0
	for _, p := range m.params {
		n += len(p.w)
	}
	return n
}

// Summary describes the layer stack and output shapes
func (m *Model) Summary() string {
	if !m.built {
		return "Model not built."
	}
	var b strings.Builder
	b.WriteString("Model Architecture:\n")
	fmt.Fprintf(&b, "1. GRU: [null,%d,%d]\n", m.steps, m.cfg.Units[0])
	fmt.Fprintf(&b, "2. Dropout(%.2f): [null,%d,%d]\n", m.cfg.DropoutRate, m.steps, m.cfg.Units[0])
	fmt.Fprintf(&b, "3. GRU: [null,%d]\n", m.cfg.Units[1])
	fmt.Fprintf(&b, "4. Dense(sigmoid): [null,%d]\n", m.outputs)
	fmt.Fprintf(&b, "Trainable params: %d\n", m.ParamCount())
	return b.String()
}

// Release drops the weights; the model must be built again before use.
// It fails with ErrTrainingInProgress while a session is open.
func (m *Model) Release() error {
	if m.training.Load() {
		return model.ErrTrainingInProgress
	}
	m.l1, m.l2, m.dense = nil, nil, nil
	m.params = nil
	m.opt = nil
	m.built = false
	m.epochs = 0
	return nil
}

// forwardPass caches everything needed to backpropagate one example
type forwardPass struct {
	s1    []gruStep
	masks [][]float64
	s2    []gruStep
	out   []float64
}

func (m *Model) forward(seq [][]float64, training bool) forwardPass {
	var f forwardPass
	f.s1 = m.l1.forward(seq)

	dropped := make([][]float64, len(f.s1))
	if training {
		f.masks = make([][]float64, len(f.s1))
	}
	for t, s := range f.s1 {
		if !training {
			dropped[t] = s.h
			continue
		}
		f.masks[t] = dropoutMask(m.rng, m.l1.units, m.cfg.DropoutRate)
		d := make([]float64, len(s.h))
		for j, v := range s.h {
			d[j] = v * f.masks[t][j]
		}
		dropped[t] = d
	}

	f.s2 = m.l2.forward(dropped)
	f.out = m.dense.forward(f.s2[len(f.s2)-1].h)
	return f
}

// backward accumulates gradients for one example given dL/dlogit
func (m *Model) backward(f forwardPass, dlogit []float64) {
	last := f.s2[len(f.s2)-1].h
	dLast := m.dense.backward(last, dlogit)

	dh2 := make([][]float64, len(f.s2))
	dh2[len(dh2)-1] = dLast
	dx2 := m.l2.backward(f.s2, dh2)

	dh1 := make([][]float64, len(f.s1))
	for t, d := range dx2 {
		if f.masks != nil {
			for j := range d {
				d[j] *= f.masks[t][j]
			}
		}
		dh1[t] = d
	}
	m.l1.backward(f.s1, dh1)
}

func (m *Model) zeroGrad() {
	for _, p := range m.params {
		p.zeroGrad()
	}
}

func (m *Model) checkInput(x *tensor.Tensor3) error {
	if err := x.Check(); err != nil {
		return err
	}
	_, steps, width := x.Shape()
	if steps != m.steps || width != m.width {
		return fmt.Errorf("input shape [%d,%d] does not match model [%d,%d]", steps, width, m.steps, m.width)
	}
	return nil
}

func (m *Model) checkPair(x *tensor.Tensor3, y *tensor.Tensor2) error {
	if err := m.checkInput(x); err != nil {
		return err
	}
	if err := y.Check(); err != nil {
		return err
	}
	rows, cols := y.Shape()
	if cols != m.outputs {
		return fmt.Errorf("label width %d does not match model output %d", cols, m.outputs)
	}
	if rows != x.Len() {
		return fmt.Errorf("%d inputs but %d labels", x.Len(), rows)
	}
	return nil
}

// Predict returns the per-bit probabilities for every sequence in x.
// The caller owns the returned tensor.
func (m *Model) Predict(x *tensor.Tensor3) (*tensor.Tensor2, error) {
	if !m.built {
		return nil, model.ErrModelNotBuilt
	}
	if m.epochs == 0 {
		return nil, model.ErrModelNotTrained
	}
	if err := m.checkInput(x); err != nil {
		return nil, err
	}

	out := tensor.NewTensor2(x.Len(), m.outputs)
	for i := 0; i < x.Len(); i++ {
		f := m.forward(x.Sequence(i), false)
		copy(out.Row(i), f.out)
	}
	return out, nil
}

// Evaluate returns the mean BCE loss and bitwise accuracy on (x, y).
// An empty dataset evaluates to zero loss and accuracy.
func (m *Model) Evaluate(x *tensor.Tensor3, y *tensor.Tensor2) (model.Evaluation, error) {
	if !m.built {
		return model.Evaluation{}, model.ErrModelNotBuilt
	}
	if m.epochs == 0 {
		return model.Evaluation{}, model.ErrModelNotTrained
	}
	if err := m.checkPair(x, y); err != nil {
		return model.Evaluation{}, err
	}
	return m.evaluate(x, y), nil
}

func (m *Model) evaluate(x *tensor.Tensor3, y *tensor.Tensor2) model.Evaluation {
	n := x.Len()
	if n == 0 {
		return model.Evaluation{}
	}
	loss, matches := 0.0, 0
	for i := 0; i < n; i++ {
		f := m.forward(x.Sequence(i), false)
		loss += binaryCrossEntropy(y.Row(i), f.out)
		matches += bitMatches(y.Row(i), f.out)
	}
	return model.Evaluation{
		Loss:     loss / float64(n),
		Accuracy: float64(matches) / float64(n*m.outputs),
	}
}

// trainBatch runs one optimizer step over the given example indices and
// returns the summed example losses and matching bits
func (m *Model) trainBatch(x *tensor.Tensor3, y *tensor.Tensor2, batch []int) (loss float64, matches int) {
	m.zeroGrad()
	scale := 1 / float64(len(batch)*m.outputs)
	dlogit := make([]float64, m.outputs)
	for _, i := range batch {
		f := m.forward(x.Sequence(i), true)
		target := y.Row(i)
		loss += binaryCrossEntropy(target, f.out)
		matches += bitMatches(target, f.out)
		for j := range dlogit {
			dlogit[j] = (f.out[j] - target[j]) * scale
		}
		m.backward(f, dlogit)
	}
	m.opt.step(m.params)
	return loss, matches
}

// runEpoch performs one pass over the train partition and validates on the test partition
func (m *Model) runEpoch(trainX *tensor.Tensor3, trainY *tensor.Tensor2, testX *tensor.Tensor3, testY *tensor.Tensor2, opts TrainOptions) model.Progress {
	n := trainX.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if !opts.NoShuffle {
		m.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	totalLoss, totalMatches := 0.0, 0
	for start := 0; start < n; start += opts.BatchSize {
		end := min(start+opts.BatchSize, n)
		loss, matches := m.trainBatch(trainX, trainY, order[start:end])
		totalLoss += loss
		totalMatches += matches
	}

	p := model.Progress{
		Epoch:    m.epochs,
		Loss:     totalLoss / float64(n),
		Accuracy: float64(totalMatches) / float64(n*m.outputs),
	}
	if testX != nil && testX.Len() > 0 {
		val := m.evaluate(testX, testY)
		p.ValLoss, p.ValAccuracy, p.HasValidation = val.Loss, val.Accuracy, true
	}
	m.epochs++
	return p
}
