package gru

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/tensor"
)

// Session is one in-flight training call. Progress is pulled from Epochs;
// the model stays locked for training until the sequence ends.
type Session struct {
	m      *Model
	ctx    context.Context
	opts   TrainOptions
	trainX *tensor.Tensor3
	trainY *tensor.Tensor2
	testX  *tensor.Tensor3
	testY  *tensor.Tensor2

	mu        sync.Mutex
	history   model.History
	err       error
	started   bool
	done      bool
	cancelled bool
	finished  chan struct{}
}

// Fit validates the partitions and starts a training session.
// Preconditions fail synchronously: ErrModelNotBuilt, ErrEmptySplit,
// ErrTrainingInProgress or a shape mismatch. The test partition may be empty.
func (m *Model) Fit(ctx context.Context, trainX *tensor.Tensor3, trainY *tensor.Tensor2, testX *tensor.Tensor3, testY *tensor.Tensor2, opts TrainOptions) (*Session, error) {
	if !m.built {
		return nil, model.ErrModelNotBuilt
	}
	if err := m.checkPair(trainX, trainY); err != nil {
		return nil, fmt.Errorf("train partition: %w", err)
	}
	if trainX.Len() == 0 {
		return nil, model.ErrEmptySplit
	}
	if testX != nil {
		if err := m.checkPair(testX, testY); err != nil {
			return nil, fmt.Errorf("test partition: %w", err)
		}
	}
	if !m.training.CompareAndSwap(false, true) {
		return nil, model.ErrTrainingInProgress
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return &Session{
		m:      m,
		ctx:    ctx,
		opts:   opts.withDefaults(),
		trainX: trainX,
		trainY: trainY,
		testX:  testX,
		testY:  testY,

		finished: make(chan struct{}),
	}, nil
}

// Train runs a full session and returns its history
func (m *Model) Train(ctx context.Context, trainX *tensor.Tensor3, trainY *tensor.Tensor2, testX *tensor.Tensor3, testY *tensor.Tensor2, opts TrainOptions) (model.History, error) {
	s, err := m.Fit(ctx, trainX, trainY, testX, testY, opts)
	if err != nil {
		return nil, err
	}
	return s.Wait()
}

// Epochs returns the progress sequence. Each epoch runs lazily when the
// consumer asks for the next record. Stopping early cancels the session.
// The sequence can be consumed once.
func (s *Session) Epochs() iter.Seq[model.Progress] {
	return func(yield func(model.Progress) bool) {
		s.mu.Lock()
		if s.started {
			s.mu.Unlock()
			return
		}
		s.started = true
		s.mu.Unlock()
		defer s.finish()

		for e := 0; e < s.opts.Epochs; e++ {
			if err := s.interrupted(); err != nil {
				s.fail(err)
				return
			}

			start := time.Now()
			p := s.m.runEpoch(s.trainX, s.trainY, s.testX, s.testY, s.opts)
			p.Duration = time.Since(start)

			s.mu.Lock()
			s.history = append(s.history, p)
			s.mu.Unlock()

			logEpoch(p)
			if s.opts.OnEpoch != nil {
				s.opts.OnEpoch(p)
			}
			if !yield(p) {
				s.fail(model.ErrTrainingCancelled)
				return
			}
		}
	}
}

// Wait drains the remaining epochs and returns the history
func (s *Session) Wait() (model.History, error) {
	for range s.Epochs() {
	}
	return s.History(), s.Err()
}

// Cancel stops the session at the next epoch boundary.
// A session that was never iterated finishes immediately.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	idle := !s.started
	if idle {
		s.started = true
		if s.err == nil {
			s.err = model.ErrTrainingCancelled
		}
	}
	s.mu.Unlock()
	if idle {
		s.finish()
	}
}

// Finished is closed once the session has stopped touching the model and its tensors
func (s *Session) Finished() <-chan struct{} {
	return s.finished
}

// Stop cancels the session and blocks until the running epoch returns.
// It must not be called from inside the session's own Epochs loop.
func (s *Session) Stop() {
	s.Cancel()
	<-s.finished
}

// History returns the records produced so far
func (s *Session) History() model.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.History, len(s.history))
	copy(out, s.history)
	return out
}

// Err returns the reason the session stopped early, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done reports whether the session has released the model
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) interrupted() error {
	s.mu.Lock()
	cancelled := s.cancelled
	s.mu.Unlock()
	if cancelled {
		return model.ErrTrainingCancelled
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrTrainingCancelled, err)
	}
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.m.training.Store(false)
	close(s.finished)
}

func logEpoch(p model.Progress) {
	if !p.Finite() {
		logging.Warn().
			Int("epoch", p.Epoch+1).
			Float64("loss", p.Loss).
			Float64("val_loss", p.ValLoss).
			Msg("Non-finite training metrics")
		return
	}
	logging.Debug().
		Int("epoch", p.Epoch+1).
		Float64("loss", p.Loss).
		Float64("accuracy", p.Accuracy).
		Float64("val_loss", p.ValLoss).
		Float64("val_accuracy", p.ValAccuracy).
		Dur("duration", p.Duration).
		Msg("Epoch complete")
}
