// Package pipeline owns one end-to-end run: records are aggregated into a
// yearly series, windowed into train/test tensors, fed to the GRU classifier
// and scored per platform.
//
// A Pipeline is single-owner. Stages are called in order:
//
//	p := pipeline.New(pipeline.DefaultConfig())
//	defer p.Close()
//	if err := p.Prepare(records); err != nil { ... }
//	if err := p.BuildModel(); err != nil { ... }
//	history, err := p.Train(ctx)
//	report, err := p.Evaluate()
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunogya/gametrend/pkg/config"
	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/gru"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/metrics"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/window"
)

// Stage names used in logs and metrics
const (
	StagePrepare  = "prepare"
	StageTrain    = "train"
	StageEvaluate = "evaluate"
	StageForecast = "forecast"
)

// Config gathers the settings of every stage
type Config struct {
	PlatformCount int
	Window        window.Config
	Model         gru.Config
	Train         gru.TrainOptions
}

// DefaultConfig returns K=5, L=3, H=2 and the default network
func DefaultConfig() Config {
	return Config{
		PlatformCount: feature.DefaultPlatformCount,
		Window:        window.DefaultConfig(),
		Model:         gru.DefaultConfig(),
		Train:         gru.DefaultTrainOptions(),
	}
}

// FromConfig maps loaded configuration onto stage settings
func FromConfig(c *config.Config) Config {
	return Config{
		PlatformCount: c.Features.PlatformCount,
		Window:        c.Window(),
		Model:         c.GRU(),
		Train:         c.TrainOptions(),
	}
}

// Pipeline holds the output of each stage and the model trained on it
type Pipeline struct {
	cfg   Config
	runID string
	log   zerolog.Logger

	records int
	series  *feature.Series
	dataset *window.Dataset
	model   *gru.Model
	session *gru.Session
	history model.History

	// OnEpoch, if set, observes every epoch after metrics are recorded
	OnEpoch func(model.Progress)
}

// New creates an empty pipeline with a fresh run ID
func New(cfg Config) *Pipeline {
	id := uuid.New().String()
	return &Pipeline{
		cfg:   cfg,
		runID: id,
		log:   logging.With().Str("run_id", id).Logger(),
	}
}

// RunID identifies this pipeline in logs, messages and storage
func (p *Pipeline) RunID() string {
	return p.runID
}

// Config returns the stage settings
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Series returns the aggregated series, nil before Prepare
func (p *Pipeline) Series() *feature.Series {
	return p.series
}

// Dataset returns the windowed dataset, nil before Prepare
func (p *Pipeline) Dataset() *window.Dataset {
	return p.dataset
}

// Model returns the classifier, nil before BuildModel
func (p *Pipeline) Model() *gru.Model {
	return p.model
}

// History returns every epoch trained by this pipeline
func (p *Pipeline) History() model.History {
	return append(model.History(nil), p.history...)
}

func (p *Pipeline) training() bool {
	return p.session != nil && !p.session.Done()
}

// Prepare aggregates records and windows the resulting series.
// On failure the previous series and dataset stay in place.
func (p *Pipeline) Prepare(records []model.SalesRecord) error {
	if p.training() {
		return model.ErrTrainingInProgress
	}
	start := time.Now()
	series, err := feature.NewAggregator(p.cfg.PlatformCount).Aggregate(records)
	if err != nil {
		metrics.RecordStage(StagePrepare, time.Since(start), err)
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := p.prepareSeries(series, len(records), start); err != nil {
		return err
	}
	p.records = len(records)
	return nil
}

// PrepareSeries windows an already aggregated series, such as one computed in DuckDB
func (p *Pipeline) PrepareSeries(series *feature.Series) error {
	if p.training() {
		return model.ErrTrainingInProgress
	}
	if series == nil || len(series.Rows) == 0 {
		return model.ErrEmptyInput
	}
	return p.prepareSeries(series, p.records, time.Now())
}

func (p *Pipeline) prepareSeries(series *feature.Series, records int, start time.Time) error {
	ds, err := window.Build(series.Rows, series.Platforms, p.cfg.Window)
	metrics.RecordStage(StagePrepare, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}

	if p.dataset != nil {
		p.dataset.Release()
	}
	p.series = series
	p.dataset = ds

	if p.model != nil && (p.model.InputShape() != ds.InputShape() || p.model.OutputSize() != ds.OutputSize()) {
		p.log.Info().Msg("Dataset shape changed, dropping model")
		p.model.Release()
		p.model = nil
	}

	metrics.RecordDataset(ds.TrainX.Len(), ds.TestX.Len())
	p.log.Info().
		Int("records", records).
		Strs("platforms", series.Platforms).
		Int("years", len(series.Rows)).
		Int("windows", ds.WindowCount()).
		Int("train", ds.TrainX.Len()).
		Int("test", ds.TestX.Len()).
		Msg("Dataset prepared")
	return nil
}

// BuildModel creates and initialises the classifier for the current dataset
func (p *Pipeline) BuildModel() error {
	if p.dataset == nil {
		return model.ErrInsufficientData
	}
	if p.training() {
		return model.ErrTrainingInProgress
	}
	m := gru.New(p.cfg.Model)
	if err := m.Build(p.dataset.InputShape(), p.dataset.OutputSize()); err != nil {
		return fmt.Errorf("build model: %w", err)
	}
	if p.model != nil {
		p.model.Release()
	}
	p.model = m
	p.log.Debug().Int("params", m.ParamCount()).Msg("Model built")
	return nil
}

// Fit starts a training session on the current partitions; the caller drives it.
// Every epoch is recorded in the pipeline history and metrics.
func (p *Pipeline) Fit(ctx context.Context) (*gru.Session, error) {
	if p.model == nil {
		return nil, model.ErrModelNotBuilt
	}
	if p.dataset == nil || p.dataset.Released() {
		return nil, model.ErrInsufficientData
	}

	opts := p.cfg.Train
	opts.OnEpoch = func(pr model.Progress) {
		p.history = append(p.history, pr)
		metrics.RecordEpoch(pr)
		if !pr.Finite() {
			p.log.Warn().Int("epoch", pr.Epoch+1).Float64("loss", pr.Loss).Msg("Non-finite loss, not retrying")
		}
		if p.OnEpoch != nil {
			p.OnEpoch(pr)
		}
	}

	ds := p.dataset
	s, err := p.model.Fit(ctx, ds.TrainX, ds.TrainY, ds.TestX, ds.TestY, opts)
	if err != nil {
		return nil, err
	}
	p.session = s
	return s, nil
}

// Train runs a full training session and returns its epochs
func (p *Pipeline) Train(ctx context.Context) (model.History, error) {
	start := time.Now()
	s, err := p.Fit(ctx)
	if err != nil {
		metrics.RecordStage(StageTrain, time.Since(start), err)
		return nil, err
	}
	h, err := s.Wait()
	metrics.RecordStage(StageTrain, time.Since(start), err)

	ev := p.log.Info()
	if err != nil {
		ev = p.log.Warn().Err(err)
	}
	if last, ok := h.Last(); ok {
		ev = ev.Float64("loss", last.Loss).Float64("val_loss", last.ValLoss).Float64("val_accuracy", last.ValAccuracy)
	}
	ev.Int("epochs", len(h)).Dur("duration", time.Since(start)).Msg("Training finished")
	return h, err
}

// TrainResult is the outcome of an asynchronous training call
type TrainResult struct {
	History model.History
	Err     error
}

// TrainAsync trains on a new goroutine and delivers the result once.
// The pipeline must not be used until the result arrives.
func (p *Pipeline) TrainAsync(ctx context.Context) <-chan TrainResult {
	out := make(chan TrainResult, 1)
	s, err := p.Fit(ctx)
	if err != nil {
		out <- TrainResult{Err: err}
		close(out)
		return out
	}
	go func() {
		defer close(out)
		h, err := s.Wait()
		out <- TrainResult{History: h, Err: err}
	}()
	return out
}

// Close stops any open session, waits for its epoch to return, then
// releases the dataset tensors and the model weights
func (p *Pipeline) Close() {
	if p.session != nil {
		p.session.Stop()
	}
	if p.dataset != nil {
		p.dataset.Release()
	}
	if p.model != nil {
		p.model.Release()
	}
}
