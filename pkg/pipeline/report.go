package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/tunogya/gametrend/pkg/evaluate"
	"github.com/tunogya/gametrend/pkg/metrics"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/tensor"
)

// Report is the outcome of evaluating the model on the test partition
type Report struct {
	RunID            string                   `json:"run_id"`
	Platforms        []string                 `json:"platforms"`
	Horizon          int                      `json:"horizon"`
	TrainWindows     int                      `json:"train_windows"`
	TestWindows      int                      `json:"test_windows"`
	Epochs           int                      `json:"epochs"`
	Evaluation       model.Evaluation         `json:"evaluation"`
	PlatformAccuracy map[string]float64       `json:"platform_accuracy"`
	Ranking          []evaluate.PlatformScore `json:"ranking"`
	Timeline         evaluate.Timeline        `json:"timeline"`
	CreatedAt        time.Time                `json:"created_at"`
}

// Evaluate predicts the test partition and scores it per platform.
// An empty test partition yields zero accuracy for every platform.
func (p *Pipeline) Evaluate() (*Report, error) {
	start := time.Now()
	r, err := p.evaluate()
	metrics.RecordStage(StageEvaluate, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	metrics.RecordPlatformAccuracy(r.PlatformAccuracy)
	p.log.Info().
		Float64("loss", r.Evaluation.Loss).
		Float64("accuracy", r.Evaluation.Accuracy).
		Float64("mean_platform_accuracy", evaluate.Mean(r.PlatformAccuracy)).
		Msg("Evaluation complete")
	return r, nil
}

func (p *Pipeline) evaluate() (*Report, error) {
	if p.model == nil {
		return nil, model.ErrModelNotBuilt
	}
	if p.training() {
		return nil, model.ErrTrainingInProgress
	}
	if p.dataset == nil || p.dataset.Released() {
		return nil, model.ErrInsufficientData
	}
	ds := p.dataset

	scope := tensor.NewScope()
	defer scope.Release()

	ev, err := p.model.Evaluate(ds.TestX, ds.TestY)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	pred, err := p.model.Predict(ds.TestX)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	scope.Track(pred)

	horizon := ds.Layout.Horizon
	acc, err := evaluate.PerPlatformAccuracy(ds.TestY, pred, ds.Platforms, horizon)
	if err != nil {
		return nil, err
	}
	timeline, err := evaluate.BuildTimeline(ds.TestY, pred, ds.Platforms, horizon)
	if err != nil {
		return nil, err
	}

	return &Report{
		RunID:            p.runID,
		Platforms:        ds.Platforms,
		Horizon:          horizon,
		TrainWindows:     ds.TrainX.Len(),
		TestWindows:      ds.TestX.Len(),
		Epochs:           p.model.Epochs(),
		Evaluation:       ev,
		PlatformAccuracy: acc,
		Ranking:          evaluate.Rank(acc),
		Timeline:         timeline,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// String renders the ranking table
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s | %d train / %d test windows | %d epochs\n", r.RunID, r.TrainWindows, r.TestWindows, r.Epochs)
	fmt.Fprintf(&b, "Test loss: %.4f | Test accuracy: %.4f\n", r.Evaluation.Loss, r.Evaluation.Accuracy)
	b.WriteString("Platform\tAccuracy\tRating\n")
	for _, s := range r.Ranking {
		fmt.Fprintf(&b, "%s\t%.1f%%\t%s\n", s.Platform, s.Accuracy*100, s.Rating)
	}
	return b.String()
}

// Forecast is the predicted direction of each platform past the latest data.
// Offsets count from the year after the last input row.
type Forecast struct {
	RunID      string      `json:"run_id"`
	LatestYear int         `json:"latest_year"`
	Platforms  []string    `json:"platforms"`
	Horizon    int         `json:"horizon"`
	Prob       [][]float64 `json:"probabilities"` // [platform][offset]
	Increase   [][]bool    `json:"increase"`      // Prob > 0.5
}

// Forecast predicts from the most recent L rows of the series
func (p *Pipeline) Forecast() (*Forecast, error) {
	start := time.Now()
	f, err := p.forecast()
	metrics.RecordStage(StageForecast, time.Since(start), err)
	return f, err
}

func (p *Pipeline) forecast() (*Forecast, error) {
	if p.model == nil {
		return nil, model.ErrModelNotBuilt
	}
	if p.training() {
		return nil, model.ErrTrainingInProgress
	}
	if p.series == nil || p.dataset == nil {
		return nil, model.ErrInsufficientData
	}

	layout := p.dataset.Layout
	latest, err := p.dataset.Latest(p.series.Rows)
	if err != nil {
		return nil, err
	}

	scope := tensor.NewScope()
	defer scope.Release()

	x, err := tensor.FromSequences(len(latest), layout.Width(), [][][]float64{latest})
	if err != nil {
		return nil, err
	}
	scope.Track(x)
	pred, err := p.model.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	scope.Track(pred)

	f := &Forecast{
		RunID:      p.runID,
		LatestYear: p.series.Rows[len(p.series.Rows)-1].Year,
		Platforms:  layout.Platforms,
		Horizon:    layout.Horizon,
		Prob:       make([][]float64, len(layout.Platforms)),
		Increase:   make([][]bool, len(layout.Platforms)),
	}
	row := pred.Row(0)
	for pi := range layout.Platforms {
		f.Prob[pi] = make([]float64, layout.Horizon)
		f.Increase[pi] = make([]bool, layout.Horizon)
		for o := 0; o < layout.Horizon; o++ {
			v := row[layout.LabelIndex(pi, o)]
			f.Prob[pi][o] = v
			f.Increase[pi][o] = evaluate.Binarize(v) == 1
		}
	}
	return f, nil
}

// String renders one line per platform
func (f *Forecast) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Forecast after %d\n", f.LatestYear)
	for pi, name := range f.Platforms {
		b.WriteString(name)
		for o, v := range f.Prob[pi] {
			dir := "down"
			if f.Increase[pi][o] {
				dir = "up"
			}
			fmt.Fprintf(&b, "\t+%d: %s (%.2f)", o+1, dir, v)
		}
		b.WriteString("\n")
	}
	return b.String()
}
