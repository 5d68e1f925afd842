package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tunogya/gametrend/pkg/config"
	"github.com/tunogya/gametrend/pkg/data"
	"github.com/tunogya/gametrend/pkg/gru"
	"github.com/tunogya/gametrend/pkg/model"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Model = gru.Config{Units: [2]int{8, 4}, DropoutRate: 0.2, Seed: 1}
	cfg.Train = gru.TrainOptions{Epochs: 3, BatchSize: 4}
	return cfg
}

// yearlyRecords produces one record per platform per year, starting at 2000
func yearlyRecords(years int, platforms ...string) []model.SalesRecord {
	var out []model.SalesRecord
	for y := 0; y < years; y++ {
		for i, p := range platforms {
			g := float64((y*(i+2))%5 + 1)
			out = append(out, model.SalesRecord{
				Platform: p, Year: 2000 + y,
				NASales: g / 2, EUSales: g / 4, JPSales: g / 8, OtherSales: g / 8, GlobalSales: g,
			})
		}
	}
	return out
}

func TestEndToEndSample(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()

	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	series := p.Series()
	wantPlatforms := []string{"Wii", "NES", "GB", "DS", "X360"}
	if strings.Join(series.Platforms, ",") != strings.Join(wantPlatforms, ",") {
		t.Fatalf("Platforms = %v, want %v", series.Platforms, wantPlatforms)
	}
	// 14 distinct years, L=3, H=2
	ds := p.Dataset()
	if len(series.Rows) != 14 || ds.WindowCount() != 9 {
		t.Fatalf("years=%d windows=%d, want 14/9", len(series.Rows), ds.WindowCount())
	}
	if ds.TrainX.Len() != 7 || ds.TestX.Len() != 2 {
		t.Errorf("train=%d test=%d, want 7/2", ds.TrainX.Len(), ds.TestX.Len())
	}
	if ds.InputShape() != [2]int{3, 25} || ds.OutputSize() != 10 {
		t.Errorf("shapes = %v / %d", ds.InputShape(), ds.OutputSize())
	}

	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	var seen int
	p.OnEpoch = func(model.Progress) { seen++ }
	h, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(h) != 3 || seen != 3 || len(p.History()) != 3 {
		t.Errorf("history=%d callbacks=%d stored=%d, want 3", len(h), seen, len(p.History()))
	}
	if !h[0].HasValidation {
		t.Error("validation metrics missing")
	}

	report, err := p.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.RunID != p.RunID() || report.TestWindows != 2 || report.Epochs != 3 {
		t.Errorf("report = %+v", report)
	}
	if len(report.PlatformAccuracy) != 5 || len(report.Ranking) != 5 {
		t.Errorf("accuracy entries = %d, ranking = %d", len(report.PlatformAccuracy), len(report.Ranking))
	}
	for name, a := range report.PlatformAccuracy {
		// two examples, two offsets: accuracy is a multiple of 1/4
		if a < 0 || a > 1 || a*4 != float64(int(a*4)) {
			t.Errorf("%s accuracy = %v", name, a)
		}
	}
	if len(report.Timeline.Samples) != 2 {
		t.Errorf("timeline samples = %d, want 2", len(report.Timeline.Samples))
	}
	if !strings.Contains(report.String(), "Platform\tAccuracy\tRating") {
		t.Errorf("report table missing header:\n%s", report)
	}

	f, err := p.Forecast()
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if f.LatestYear != 2013 || len(f.Prob) != 5 || len(f.Prob[0]) != 2 {
		t.Errorf("forecast = %+v", f)
	}
	for pi := range f.Prob {
		for o, v := range f.Prob[pi] {
			if v < 0 || v > 1 || f.Increase[pi][o] != (v > 0.5) {
				t.Errorf("forecast[%d][%d] = %v / %v", pi, o, v, f.Increase[pi][o])
			}
		}
	}
}

func TestSevenYearScenario(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()
	if err := p.Prepare(yearlyRecords(7, "A", "B")); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	ds := p.Dataset()
	if ds.WindowCount() != 2 || ds.TrainX.Len() != 1 || ds.TestX.Len() != 1 {
		t.Errorf("windows=%d train=%d test=%d, want 2/1/1", ds.WindowCount(), ds.TrainX.Len(), ds.TestX.Len())
	}
}

func TestStageOrder(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()

	if err := p.BuildModel(); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("BuildModel before Prepare: %v", err)
	}
	if _, err := p.Train(context.Background()); !errors.Is(err, model.ErrModelNotBuilt) {
		t.Errorf("Train before BuildModel: %v", err)
	}
	if _, err := p.Evaluate(); !errors.Is(err, model.ErrModelNotBuilt) {
		t.Errorf("Evaluate before BuildModel: %v", err)
	}

	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	if _, err := p.Evaluate(); !errors.Is(err, model.ErrModelNotTrained) {
		t.Errorf("Evaluate before Train: %v", err)
	}
	if _, err := p.Forecast(); !errors.Is(err, model.ErrModelNotTrained) {
		t.Errorf("Forecast before Train: %v", err)
	}
}

func TestPrepareFailureKeepsState(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	ds, series, records := p.Dataset(), p.Series(), p.records

	if err := p.Prepare(nil); !errors.Is(err, model.ErrEmptyInput) {
		t.Errorf("Prepare(nil) = %v, want ErrEmptyInput", err)
	}
	if err := p.Prepare(yearlyRecords(5, "A")); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("Prepare(5 years) = %v, want ErrInsufficientData", err)
	}
	if p.Dataset() != ds || p.Series() != series || ds.Released() {
		t.Error("failed Prepare should leave the previous dataset untouched")
	}
	if p.records != records {
		t.Errorf("record count = %d after failed Prepare, want %d", p.records, records)
	}
}

func TestPrepareReleasesPrevious(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	old := p.Dataset()

	// same platform count and layout: the model survives
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !old.Released() {
		t.Error("previous dataset should be released")
	}
	if p.Model() == nil {
		t.Error("model with a matching shape should be kept")
	}

	// two platforms: the model no longer fits
	if err := p.Prepare(yearlyRecords(8, "A", "B")); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.Model() != nil {
		t.Error("model with a stale shape should be dropped")
	}
}

func TestTrainingInProgress(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}

	s, err := p.Fit(context.Background())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if err := p.Prepare(data.SampleRecords()); !errors.Is(err, model.ErrTrainingInProgress) {
		t.Errorf("Prepare during training: %v", err)
	}
	if _, err := p.Fit(context.Background()); !errors.Is(err, model.ErrTrainingInProgress) {
		t.Errorf("second Fit: %v", err)
	}
	if _, err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := p.Evaluate(); err != nil {
		t.Errorf("Evaluate after training: %v", err)
	}
}

func TestTrainAsync(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	res := <-p.TrainAsync(context.Background())
	if !errors.Is(res.Err, model.ErrModelNotBuilt) {
		t.Errorf("TrainAsync before BuildModel: %v", res.Err)
	}

	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res = <-p.TrainAsync(context.Background())
	if res.Err != nil || len(res.History) != 3 {
		t.Fatalf("TrainAsync = %d epochs, %v", len(res.History), res.Err)
	}

	// epochs accumulate across calls
	h, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if h[0].Epoch != 3 || len(p.History()) != 6 {
		t.Errorf("second call starts at epoch %d, stored %d", h[0].Epoch, len(p.History()))
	}
}

func TestCloseDuringTrainAsync(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Train.Epochs = 100000
	p := New(cfg)
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}

	started := make(chan struct{})
	var once sync.Once
	p.OnEpoch = func(model.Progress) { once.Do(func() { close(started) }) }

	res := p.TrainAsync(context.Background())
	<-started
	p.Close()

	if !p.Dataset().Released() || p.Model().IsBuilt() {
		t.Error("Close should release the dataset and the model")
	}
	r := <-res
	if !errors.Is(r.Err, model.ErrTrainingCancelled) {
		t.Errorf("TrainAsync after Close: %v", r.Err)
	}
	if len(r.History) == 0 || len(r.History) == cfg.Train.Epochs {
		t.Errorf("got %d epochs, want a partial run", len(r.History))
	}
}

func TestTrainCancelled(t *testing.T) {
	t.Parallel()

	p := New(testConfig())
	defer p.Close()
	if err := p.Prepare(data.SampleRecords()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.BuildModel(); err != nil {
		t.Fatalf("BuildModel: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h, err := p.Train(ctx)
	if !errors.Is(err, model.ErrTrainingCancelled) {
		t.Errorf("Train on cancelled context: %v", err)
	}
	if len(h) != 0 {
		t.Errorf("got %d epochs, want 0", len(h))
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.Features.PlatformCount = 3
	c.Features.Horizon = 1
	c.Training.Epochs = 2
	c.Training.Shuffle = false

	cfg := FromConfig(c)
	if cfg.PlatformCount != 3 || cfg.Window.Horizon != 1 || cfg.Train.Epochs != 2 || !cfg.Train.NoShuffle {
		t.Errorf("FromConfig = %+v", cfg)
	}
}
