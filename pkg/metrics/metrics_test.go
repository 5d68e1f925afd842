package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tunogya/gametrend/pkg/model"
)

// Collectors are process globals, so tests compare deltas and run serially.

func TestRecordStage(t *testing.T) {
	okBefore := testutil.ToFloat64(PipelineRuns.WithLabelValues("train", "success"))
	errBefore := testutil.ToFloat64(PipelineRuns.WithLabelValues("train", "error"))

	RecordStage("train", 10*time.Millisecond, nil)
	RecordStage("train", 10*time.Millisecond, errors.New("boom"))
	RecordStage("train", 10*time.Millisecond, nil)

	if d := testutil.ToFloat64(PipelineRuns.WithLabelValues("train", "success")) - okBefore; d != 2 {
		t.Errorf("success delta = %v, want 2", d)
	}
	if d := testutil.ToFloat64(PipelineRuns.WithLabelValues("train", "error")) - errBefore; d != 1 {
		t.Errorf("error delta = %v, want 1", d)
	}
}

func TestRecordEpoch(t *testing.T) {
	epochsBefore := testutil.ToFloat64(TrainingEpochs)
	nonFiniteBefore := testutil.ToFloat64(NonFiniteEpochs)

	RecordEpoch(model.Progress{Loss: 0.4, Accuracy: 0.8, ValLoss: 0.5, ValAccuracy: 0.7, HasValidation: true})
	if got := testutil.ToFloat64(TrainingLoss.WithLabelValues("test")); got != 0.5 {
		t.Errorf("test loss = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(TrainingAccuracy.WithLabelValues("train")); got != 0.8 {
		t.Errorf("train accuracy = %v, want 0.8", got)
	}

	RecordEpoch(model.Progress{Loss: math.NaN()})
	if d := testutil.ToFloat64(TrainingEpochs) - epochsBefore; d != 2 {
		t.Errorf("epoch delta = %v, want 2", d)
	}
	if d := testutil.ToFloat64(NonFiniteEpochs) - nonFiniteBefore; d != 1 {
		t.Errorf("non-finite delta = %v, want 1", d)
	}
}

func TestRecordDatasetAndAccuracy(t *testing.T) {
	RecordDataset(7, 2)
	if got := testutil.ToFloat64(DatasetWindows.WithLabelValues("train")); got != 7 {
		t.Errorf("train windows = %v, want 7", got)
	}

	RecordPlatformAccuracy(map[string]float64{"Wii": 0.75, "DS": 0.5})
	if got := testutil.ToFloat64(PlatformAccuracy.WithLabelValues("Wii")); got != 0.75 {
		t.Errorf("Wii accuracy = %v, want 0.75", got)
	}
}
