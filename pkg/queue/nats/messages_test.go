package nats

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tunogya/gametrend/pkg/evaluate"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/pipeline"
)

func TestProgressMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   model.Progress
	}{
		{"finite", model.Progress{Epoch: 2, Loss: 0.5, Accuracy: 0.75, ValLoss: 0.6, ValAccuracy: 0.7, HasValidation: true, Duration: 40 * time.Millisecond}},
		{"no validation", model.Progress{Epoch: 0, Loss: 0.69, Accuracy: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := Encode(NewProgressMessage("run-1", tt.in))
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			msg, err := DecodeProgress(data)
			if err != nil {
				t.Fatalf("DecodeProgress() error = %v", err)
			}
			if msg.RunID != "run-1" {
				t.Errorf("RunID = %q", msg.RunID)
			}
			if got := msg.Progress(); got != tt.in {
				t.Errorf("Progress() = %+v, want %+v", got, tt.in)
			}
		})
	}
}

func TestProgressMessageNaN(t *testing.T) {
	t.Parallel()

	data, err := Encode(NewProgressMessage("run-1", model.Progress{Loss: math.NaN(), Accuracy: math.Inf(1)}))
	if err != nil {
		t.Fatalf("non-finite metrics must encode, got %v", err)
	}
	if !strings.Contains(string(data), `"loss":null`) {
		t.Errorf("encoded = %s", data)
	}
	msg, err := DecodeProgress(data)
	if err != nil {
		t.Fatalf("DecodeProgress() error = %v", err)
	}
	if p := msg.Progress(); !math.IsNaN(p.Loss) || !math.IsNaN(p.Accuracy) {
		t.Errorf("Progress() = %+v, want NaN metrics", p)
	}
}

func TestReportMessage(t *testing.T) {
	t.Parallel()

	acc := map[string]float64{"Wii": 1, "DS": 0.25}
	rep := &pipeline.Report{
		RunID:            "run-2",
		Platforms:        []string{"Wii", "DS"},
		Horizon:          2,
		TrainWindows:     7,
		TestWindows:      2,
		Epochs:           5,
		Evaluation:       model.Evaluation{Loss: 0.3, Accuracy: 0.625},
		PlatformAccuracy: acc,
		CreatedAt:        time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}

	data, err := Encode(NewReportMessage(rep))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	msg, err := DecodeReport(data)
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	got := msg.Report()

	if got.RunID != rep.RunID || got.Epochs != 5 || got.Evaluation != rep.Evaluation || !got.CreatedAt.Equal(rep.CreatedAt) {
		t.Errorf("Report() = %+v", got)
	}
	if len(got.Ranking) != 2 || got.Ranking[0].Platform != "Wii" || got.Ranking[0].Rating != evaluate.RatingGood {
		t.Errorf("Ranking = %+v", got.Ranking)
	}
	if got.PlatformAccuracy["DS"] != 0.25 {
		t.Errorf("PlatformAccuracy = %v", got.PlatformAccuracy)
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"run_id":`},
		{"missing run", `{"epoch":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := DecodeProgress([]byte(tt.data)); err == nil {
				t.Error("DecodeProgress() should fail")
			}
			if _, err := DecodeReport([]byte(tt.data)); err == nil {
				t.Error("DecodeReport() should fail")
			}
		})
	}
}
