package nats

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/tunogya/gametrend/pkg/evaluate"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/pipeline"
)

// Subject constants
const (
	SubjectProgress = "gametrend.train.progress"
	SubjectReport   = "gametrend.eval.report"
	SubjectAll      = "gametrend.>"
)

// metric makes a float JSON-safe; non-finite values travel as null
func metric(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func value(m *float64) float64 {
	if m == nil {
		return math.NaN()
	}
	return *m
}

// ProgressMessage carries one epoch of a training run
type ProgressMessage struct {
	RunID         string   `json:"run_id"`
	Epoch         int      `json:"epoch"`
	Loss          *float64 `json:"loss"`
	Accuracy      *float64 `json:"accuracy"`
	ValLoss       *float64 `json:"val_loss"`
	ValAccuracy   *float64 `json:"val_accuracy"`
	HasValidation bool     `json:"has_validation"`
	DurationMS    int64    `json:"duration_ms"`
}

// NewProgressMessage wraps an epoch record of runID
func NewProgressMessage(runID string, p model.Progress) *ProgressMessage {
	return &ProgressMessage{
		RunID:         runID,
		Epoch:         p.Epoch,
		Loss:          metric(p.Loss),
		Accuracy:      metric(p.Accuracy),
		ValLoss:       metric(p.ValLoss),
		ValAccuracy:   metric(p.ValAccuracy),
		HasValidation: p.HasValidation,
		DurationMS:    p.Duration.Milliseconds(),
	}
}

// Progress converts the message back to an epoch record; null metrics become NaN
func (m *ProgressMessage) Progress() model.Progress {
	return model.Progress{
		Epoch:         m.Epoch,
		Loss:          value(m.Loss),
		Accuracy:      value(m.Accuracy),
		ValLoss:       value(m.ValLoss),
		ValAccuracy:   value(m.ValAccuracy),
		HasValidation: m.HasValidation,
		Duration:      time.Duration(m.DurationMS) * time.Millisecond,
	}
}

// ReportMessage carries the evaluation summary of a run
type ReportMessage struct {
	RunID        string                   `json:"run_id"`
	Platforms    []string                 `json:"platforms"`
	Horizon      int                      `json:"horizon"`
	TrainWindows int                      `json:"train_windows"`
	TestWindows  int                      `json:"test_windows"`
	Epochs       int                      `json:"epochs"`
	Loss         *float64                 `json:"loss"`
	Accuracy     *float64                 `json:"accuracy"`
	Ranking      []evaluate.PlatformScore `json:"ranking"`
	CreatedAt    time.Time                `json:"created_at"`
}

// NewReportMessage summarises rep; the timeline is not carried
func NewReportMessage(rep *pipeline.Report) *ReportMessage {
	ranking := rep.Ranking
	if ranking == nil {
		ranking = evaluate.Rank(rep.PlatformAccuracy)
	}
	return &ReportMessage{
		RunID:        rep.RunID,
		Platforms:    rep.Platforms,
		Horizon:      rep.Horizon,
		TrainWindows: rep.TrainWindows,
		TestWindows:  rep.TestWindows,
		Epochs:       rep.Epochs,
		Loss:         metric(rep.Evaluation.Loss),
		Accuracy:     metric(rep.Evaluation.Accuracy),
		Ranking:      ranking,
		CreatedAt:    rep.CreatedAt,
	}
}

// Report rebuilds the report fields the message carries
func (m *ReportMessage) Report() *pipeline.Report {
	acc := make(map[string]float64, len(m.Ranking))
	for _, s := range m.Ranking {
		acc[s.Platform] = s.Accuracy
	}
	return &pipeline.Report{
		RunID:            m.RunID,
		Platforms:        m.Platforms,
		Horizon:          m.Horizon,
		TrainWindows:     m.TrainWindows,
		TestWindows:      m.TestWindows,
		Epochs:           m.Epochs,
		Evaluation:       model.Evaluation{Loss: value(m.Loss), Accuracy: value(m.Accuracy)},
		PlatformAccuracy: acc,
		Ranking:          m.Ranking,
		CreatedAt:        m.CreatedAt,
	}
}

// Encode serializes a message to JSON bytes
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeProgress deserializes a ProgressMessage from JSON bytes
func DecodeProgress(data []byte) (*ProgressMessage, error) {
	var msg ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RunID == "" {
		return nil, fmt.Errorf("progress message without run_id")
	}
	return &msg, nil
}

// DecodeReport deserializes a ReportMessage from JSON bytes
func DecodeReport(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RunID == "" {
		return nil, fmt.Errorf("report message without run_id")
	}
	return &msg, nil
}
