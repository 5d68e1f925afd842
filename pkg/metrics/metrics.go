// Package metrics exposes Prometheus collectors for pipeline runs and training.
// Collectors register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tunogya/gametrend/pkg/model"
)

var (
	// Pipeline Metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gametrend_pipeline_runs_total",
			Help: "Pipeline stage executions by outcome",
		},
		[]string{"stage", "status"}, // stage: prepare, train, evaluate, forecast
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gametrend_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	DatasetWindows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gametrend_dataset_windows",
			Help: "Windows in the current dataset by partition",
		},
		[]string{"partition"}, // train, test
	)

	// Training Metrics
	TrainingEpochs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gametrend_training_epochs_total",
			Help: "Completed training epochs",
		},
	)

	TrainingLoss = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gametrend_training_loss",
			Help: "Binary cross-entropy of the latest epoch",
		},
		[]string{"partition"},
	)

	TrainingAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gametrend_training_accuracy",
			Help: "Bitwise accuracy of the latest epoch",
		},
		[]string{"partition"},
	)

	EpochDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gametrend_epoch_duration_seconds",
			Help:    "Wall time of one training epoch",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	NonFiniteEpochs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gametrend_training_nonfinite_epochs_total",
			Help: "Epochs that reported NaN or infinite metrics",
		},
	)

	// Evaluation Metrics
	PlatformAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gametrend_platform_accuracy",
			Help: "Bitwise test accuracy per platform",
		},
		[]string{"platform"},
	)
)

// RecordStage records a pipeline stage outcome
func RecordStage(stage string, duration time.Duration, err error) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	PipelineRuns.WithLabelValues(stage, status).Inc()
}

// RecordDataset sets the partition sizes of the current dataset
func RecordDataset(train, test int) {
	DatasetWindows.WithLabelValues("train").Set(float64(train))
	DatasetWindows.WithLabelValues("test").Set(float64(test))
}

// RecordEpoch records one training epoch
func RecordEpoch(p model.Progress) {
	TrainingEpochs.Inc()
	EpochDuration.Observe(p.Duration.Seconds())
	if !p.Finite() {
		NonFiniteEpochs.Inc()
	}
	TrainingLoss.WithLabelValues("train").Set(p.Loss)
	TrainingAccuracy.WithLabelValues("train").Set(p.Accuracy)
	if p.HasValidation {
		TrainingLoss.WithLabelValues("test").Set(p.ValLoss)
		TrainingAccuracy.WithLabelValues("test").Set(p.ValAccuracy)
	}
}

// RecordPlatformAccuracy publishes the per-platform accuracy mapping
func RecordPlatformAccuracy(acc map[string]float64) {
	for platform, a := range acc {
		PlatformAccuracy.WithLabelValues(platform).Set(a)
	}
}
