package model

import (
	"fmt"
	"math"
	"time"
)

// Progress is emitted at every epoch boundary during training
type Progress struct {
	Epoch         int           `json:"epoch"` // 0-based, cumulative across training calls
	Loss          float64       `json:"loss"`
	Accuracy      float64       `json:"accuracy"`
	ValLoss       float64       `json:"val_loss"`
	ValAccuracy   float64       `json:"val_accuracy"`
	HasValidation bool          `json:"has_validation"`
	Duration      time.Duration `json:"duration"`
}

// Finite reports whether all reported metrics are finite numbers
func (p Progress) Finite() bool {
	for _, v := range []float64{p.Loss, p.Accuracy, p.ValLoss, p.ValAccuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// String returns a formatted string representation
func (p Progress) String() string {
	if !p.HasValidation {
		return fmt.Sprintf("Epoch %d: loss=%.4f acc=%.4f | val n/a", p.Epoch+1, p.Loss, p.Accuracy)
	}
	return fmt.Sprintf("Epoch %d: loss=%.4f acc=%.4f | val_loss=%.4f val_acc=%.4f",
		p.Epoch+1, p.Loss, p.Accuracy, p.ValLoss, p.ValAccuracy)
}

// History collects the progress records of a training session
type History []Progress

// Last returns the final epoch record
func (h History) Last() (Progress, bool) {
	if len(h) == 0 {
		return Progress{}, false
	}
	return h[len(h)-1], true
}

// Evaluation is the loss/accuracy pair of a model on a dataset
type Evaluation struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}
