// Package evaluate scores predicted increase bits against the held-out labels,
// per platform and per sample.
package evaluate

import (
	"fmt"
	"sort"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/gru"
	"github.com/tunogya/gametrend/pkg/tensor"
)

// MaxTimelineSamples caps the number of examples in a Timeline
const MaxTimelineSamples = 20

// Rating thresholds
const (
	GoodThreshold = 0.6
	FairThreshold = 0.5
)

// Rating buckets a platform accuracy
type Rating string

const (
	RatingGood Rating = "Good"
	RatingFair Rating = "Fair"
	RatingPoor Rating = "Poor"
)

// RatingFor returns Good above 0.6, Fair above 0.5, otherwise Poor
func RatingFor(acc float64) Rating {
	switch {
	case acc > GoodThreshold:
		return RatingGood
	case acc > FairThreshold:
		return RatingFair
	default:
		return RatingPoor
	}
}

// Binarize maps a probability to an increase bit. Exactly 0.5 is 0.
func Binarize(p float64) float64 {
	if p > gru.Threshold {
		return 1
	}
	return 0
}

func check(yTrue, yPred *tensor.Tensor2, layout feature.Layout) error {
	if err := yTrue.Check(); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	if err := yPred.Check(); err != nil {
		return fmt.Errorf("predictions: %w", err)
	}
	tr, tc := yTrue.Shape()
	pr, pc := yPred.Shape()
	if tr != pr || tc != pc {
		return fmt.Errorf("labels [%d,%d] and predictions [%d,%d] differ in shape", tr, tc, pr, pc)
	}
	if layout.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", layout.Horizon)
	}
	if tc != layout.LabelWidth() {
		return fmt.Errorf("label width %d does not match %d platforms x horizon %d", tc, len(layout.Platforms), layout.Horizon)
	}
	return nil
}

// correct counts matching bits of platform p in example i
func correct(yTrue, yPred *tensor.Tensor2, layout feature.Layout, i, p int) int {
	n := 0
	truth, pred := yTrue.Row(i), yPred.Row(i)
	for o := 0; o < layout.Horizon; o++ {
		idx := layout.LabelIndex(p, o)
		if Binarize(pred[idx]) == truth[idx] {
			n++
		}
	}
	return n
}

// PerPlatformAccuracy returns, for every platform, the fraction of its
// (example, offset) bits predicted correctly. With no examples every platform scores 0.
func PerPlatformAccuracy(yTrue, yPred *tensor.Tensor2, platforms []string, horizon int) (map[string]float64, error) {
	layout := feature.NewLayout(platforms, horizon)
	if err := check(yTrue, yPred, layout); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(platforms))
	n := yTrue.Len()
	for p, name := range platforms {
		if n == 0 {
			out[name] = 0
			continue
		}
		matches := 0
		for i := 0; i < n; i++ {
			matches += correct(yTrue, yPred, layout, i, p)
		}
		out[name] = float64(matches) / float64(n*horizon)
	}
	return out, nil
}

// PlatformScore is one ranked platform
type PlatformScore struct {
	Platform string  `json:"platform"`
	Accuracy float64 `json:"accuracy"`
	Rating   Rating  `json:"rating"`
}

// Rank sorts platforms by descending accuracy; ties keep name order
func Rank(acc map[string]float64) []PlatformScore {
	out := make([]PlatformScore, 0, len(acc))
	for name, a := range acc {
		out = append(out, PlatformScore{Platform: name, Accuracy: a, Rating: RatingFor(a)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy > out[j].Accuracy
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// Mean returns the unweighted average accuracy across platforms
func Mean(acc map[string]float64) float64 {
	if len(acc) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range acc {
		sum += a
	}
	return sum / float64(len(acc))
}
