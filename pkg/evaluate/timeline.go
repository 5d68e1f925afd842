package evaluate

import (
	"fmt"
	"strings"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/tensor"
)

// Timeline is the per-sample view of the first test examples
type Timeline struct {
	Platforms []string         `json:"platforms"`
	Samples   []TimelineSample `json:"samples"`
}

// TimelineSample holds, per platform, the fraction of horizon offsets predicted correctly
type TimelineSample struct {
	Index  int       `json:"index"`
	Scores []float64 `json:"scores"` // aligned with Timeline.Platforms
}

// BuildTimeline scores the first min(MaxTimelineSamples, n) examples
func BuildTimeline(yTrue, yPred *tensor.Tensor2, platforms []string, horizon int) (Timeline, error) {
	layout := feature.NewLayout(platforms, horizon)
	if err := check(yTrue, yPred, layout); err != nil {
		return Timeline{}, err
	}

	n := min(yTrue.Len(), MaxTimelineSamples)
	tl := Timeline{Platforms: platforms, Samples: make([]TimelineSample, n)}
	for i := 0; i < n; i++ {
		scores := make([]float64, len(platforms))
		for p := range platforms {
			scores[p] = float64(correct(yTrue, yPred, layout, i, p)) / float64(horizon)
		}
		tl.Samples[i] = TimelineSample{Index: i, Scores: scores}
	}
	return tl, nil
}

// Series returns the scores of one platform across samples
func (t Timeline) Series(platform string) ([]float64, bool) {
	p := -1
	for i, name := range t.Platforms {
		if name == platform {
			p = i
			break
		}
	}
	if p < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Scores[p]
	}
	return out, true
}

// String renders a plain text table, one row per sample
func (t Timeline) String() string {
	var b strings.Builder
	b.WriteString("sample")
	for _, p := range t.Platforms {
		fmt.Fprintf(&b, "\t%s", p)
	}
	b.WriteString("\n")
	for _, s := range t.Samples {
		fmt.Fprintf(&b, "%d", s.Index+1)
		for _, v := range s.Scores {
			fmt.Fprintf(&b, "\t%.2f", v)
		}
		b.WriteString("\n")
	}
	return b.String()
}
