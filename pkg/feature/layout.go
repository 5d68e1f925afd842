package feature

import (
	"fmt"

	"github.com/tunogya/gametrend/pkg/model"
)

// Layout fixes the flattening order used for inputs and labels:
// platform-major, then feature order; labels are platform-major, then offset.
type Layout struct {
	Platforms []string
	Horizon   int
}

// NewLayout creates a layout for the given platform order and horizon
func NewLayout(platforms []string, horizon int) Layout {
	return Layout{Platforms: platforms, Horizon: horizon}
}

// Width returns the length of an encoded row
func (l Layout) Width() int {
	return len(l.Platforms) * model.NumFeatures
}

// LabelWidth returns the length of a label vector
func (l Layout) LabelWidth() int {
	return len(l.Platforms) * l.Horizon
}

// Index returns the position of (platform p, feature f) in an encoded row
func (l Layout) Index(p int, f model.Feature) int {
	return p*model.NumFeatures + int(f)
}

// LabelIndex returns the position of (platform p, offset o) in a label vector.
// o is 0-based, so o=0 is one year after the anchor.
func (l Layout) LabelIndex(p, o int) int {
	return p*l.Horizon + o
}

// LabelPosition maps a label index back to its platform and 0-based offset
func (l Layout) LabelPosition(idx int) (platform string, offset int, err error) {
	if l.Horizon <= 0 || idx < 0 || idx >= l.LabelWidth() {
		return "", 0, fmt.Errorf("label index %d out of range for width %d", idx, l.LabelWidth())
	}
	return l.Platforms[idx/l.Horizon], idx % l.Horizon, nil
}

// Encode flattens a row
func (l Layout) Encode(row model.FeatureRow) []float64 {
	out := make([]float64, l.Width())
	for p := range l.Platforms {
		if p >= len(row.Values) {
			break
		}
		for _, f := range model.Features {
			out[l.Index(p, f)] = row.Values[p][f]
		}
	}
	return out
}

// Decode rebuilds a row from an encoded vector
func (l Layout) Decode(year int, vec []float64) (model.FeatureRow, error) {
	if len(vec) != l.Width() {
		return model.FeatureRow{}, fmt.Errorf("vector has %d values, want %d", len(vec), l.Width())
	}
	row := model.NewFeatureRow(year, len(l.Platforms))
	for p := range l.Platforms {
		for _, f := range model.Features {
			row.Values[p][f] = vec[l.Index(p, f)]
		}
	}
	return row, nil
}
