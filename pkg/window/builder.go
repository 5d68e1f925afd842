package window

import (
	"fmt"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/model"
)

// Config holds configuration for window construction
type Config struct {
	SequenceLength int     // L, past years fed as input
	Horizon        int     // H, future years predicted per platform
	SplitFraction  float64 // Share of windows in the train partition
	FeatureVersion int     // Version for window ID generation
	Normalize      bool    // Min-max scale inputs per column; labels are never scaled
}

// DefaultConfig returns a Config with the default L=3, H=2, 80/20 split
func DefaultConfig() Config {
	return Config{
		SequenceLength: 3,
		Horizon:        2,
		SplitFraction:  0.8,
		FeatureVersion: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SequenceLength <= 0 {
		c.SequenceLength = d.SequenceLength
	}
	if c.Horizon <= 0 {
		c.Horizon = d.Horizon
	}
	if c.SplitFraction <= 0 || c.SplitFraction > 1 {
		c.SplitFraction = d.SplitFraction
	}
	if c.FeatureVersion <= 0 {
		c.FeatureVersion = d.FeatureVersion
	}
	return c
}

// Builder slides a fixed-length history frame over a yearly series
type Builder struct {
	cfg    Config
	layout feature.Layout
	frame  *Frame
}

// NewBuilder creates a new window builder for the given platform order
func NewBuilder(cfg Config, platforms []string) *Builder {
	cfg = cfg.withDefaults()
	return &Builder{
		cfg:    cfg,
		layout: feature.NewLayout(platforms, cfg.Horizon),
		frame:  NewFrame(cfg.SequenceLength),
	}
}

// Config returns the effective configuration
func (b *Builder) Config() Config {
	return b.cfg
}

// Layout returns the flattening layout shared with label decoding
func (b *Builder) Layout() feature.Layout {
	return b.layout
}

// WindowCount returns how many windows a series of n rows yields
func WindowCount(n, l, h int) int {
	if c := n - l - h; c > 0 {
		return c
	}
	return 0
}

// Windows produces one window per anchor i with L <= i < len(rows)-H
func (b *Builder) Windows(rows []model.FeatureRow) ([]*model.Window, error) {
	l, h := b.cfg.SequenceLength, b.cfg.Horizon
	if len(rows) <= l+h {
		return nil, fmt.Errorf("%w: %d rows, need more than %d", model.ErrInsufficientData, len(rows), l+h)
	}

	inputs := b.encode(rows)

	b.frame.Reset()
	windows := make([]*model.Window, 0, WindowCount(len(rows), l, h))
	for i := 0; i < len(rows)-h; i++ {
		if b.frame.Full() {
			windows = append(windows, model.NewWindow(
				b.layout.Platforms,
				i,
				rows[i].Year,
				h,
				b.cfg.FeatureVersion,
				b.frame.Rows(),
				b.label(rows, i),
			))
		}
		b.frame.Push(inputs[i])
	}
	b.frame.Reset()

	return windows, nil
}

// Latest returns the most recent L encoded rows, the input for forecasting past the data
func (b *Builder) Latest(rows []model.FeatureRow) ([][]float64, error) {
	l := b.cfg.SequenceLength
	if len(rows) < l {
		return nil, fmt.Errorf("%w: %d rows, need at least %d", model.ErrInsufficientData, len(rows), l)
	}

	inputs := b.encode(rows)

	b.frame.Reset()
	for _, in := range inputs[len(inputs)-l:] {
		b.frame.Push(in)
	}
	latest := b.frame.Rows()
	b.frame.Reset()

	return latest, nil
}

// Latest returns the forecasting input of rows under cfg without building windows
func Latest(rows []model.FeatureRow, platforms []string, cfg Config) ([][]float64, error) {
	return NewBuilder(cfg, platforms).Latest(rows)
}

// label sets bit p*H+o when global sales at i+o+1 strictly exceed those at i
func (b *Builder) label(rows []model.FeatureRow, i int) []float64 {
	out := make([]float64, b.layout.LabelWidth())
	for p := range b.layout.Platforms {
		current := rows[i].Global(p)
		for o := 0; o < b.cfg.Horizon; o++ {
			if rows[i+o+1].Global(p) > current {
				out[b.layout.LabelIndex(p, o)] = 1
			}
		}
	}
	return out
}

func (b *Builder) encode(rows []model.FeatureRow) [][]float64 {
	encoded := make([][]float64, len(rows))
	for i, r := range rows {
		encoded[i] = b.layout.Encode(r)
	}
	if !b.cfg.Normalize {
		return encoded
	}

	var scaler feature.MinMaxScaler
	scaler.Fit(encoded[:b.fitRows(len(rows))])
	for i := range encoded {
		encoded[i] = scaler.Transform(encoded[i])
	}
	return encoded
}

// fitRows is the prefix of n rows read as input by train windows.
// Later rows belong to test history or labels and must not shape the scale.
func (b *Builder) fitRows(n int) int {
	l := b.cfg.SequenceLength
	split := SplitIndex(WindowCount(n, l, b.cfg.Horizon), b.cfg.SplitFraction)
	return min(max(l+split-1, l), n)
}

// SplitIndex returns floor(n * fraction) clamped to [0, n]
func SplitIndex(n int, fraction float64) int {
	split := int(float64(n) * fraction)
	if split < 0 {
		return 0
	}
	if split > n {
		return n
	}
	return split
}
