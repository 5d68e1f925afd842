package window

import (
	"fmt"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/tensor"
)

// Dataset is the windowed series split chronologically into train and test tensors.
// The tensors are owned by the dataset and dropped by Release.
type Dataset struct {
	Platforms []string
	Layout    feature.Layout
	Config    Config
	Windows   []*model.Window
	Split     int // windows [0, Split) train, [Split, n) test

	TrainX *tensor.Tensor3
	TrainY *tensor.Tensor2
	TestX  *tensor.Tensor3
	TestY  *tensor.Tensor2

	scope *tensor.Scope
}

// Build windows the rows and materialises the train/test tensors.
// Nothing is allocated past the point of failure.
func Build(rows []model.FeatureRow, platforms []string, cfg Config) (*Dataset, error) {
	builder := NewBuilder(cfg, platforms)
	windows, err := builder.Windows(rows)
	if err != nil {
		return nil, err
	}

	cfg = builder.Config()
	layout := builder.Layout()
	split := SplitIndex(len(windows), cfg.SplitFraction)

	scope := tensor.NewScope()
	ds := &Dataset{
		Platforms: platforms,
		Layout:    layout,
		Config:    cfg,
		Windows:   windows,
		Split:     split,
		scope:     scope,
	}

	ds.TrainX, ds.TrainY, err = materialise(scope, windows[:split], cfg.SequenceLength, layout)
	if err != nil {
		scope.Release()
		return nil, fmt.Errorf("failed to build train tensors: %w", err)
	}
	ds.TestX, ds.TestY, err = materialise(scope, windows[split:], cfg.SequenceLength, layout)
	if err != nil {
		scope.Release()
		return nil, fmt.Errorf("failed to build test tensors: %w", err)
	}

	return ds, nil
}

func materialise(scope *tensor.Scope, windows []*model.Window, steps int, layout feature.Layout) (*tensor.Tensor3, *tensor.Tensor2, error) {
	x := scope.Tensor3(len(windows), steps, layout.Width())
	y := scope.Tensor2(len(windows), layout.LabelWidth())
	for i, w := range windows {
		if !w.IsComplete() || len(w.Label) != layout.LabelWidth() {
			return nil, nil, fmt.Errorf("window %s has inconsistent shape", w.WindowID)
		}
		for s, step := range w.Input {
			if len(step) != layout.Width() {
				return nil, nil, fmt.Errorf("window %s step %d has width %d, want %d", w.WindowID, s, len(step), layout.Width())
			}
			copy(x.Step(i, s), step)
		}
		copy(y.Row(i), w.Label)
	}
	return x, y, nil
}

// WindowCount returns the total number of windows
func (d *Dataset) WindowCount() int {
	return len(d.Windows)
}

// TrainWindows returns the windows of the train partition
func (d *Dataset) TrainWindows() []*model.Window {
	return d.Windows[:d.Split]
}

// TestWindows returns the windows of the test partition
func (d *Dataset) TestWindows() []*model.Window {
	return d.Windows[d.Split:]
}

// InputShape returns [L, K*features]
func (d *Dataset) InputShape() [2]int {
	return [2]int{d.Config.SequenceLength, d.Layout.Width()}
}

// OutputSize returns K*H
func (d *Dataset) OutputSize() int {
	return d.Layout.LabelWidth()
}

// Release drops all tensors of the dataset
func (d *Dataset) Release() {
	if d.scope != nil {
		d.scope.Release()
	}
}

// Released reports whether the tensors have been dropped
func (d *Dataset) Released() bool {
	return d.scope == nil || d.scope.Released()
}

// Latest encodes the last L rows of the series the dataset was built from
func (d *Dataset) Latest(rows []model.FeatureRow) ([][]float64, error) {
	return NewBuilder(d.Config, d.Platforms).Latest(rows)
}
