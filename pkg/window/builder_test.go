package window

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tunogya/gametrend/pkg/model"
)

// series builds one row per year from startYear with the given global sales per platform
func series(startYear int, globals ...[]float64) []model.FeatureRow {
	n := len(globals[0])
	rows := make([]model.FeatureRow, n)
	for i := range rows {
		row := model.NewFeatureRow(startYear+i, len(globals))
		for p, g := range globals {
			row.Values[p][model.FeatureNA] = g[i] / 2
			row.Values[p][model.FeatureGlobal] = g[i]
		}
		rows[i] = row
	}
	return rows
}

func TestWindowCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, l, h, want int
	}{
		{7, 3, 2, 2},
		{6, 3, 2, 1},
		{5, 3, 2, 0},
		{0, 3, 2, 0},
		{20, 3, 2, 15},
	}
	for _, tt := range tests {
		if got := WindowCount(tt.n, tt.l, tt.h); got != tt.want {
			t.Errorf("WindowCount(%d,%d,%d) = %d, want %d", tt.n, tt.l, tt.h, got, tt.want)
		}
	}
}

func TestWindowsInsufficientData(t *testing.T) {
	t.Parallel()

	b := NewBuilder(DefaultConfig(), []string{"A"})
	for _, n := range []int{0, 1, 5} {
		rows := series(2000, make([]float64, max(n, 1)))[:n]
		if _, err := b.Windows(rows); !errors.Is(err, model.ErrInsufficientData) {
			t.Errorf("%d rows: got %v, want ErrInsufficientData", n, err)
		}
	}
}

func TestWindowsAnchorsAndInputs(t *testing.T) {
	t.Parallel()

	rows := series(2000, []float64{1, 2, 3, 4, 5, 6, 7})
	b := NewBuilder(DefaultConfig(), []string{"A"})
	windows, err := b.Windows(rows)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	if len(windows) != WindowCount(len(rows), 3, 2) {
		t.Fatalf("got %d windows, want %d", len(windows), WindowCount(len(rows), 3, 2))
	}

	for k, w := range windows {
		i := 3 + k
		if w.AnchorIndex != i || w.AnchorYear != 2000+i {
			t.Errorf("window %d anchored at %d/%d", k, w.AnchorIndex, w.AnchorYear)
		}
		if len(w.Input) != 3 {
			t.Fatalf("window %d has %d steps", k, len(w.Input))
		}
		// inputs are rows i-L .. i-1
		for s, step := range w.Input {
			want := b.Layout().Encode(rows[i-3+s])
			if !reflect.DeepEqual(step, want) {
				t.Errorf("window %d step %d = %v, want %v", k, s, step, want)
			}
		}
		// strictly increasing series: every bit set
		if !reflect.DeepEqual(w.Label, []float64{1, 1}) {
			t.Errorf("window %d label = %v", k, w.Label)
		}
	}
}

func TestLabelStrictIncrease(t *testing.T) {
	t.Parallel()

	// anchor at index 3 has global 10, then 10 and 12
	rows := series(2000,
		[]float64{1, 1, 1, 10, 10, 12},
		[]float64{5, 5, 5, 9, 8, 9},
	)
	b := NewBuilder(DefaultConfig(), []string{"A", "B"})
	windows, err := b.Windows(rows)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}

	// A: tie then increase; B: decrease then tie
	want := []float64{0, 1, 0, 0}
	if !reflect.DeepEqual(windows[0].Label, want) {
		t.Errorf("label = %v, want %v", windows[0].Label, want)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	rows := series(2000, []float64{1, 2, 3, 4})
	b := NewBuilder(DefaultConfig(), []string{"A"})
	latest, err := b.Latest(rows)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 3 || latest[0][4] != 2 || latest[2][4] != 4 {
		t.Errorf("Latest() = %v", latest)
	}
	if _, err := b.Latest(rows[:2]); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}

	direct, err := Latest(rows, []string{"A"}, DefaultConfig())
	if err != nil || !reflect.DeepEqual(direct, latest) {
		t.Errorf("Latest() = %v, %v; want %v", direct, err, latest)
	}
}

func TestNormalizedInputsKeepRawLabels(t *testing.T) {
	t.Parallel()

	rows := series(2000, []float64{0, 10, 20, 30, 40, 50})
	cfg := DefaultConfig()
	cfg.Normalize = true
	windows, err := NewBuilder(cfg, []string{"A"}).Windows(rows)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	for _, step := range windows[0].Input {
		for _, v := range step {
			if v < 0 || v > 1 {
				t.Fatalf("normalized value %v outside [0,1]", v)
			}
		}
	}
	if !reflect.DeepEqual(windows[0].Label, []float64{1, 1}) {
		t.Errorf("label = %v", windows[0].Label)
	}
}

func TestNormalizedScaleIgnoresTestPeriod(t *testing.T) {
	t.Parallel()

	base := []float64{5, 10, 20, 15, 30, 25, 40, 35, 45, 50, 55, 60}
	outlier := append([]float64(nil), base...)
	outlier[8] = 1000 // input of the last test window only
	outlier[11] = 2000

	cfg := DefaultConfig()
	cfg.Normalize = true
	build := func(globals []float64) []*model.Window {
		windows, err := NewBuilder(cfg, []string{"A"}).Windows(series(2000, globals))
		if err != nil {
			t.Fatalf("Windows: %v", err)
		}
		return windows
	}
	want, got := build(base), build(outlier)

	split := SplitIndex(len(want), cfg.SplitFraction)
	if split != 5 {
		t.Fatalf("split = %d, want 5", split)
	}
	for i := range split {
		if !reflect.DeepEqual(got[i].Input, want[i].Input) {
			t.Errorf("train window %d input = %v, want %v", i, got[i].Input, want[i].Input)
		}
	}
	if reflect.DeepEqual(got[len(got)-1].Input, want[len(want)-1].Input) {
		t.Error("test window input should reflect the outlier")
	}
}

func TestSplitIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n        int
		fraction float64
		want     int
	}{
		{2, 0.8, 1},
		{3, 0.8, 2},
		{10, 0.8, 8},
		{1, 0.8, 0},
		{5, 1, 5},
		{0, 0.8, 0},
	}
	for _, tt := range tests {
		if got := SplitIndex(tt.n, tt.fraction); got != tt.want {
			t.Errorf("SplitIndex(%d, %v) = %d, want %d", tt.n, tt.fraction, got, tt.want)
		}
	}
}

func TestFrame(t *testing.T) {
	t.Parallel()

	f := NewFrame(3)
	if f.Newest() != nil || f.Len() != 0 {
		t.Fatal("new frame should be empty")
	}
	for i := 1; i <= 4; i++ {
		f.Push([]float64{float64(i)})
	}
	if !f.Full() || f.Cap() != 3 {
		t.Fatalf("frame should be full at capacity 3")
	}
	got := f.Rows()
	want := [][]float64{{2}, {3}, {4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rows() = %v, want %v", got, want)
	}
	got[0][0] = 99
	if f.Rows()[0][0] != 2 {
		t.Error("Rows should copy")
	}
	if f.Newest()[0] != 4 {
		t.Errorf("Newest() = %v", f.Newest())
	}
	f.Reset()
	if f.Len() != 0 || f.Full() {
		t.Error("Reset should empty the frame")
	}
	f.Push([]float64{7})
	if rows := f.Rows(); len(rows) != 1 || rows[0][0] != 7 {
		t.Errorf("Rows() after reset = %v", rows)
	}
}
