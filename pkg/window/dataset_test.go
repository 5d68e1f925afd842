package window

import (
	"errors"
	"testing"

	"github.com/tunogya/gametrend/pkg/model"
)

func TestBuildSevenYears(t *testing.T) {
	t.Parallel()

	rows := series(2000,
		[]float64{1, 2, 3, 4, 5, 6, 7},
		[]float64{7, 6, 5, 4, 3, 2, 1},
	)
	ds, err := Build(rows, []string{"A", "B"}, DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer ds.Release()

	if ds.WindowCount() != 2 {
		t.Fatalf("WindowCount() = %d, want 2", ds.WindowCount())
	}
	if ds.Split != 1 {
		t.Errorf("Split = %d, want 1", ds.Split)
	}
	if ds.TrainX.Len()+ds.TestX.Len() != ds.WindowCount() {
		t.Errorf("train %d + test %d != %d", ds.TrainX.Len(), ds.TestX.Len(), ds.WindowCount())
	}
	if len(ds.TrainWindows()) != 1 || len(ds.TestWindows()) != 1 {
		t.Errorf("partitions = %d/%d", len(ds.TrainWindows()), len(ds.TestWindows()))
	}
	if ds.TrainWindows()[0].AnchorYear >= ds.TestWindows()[0].AnchorYear {
		t.Error("test windows must be later than train windows")
	}

	if ds.InputShape() != [2]int{3, 10} {
		t.Errorf("InputShape() = %v, want [3 10]", ds.InputShape())
	}
	if ds.OutputSize() != 4 {
		t.Errorf("OutputSize() = %d, want 4", ds.OutputSize())
	}

	// tensors mirror the windows
	w := ds.TestWindows()[0]
	for s, step := range w.Input {
		got := ds.TestX.Step(0, s)
		for j := range step {
			if got[j] != step[j] {
				t.Fatalf("TestX step %d differs from window input", s)
			}
		}
	}
	for j, bit := range w.Label {
		if ds.TestY.At(0, j) != bit {
			t.Fatalf("TestY differs from window label at %d", j)
		}
	}
	// A rises, B falls
	if got := ds.TrainY.Row(0); got[0] != 1 || got[1] != 1 || got[2] != 0 || got[3] != 0 {
		t.Errorf("TrainY row = %v", got)
	}
}

func TestBuildCountsAcrossLengths(t *testing.T) {
	t.Parallel()

	for n := 6; n <= 30; n++ {
		g := make([]float64, n)
		for i := range g {
			g[i] = float64(i % 4)
		}
		ds, err := Build(series(1990, g), []string{"A"}, DefaultConfig())
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if ds.TrainX.Len()+ds.TestX.Len() != WindowCount(n, 3, 2) {
			t.Errorf("n=%d: %d+%d windows, want %d", n, ds.TrainX.Len(), ds.TestX.Len(), WindowCount(n, 3, 2))
		}
		ds.Release()
	}
}

func TestBuildDegenerateSplit(t *testing.T) {
	t.Parallel()

	// one window: floor(0.8) = 0, so everything is test
	ds, err := Build(series(2000, []float64{1, 2, 3, 4, 5, 6}), []string{"A"}, DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer ds.Release()
	if ds.TrainX.Len() != 0 || ds.TestX.Len() != 1 {
		t.Errorf("train %d test %d, want 0/1", ds.TrainX.Len(), ds.TestX.Len())
	}
	if _, _, w := ds.TrainX.Shape(); w != 5 {
		t.Errorf("empty train tensor width = %d, want 5", w)
	}
}

func TestBuildInsufficient(t *testing.T) {
	t.Parallel()

	_, err := Build(series(2000, []float64{1, 2, 3, 4, 5}), []string{"A"}, DefaultConfig())
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestDatasetRelease(t *testing.T) {
	t.Parallel()

	ds, err := Build(series(2000, []float64{1, 2, 3, 4, 5, 6, 7}), []string{"A"}, DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ds.Released() {
		t.Fatal("fresh dataset should not be released")
	}
	ds.Release()
	if !ds.Released() || !ds.TrainX.Released() || !ds.TestY.Released() {
		t.Error("Release should drop every tensor")
	}
}
