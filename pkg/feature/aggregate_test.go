package feature

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tunogya/gametrend/pkg/model"
)

func rec(platform string, year int, na, global float64) model.SalesRecord {
	return model.SalesRecord{Platform: platform, Year: year, NASales: na, GlobalSales: global}
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	if _, err := NewAggregator(5).Aggregate(nil); !errors.Is(err, model.ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
	if _, _, err := Aggregate(nil, 5); !errors.Is(err, model.ErrEmptyInput) {
		t.Errorf("Aggregate(nil) got %v, want ErrEmptyInput", err)
	}
}

func TestAggregateFunc(t *testing.T) {
	t.Parallel()

	records := []model.SalesRecord{rec("Wii", 2006, 1, 2), rec("DS", 2005, 3, 4)}
	rows, platforms, err := Aggregate(records, 0)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !reflect.DeepEqual(platforms, []string{"Wii", "DS"}) {
		t.Errorf("platforms = %v", platforms)
	}
	if len(rows) != 2 || rows[0].Year != 2005 || rows[0].Global(1) != 4 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestSelectPlatforms(t *testing.T) {
	t.Parallel()

	records := []model.SalesRecord{
		rec("Wii", 2006, 0, 1),
		rec("NES", 1985, 0, 1),
		rec("Wii", 2008, 0, 1),
		rec("GB", 1996, 0, 1),
		rec("DS", 2006, 0, 1),
		rec("X360", 2010, 0, 1),
		rec("PS3", 2013, 0, 1),
	}

	tests := []struct {
		k    int
		want []string
	}{
		{1, []string{"Wii"}},
		{3, []string{"Wii", "NES", "GB"}},
		{5, []string{"Wii", "NES", "GB", "DS", "X360"}},
		{10, []string{"Wii", "NES", "GB", "DS", "X360", "PS3"}},
	}
	for _, tt := range tests {
		if got := SelectPlatforms(records, tt.k); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SelectPlatforms(k=%d) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestAggregateMeansAndZeroFill(t *testing.T) {
	t.Parallel()

	records := []model.SalesRecord{
		rec("Wii", 2006, 2, 10),
		rec("DS", 2006, 1, 3),
		rec("Wii", 2006, 4, 20),
		rec("DS", 2004, 5, 7),
		rec("Wii", 2009, 1, 1),
		// not among the first two platforms, but its year still becomes a row
		rec("PS2", 2001, 9, 9),
	}

	series, err := NewAggregator(2).Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !reflect.DeepEqual(series.Platforms, []string{"Wii", "DS"}) {
		t.Fatalf("Platforms = %v", series.Platforms)
	}
	if !reflect.DeepEqual(series.Years(), []int{2001, 2004, 2006, 2009}) {
		t.Fatalf("Years() = %v", series.Years())
	}

	rows := series.Rows
	if rows[0].Values[0] != ([model.NumFeatures]float64{}) || rows[0].Values[1] != ([model.NumFeatures]float64{}) {
		t.Errorf("2001 should be zero-filled: %v", rows[0].Values)
	}
	if rows[1].Global(1) != 7 || rows[1].Global(0) != 0 {
		t.Errorf("2004 = %v", rows[1].Values)
	}
	if rows[2].Values[0][model.FeatureNA] != 3 || rows[2].Global(0) != 15 {
		t.Errorf("Wii 2006 mean = %v, want NA 3 global 15", rows[2].Values[0])
	}
	if rows[2].Global(1) != 3 {
		t.Errorf("DS 2006 = %v", rows[2].Values[1])
	}
	if rows[3].Global(0) != 1 || rows[3].Global(1) != 0 {
		t.Errorf("2009 = %v", rows[3].Values)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	t.Parallel()

	records := []model.SalesRecord{
		rec("Wii", 2006, 2, 10),
		rec("DS", 2005, 1, 3),
		rec("Wii", 2007, 4, 20),
	}
	a := NewAggregator(5)
	first, err := a.Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	second, err := a.Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("aggregating twice gave different results")
	}
}

func TestIndexAggregatesMatchesAccumulate(t *testing.T) {
	t.Parallel()

	records := []model.SalesRecord{
		rec("Wii", 2006, 2, 10),
		rec("Wii", 2006, 4, 20),
		rec("DS", 2006, 1, 3),
	}
	want := FromAggregates(Accumulate(records), []string{"Wii", "DS"})

	// the same sums split over two partial aggregates
	list := []model.PlatformYearAggregate{
		{Key: model.PlatformYearKey{Year: 2006, Platform: "Wii"}, Sums: [5]float64{2, 0, 0, 0, 10}, Count: 1},
		{Key: model.PlatformYearKey{Year: 2006, Platform: "DS"}, Sums: [5]float64{1, 0, 0, 0, 3}, Count: 1},
		{Key: model.PlatformYearKey{Year: 2006, Platform: "Wii"}, Sums: [5]float64{4, 0, 0, 0, 20}, Count: 1},
	}
	got := FromAggregates(IndexAggregates(list), []string{"Wii", "DS"})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IndexAggregates rows = %v, want %v", got, want)
	}
	if list[0].Count != 1 {
		t.Error("IndexAggregates mutated its input")
	}
}

func TestNewAggregatorDefault(t *testing.T) {
	t.Parallel()

	if a := NewAggregator(0); a.PlatformCount != DefaultPlatformCount {
		t.Errorf("PlatformCount = %d, want %d", a.PlatformCount, DefaultPlatformCount)
	}
}
