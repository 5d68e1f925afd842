package data

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tunogya/gametrend/pkg/model"
)

func TestParseCSV(t *testing.T) {
	t.Parallel()

	input := `Rank,Name,Platform,Year,Genre,Publisher,NA_Sales,EU_Sales,JP_Sales,Other_Sales,Global_Sales
1,"Pokemon Red, Blue",GB,1996,Role-Playing,Nintendo,11.27,8.89,10.22,1,31.37
2,Unknown Year,PS2,N/A,Action,Acme,bad,0.5,0,0,0.5

`
	records, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	want := model.SalesRecord{
		Rank: 1, Name: "Pokemon Red, Blue", Platform: "GB", Year: 1996, Genre: "Role-Playing",
		Publisher: "Nintendo", NASales: 11.27, EUSales: 8.89, JPSales: 10.22, OtherSales: 1, GlobalSales: 31.37,
	}
	if records[0] != want {
		t.Errorf("records[0] = %+v, want %+v", records[0], want)
	}
	// unparseable numbers become 0
	if records[1].Year != 0 || records[1].NASales != 0 || records[1].EUSales != 0.5 {
		t.Errorf("records[1] = %+v", records[1])
	}
}

func TestParseCSVColumnOrder(t *testing.T) {
	t.Parallel()

	input := "Global_Sales,Year,Platform\n3.5,2001,GC\n"
	records, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(records) != 1 || records[0].Platform != "GC" || records[0].Year != 2001 || records[0].GlobalSales != 3.5 {
		t.Errorf("records = %+v", records)
	}
}

func TestParseCSVMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := ParseCSV(strings.NewReader("Name,Year\nTetris,1989\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("got %v, want ErrMissingColumn", err)
	}
	if _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	records := SampleRecords()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := ParseCSV(&buf)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if !reflect.DeepEqual(back, records) {
		t.Error("records changed across a CSV round trip")
	}
}

func TestSampleRecords(t *testing.T) {
	t.Parallel()

	records := SampleRecords()
	if len(records) != 20 {
		t.Fatalf("got %d sample records, want 20", len(records))
	}
	if records[0].Name != "Wii Sports" || records[0].GlobalSales != 82.74 {
		t.Errorf("first record = %+v", records[0])
	}

	records[0].Name = "changed"
	if SampleRecords()[0].Name != "Wii Sports" {
		t.Error("SampleRecords should return a fresh copy")
	}
}

func TestCSVProvider(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sales.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteCSV(f, SampleRecords()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	p := NewCSVProvider(path)
	records, err := p.FetchRecords(context.Background(), Filter{Platforms: []string{"Wii"}})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(records) != 7 {
		t.Errorf("got %d Wii records, want 7", len(records))
	}

	missing := NewCSVProvider(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := missing.FetchRecords(context.Background(), Filter{}); err == nil {
		t.Error("expected error for missing file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.FetchRecords(ctx, Filter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	records := []model.SalesRecord{
		{Platform: "Wii", Year: 2006, Genre: "Sports", Publisher: "Nintendo"},
		{Platform: "DS", Year: 2005, Genre: "Misc", Publisher: "Nintendo"},
		{Platform: "Wii", Year: 0, Genre: "Misc", Publisher: "Nintendo"},
		{Platform: "PS2", Year: 2004, Genre: "Action", Publisher: "Take-Two Interactive"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"zero value", Filter{}, 4},
		{"platforms", Filter{Platforms: []string{"Wii", "PS2"}}, 3},
		{"genres", Filter{Genres: []string{"Misc"}}, 2},
		{"publishers", Filter{Publishers: []string{"Take-Two Interactive"}}, 1},
		{"year range", Filter{YearFrom: 2005, YearTo: 2006}, 2},
		{"known year", Filter{KnownYear: true}, 3},
		{"limit", Filter{Limit: 2}, 2},
		{"combined", Filter{Platforms: []string{"Wii"}, KnownYear: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter.Apply(records); len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestMemoryProvider(t *testing.T) {
	t.Parallel()

	p := NewMemoryProvider(nil)
	p.AddRecords([]model.SalesRecord{{Platform: "GB", Year: 1989}})
	records, err := p.FetchRecords(context.Background(), Filter{})
	if err != nil || len(records) != 1 {
		t.Fatalf("FetchRecords = %v, %v", records, err)
	}

	sample, err := NewSampleProvider().FetchRecords(context.Background(), Filter{YearFrom: 2009})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	// Wii 2009 x3, X360 2010, PS3 2013
	if len(sample) != 5 {
		t.Errorf("got %d records from 2009 on, want 5", len(sample))
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(SampleRecords())
	if s.Records != 20 || s.Platforms != 8 || s.Years != 14 {
		t.Errorf("summary = %+v", s)
	}
	if s.YearMin != 1984 || s.YearMax != 2013 {
		t.Errorf("year range = %d-%d", s.YearMin, s.YearMax)
	}
	if top := s.TopPlatforms(); top[0] != "Wii" || top[1] != "DS" {
		t.Errorf("TopPlatforms() = %v", top)
	}

	odd := Summarize([]model.SalesRecord{{NASales: 1, GlobalSales: 5}, {NASales: 1, GlobalSales: 1}})
	if odd.Mismatched != 1 {
		t.Errorf("Mismatched = %d, want 1", odd.Mismatched)
	}
	if !strings.Contains(s.String(), "Records: 20") {
		t.Errorf("String() = %q", s.String())
	}
}
