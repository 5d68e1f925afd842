package data

import (
	"fmt"
	"sort"

	"github.com/tunogya/gametrend/pkg/model"
)

// Summary describes a record set before aggregation
type Summary struct {
	Records     int            `json:"records"`
	Platforms   int            `json:"platforms"`
	Years       int            `json:"years"`
	YearMin     int            `json:"year_min"`
	YearMax     int            `json:"year_max"`
	GlobalSales float64        `json:"global_sales"`
	ByPlatform  map[string]int `json:"by_platform"`
	Mismatched  int            `json:"mismatched"` // records whose regional columns do not add up to global
}

// mismatchTolerance absorbs the two-decimal rounding of the source data
const mismatchTolerance = 0.011

// Summarize computes the record set summary
func Summarize(records []model.SalesRecord) Summary {
	s := Summary{Records: len(records), ByPlatform: make(map[string]int)}
	years := make(map[int]struct{})
	for i := range records {
		r := &records[i]
		s.ByPlatform[r.Platform]++
		s.GlobalSales += r.GlobalSales
		years[r.Year] = struct{}{}
		if i == 0 || r.Year < s.YearMin {
			s.YearMin = r.Year
		}
		if r.Year > s.YearMax {
			s.YearMax = r.Year
		}
		if d := r.RegionalTotal() - r.GlobalSales; d > mismatchTolerance || d < -mismatchTolerance {
			s.Mismatched++
		}
	}
	s.Platforms = len(s.ByPlatform)
	s.Years = len(years)
	return s
}

// TopPlatforms returns platform names by descending record count
func (s Summary) TopPlatforms() []string {
	names := make([]string, 0, len(s.ByPlatform))
	for name := range s.ByPlatform {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByPlatform[names[i]] != s.ByPlatform[names[j]] {
			return s.ByPlatform[names[i]] > s.ByPlatform[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// String returns a one-line description
func (s Summary) String() string {
	return fmt.Sprintf("Records: %d | Platforms: %d | Years: %d (%d-%d) | Global: %.2fM",
		s.Records, s.Platforms, s.Years, s.YearMin, s.YearMax, s.GlobalSales)
}
