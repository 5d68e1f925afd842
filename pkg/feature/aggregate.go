package feature

import (
	"sort"

	"github.com/tunogya/gametrend/pkg/model"
)

// DefaultPlatformCount is the number of platforms kept in the series
const DefaultPlatformCount = 5

// Series is the dense yearly feature table and the platform order behind it
type Series struct {
	Platforms []string
	Rows      []model.FeatureRow
}

// Years returns the years of the series in order
func (s *Series) Years() []int {
	years := make([]int, len(s.Rows))
	for i, r := range s.Rows {
		years[i] = r.Year
	}
	return years
}

// Aggregator collapses sales records into a yearly per-platform series
type Aggregator struct {
	PlatformCount int // K, platforms are the first K distinct names in input order
}

// NewAggregator creates a new aggregator keeping k platforms
func NewAggregator(k int) *Aggregator {
	if k <= 0 {
		k = DefaultPlatformCount
	}
	return &Aggregator{PlatformCount: k}
}

// Aggregate groups records by (year, platform) and averages each feature.
// Only years present in the input become rows; platforms absent in a year are zero.
func (a *Aggregator) Aggregate(records []model.SalesRecord) (*Series, error) {
	if len(records) == 0 {
		return nil, model.ErrEmptyInput
	}

	platforms := SelectPlatforms(records, a.PlatformCount)
	aggs := Accumulate(records)

	return &Series{
		Platforms: platforms,
		Rows:      FromAggregates(aggs, platforms),
	}, nil
}

// Aggregate is the one-call form of NewAggregator(k).Aggregate
func Aggregate(records []model.SalesRecord, k int) ([]model.FeatureRow, []string, error) {
	s, err := NewAggregator(k).Aggregate(records)
	if err != nil {
		return nil, nil, err
	}
	return s.Rows, s.Platforms, nil
}

// SelectPlatforms returns the first k distinct platform names in input order.
// This is intentionally not a top-k by sales volume.
func SelectPlatforms(records []model.SalesRecord, k int) []string {
	seen := make(map[string]struct{}, k)
	platforms := make([]string, 0, k)
	for i := range records {
		if len(platforms) == k {
			break
		}
		p := records[i].Platform
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		platforms = append(platforms, p)
	}
	return platforms
}

// Accumulate sums the sales features and counts records per (year, platform)
func Accumulate(records []model.SalesRecord) map[model.PlatformYearKey]*model.PlatformYearAggregate {
	aggs := make(map[model.PlatformYearKey]*model.PlatformYearAggregate)
	for i := range records {
		r := &records[i]
		key := model.PlatformYearKey{Year: r.Year, Platform: r.Platform}
		agg, ok := aggs[key]
		if !ok {
			agg = &model.PlatformYearAggregate{Key: key}
			aggs[key] = agg
		}
		agg.Add(r)
	}
	return aggs
}

// FromAggregates builds the dense series for the given platforms, one row per
// year that has at least one aggregate, ordered by year ascending
func FromAggregates(aggs map[model.PlatformYearKey]*model.PlatformYearAggregate, platforms []string) []model.FeatureRow {
	yearSet := make(map[int]struct{})
	for key := range aggs {
		yearSet[key.Year] = struct{}{}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	rows := make([]model.FeatureRow, len(years))
	for i, year := range years {
		row := model.NewFeatureRow(year, len(platforms))
		for p, platform := range platforms {
			if agg, ok := aggs[model.PlatformYearKey{Year: year, Platform: platform}]; ok {
				row.Values[p] = agg.Mean()
			}
		}
		rows[i] = row
	}
	return rows
}

// IndexAggregates keys a slice of aggregates, merging duplicates
func IndexAggregates(list []model.PlatformYearAggregate) map[model.PlatformYearKey]*model.PlatformYearAggregate {
	aggs := make(map[model.PlatformYearKey]*model.PlatformYearAggregate, len(list))
	for _, a := range list {
		if existing, ok := aggs[a.Key]; ok {
			for i := range existing.Sums {
				existing.Sums[i] += a.Sums[i]
			}
			existing.Count += a.Count
			continue
		}
		copied := a
		aggs[a.Key] = &copied
	}
	return aggs
}
