package data

import (
	"context"
	"slices"

	"github.com/tunogya/gametrend/pkg/model"
)

// RecordProvider supplies parsed sales records in a stable order.
// Order matters: the aggregator keeps the first platforms it encounters.
type RecordProvider interface {
	FetchRecords(ctx context.Context, filter Filter) ([]model.SalesRecord, error)
}

// Filter narrows the records returned by a provider. Zero values match everything.
type Filter struct {
	Platforms  []string // Keep only these platforms
	Genres     []string // Keep only these genres
	Publishers []string // Keep only these publishers
	YearFrom   int      // Inclusive lower bound on Year
	YearTo     int      // Inclusive upper bound on Year
	KnownYear  bool     // Drop records whose year failed to parse (Year == 0)
	Limit      int      // Maximum records returned, in input order
}

// Match reports whether r passes the filter
func (f Filter) Match(r *model.SalesRecord) bool {
	if f.KnownYear && r.Year == 0 {
		return false
	}
	if f.YearFrom != 0 && r.Year < f.YearFrom {
		return false
	}
	if f.YearTo != 0 && r.Year > f.YearTo {
		return false
	}
	if len(f.Platforms) > 0 && !slices.Contains(f.Platforms, r.Platform) {
		return false
	}
	if len(f.Genres) > 0 && !slices.Contains(f.Genres, r.Genre) {
		return false
	}
	if len(f.Publishers) > 0 && !slices.Contains(f.Publishers, r.Publisher) {
		return false
	}
	return true
}

// Apply returns the matching records in input order
func (f Filter) Apply(records []model.SalesRecord) []model.SalesRecord {
	var out []model.SalesRecord
	for i := range records {
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
		if f.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// MemoryProvider implements RecordProvider with in-memory storage
type MemoryProvider struct {
	records []model.SalesRecord
}

// NewMemoryProvider creates a new in-memory record provider
func NewMemoryProvider(records []model.SalesRecord) *MemoryProvider {
	return &MemoryProvider{records: records}
}

// NewSampleProvider serves the built-in twenty-title dataset
func NewSampleProvider() *MemoryProvider {
	return NewMemoryProvider(SampleRecords())
}

// AddRecords appends records to the provider
func (p *MemoryProvider) AddRecords(records []model.SalesRecord) {
	p.records = append(p.records, records...)
}

// FetchRecords returns the matching records
func (p *MemoryProvider) FetchRecords(ctx context.Context, filter Filter) ([]model.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return filter.Apply(p.records), nil
}
