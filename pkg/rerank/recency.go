package rerank

import (
	"math"
	"sort"

	"github.com/tunogya/gametrend/pkg/store/milvus"
)

// RecencyConfig holds configuration for anchor-year decay
type RecencyConfig struct {
	Lambda float64 // Exponential decay rate per year

	UseSegments  bool
	RecentYears  int     // Age considered recent
	MediumYears  int     // Age considered medium
	RecentWeight float64 // Weight for age <= RecentYears
	MediumWeight float64 // Weight for RecentYears < age <= MediumYears
	OldWeight    float64 // Weight for older windows
}

// DefaultRecencyConfig decays by roughly half every seven years
func DefaultRecencyConfig() RecencyConfig {
	return RecencyConfig{
		Lambda:       0.1,
		RecentYears:  3,
		MediumYears:  10,
		RecentWeight: 1.0,
		MediumWeight: 0.7,
		OldWeight:    0.4,
	}
}

// SegmentConfig returns a step-weighted configuration
func SegmentConfig() RecencyConfig {
	cfg := DefaultRecencyConfig()
	cfg.UseSegments = true
	cfg.Lambda = 0
	return cfg
}

// RankedResult extends a search hit with its reranked score
type RankedResult struct {
	milvus.SearchResult
	AgeYears     int
	RecencyScore float64
	FinalScore   float64
}

// Reranker reorders similar-history hits so recent windows win ties in shape
type Reranker struct {
	config RecencyConfig
}

// NewReranker creates a new reranker with the given configuration
func NewReranker(config RecencyConfig) *Reranker {
	return &Reranker{config: config}
}

// Rerank weights every hit by its age relative to year and sorts by final score.
// Windows anchored after year count as age zero.
func (r *Reranker) Rerank(results []milvus.SearchResult, year int) []RankedResult {
	ranked := make([]RankedResult, len(results))

	for i, res := range results {
		age := max(year-res.AnchorYear, 0)
		var weight float64
		if r.config.UseSegments {
			weight = r.segmentWeight(age)
		} else {
			weight = math.Exp(-r.config.Lambda * float64(age))
		}
		ranked[i] = RankedResult{
			SearchResult: res,
			AgeYears:     age,
			RecencyScore: weight,
			FinalScore:   float64(res.Score) * weight,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	return ranked
}

func (r *Reranker) segmentWeight(age int) float64 {
	switch {
	case age <= r.config.RecentYears:
		return r.config.RecentWeight
	case age <= r.config.MediumYears:
		return r.config.MediumWeight
	default:
		return r.config.OldWeight
	}
}

// TopN returns the top n results after reranking
func (r *Reranker) TopN(results []milvus.SearchResult, year, n int) []RankedResult {
	ranked := r.Rerank(results, year)
	if len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}

// FilterByMinScore keeps results whose final score reaches minScore
func FilterByMinScore(results []RankedResult, minScore float64) []RankedResult {
	var filtered []RankedResult
	for _, r := range results {
		if r.FinalScore >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
