package model

// Feature identifies one of the per-platform sales columns
type Feature int

// Feature order is fixed; flattened vectors and labels depend on it
const (
	FeatureNA Feature = iota
	FeatureEU
	FeatureJP
	FeatureOther
	FeatureGlobal

	NumFeatures = 5
)

// Features lists all features in flattening order
var Features = [NumFeatures]Feature{FeatureNA, FeatureEU, FeatureJP, FeatureOther, FeatureGlobal}

var featureNames = [NumFeatures]string{"NA_Sales", "EU_Sales", "JP_Sales", "Other_Sales", "Global_Sales"}

// String returns the source column name of the feature
func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return "unknown"
	}
	return featureNames[f]
}

// PlatformYearKey is the composite grouping key used during aggregation
type PlatformYearKey struct {
	Year     int
	Platform string
}

// PlatformYearAggregate holds summed sales and the record count for one (year, platform)
type PlatformYearAggregate struct {
	Key   PlatformYearKey
	Sums  [NumFeatures]float64
	Count int
}

// Add accumulates a record into the aggregate
func (a *PlatformYearAggregate) Add(r *SalesRecord) {
	v := r.Values()
	for i := range a.Sums {
		a.Sums[i] += v[i]
	}
	a.Count++
}

// Mean returns the per-feature mean, or zeros for an empty aggregate
func (a *PlatformYearAggregate) Mean() [NumFeatures]float64 {
	var out [NumFeatures]float64
	if a.Count == 0 {
		return out
	}
	for i, s := range a.Sums {
		out[i] = s / float64(a.Count)
	}
	return out
}

// FeatureRow is one year of the dense series.
// Values is indexed by the platform's position in the selected platform list.
type FeatureRow struct {
	Year   int                    `json:"year"`
	Values [][NumFeatures]float64 `json:"values"`
}

// NewFeatureRow creates a zero-filled row for the given number of platforms
func NewFeatureRow(year, platforms int) FeatureRow {
	return FeatureRow{
		Year:   year,
		Values: make([][NumFeatures]float64, platforms),
	}
}

// Global returns the mean global sales of platform p
func (r *FeatureRow) Global(p int) float64 {
	if p < 0 || p >= len(r.Values) {
		return 0
	}
	return r.Values[p][FeatureGlobal]
}

// Copy creates a deep copy of the row
func (r *FeatureRow) Copy() FeatureRow {
	values := make([][NumFeatures]float64, len(r.Values))
	copy(values, r.Values)
	return FeatureRow{Year: r.Year, Values: values}
}
