package model

// SalesRecord is a single per-title sales row as supplied by the ingestion layer.
// GlobalSales is taken as-is; it is not reconciled against the regional columns.
type SalesRecord struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Platform    string  `json:"platform"`
	Year        int     `json:"year"`
	Genre       string  `json:"genre"`
	Publisher   string  `json:"publisher"`
	NASales     float64 `json:"na_sales"`
	EUSales     float64 `json:"eu_sales"`
	JPSales     float64 `json:"jp_sales"`
	OtherSales  float64 `json:"other_sales"`
	GlobalSales float64 `json:"global_sales"`
}

// Value returns the sales figure for a feature
func (r *SalesRecord) Value(f Feature) float64 {
	switch f {
	case FeatureNA:
		return r.NASales
	case FeatureEU:
		return r.EUSales
	case FeatureJP:
		return r.JPSales
	case FeatureOther:
		return r.OtherSales
	case FeatureGlobal:
		return r.GlobalSales
	default:
		return 0
	}
}

// Values returns the sales figures in feature order
func (r *SalesRecord) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{r.NASales, r.EUSales, r.JPSales, r.OtherSales, r.GlobalSales}
}

// RegionalTotal sums the four regional columns
func (r *SalesRecord) RegionalTotal() float64 {
	return r.NASales + r.EUSales + r.JPSales + r.OtherSales
}
