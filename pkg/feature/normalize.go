package feature

// MinMaxScaler scales every column of encoded rows to [0, 1]
type MinMaxScaler struct {
	min []float64
	max []float64
}

// Fit learns the column ranges from encoded rows
func (s *MinMaxScaler) Fit(rows [][]float64) {
	s.min, s.max = nil, nil
	if len(rows) == 0 {
		return
	}

	width := len(rows[0])
	s.min = append([]float64(nil), rows[0]...)
	s.max = append([]float64(nil), rows[0]...)
	for _, r := range rows[1:] {
		for j := 0; j < width && j < len(r); j++ {
			if r[j] < s.min[j] {
				s.min[j] = r[j]
			}
			if r[j] > s.max[j] {
				s.max[j] = r[j]
			}
		}
	}
}

// Fitted returns true once Fit has seen at least one row
func (s *MinMaxScaler) Fitted() bool {
	return len(s.min) > 0
}

// Transform returns a scaled copy of vec. Constant columns map to 0.
func (s *MinMaxScaler) Transform(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for j, v := range vec {
		if j >= len(s.min) {
			out[j] = v
			continue
		}
		rangeVal := s.max[j] - s.min[j]
		if rangeVal == 0 {
			rangeVal = 1
		}
		out[j] = (v - s.min[j]) / rangeVal
	}
	return out
}
