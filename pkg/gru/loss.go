package gru

import "math"

// probEpsilon clips probabilities before taking logs
const probEpsilon = 1e-7

// Threshold is the probability above which an output counts as a predicted increase.
// Exactly 0.5 is a non-increase.
const Threshold = 0.5

// binaryCrossEntropy returns the mean elementwise BCE of one example
func binaryCrossEntropy(y, p []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	sum := 0.0
	for i, t := range y {
		q := math.Min(math.Max(p[i], probEpsilon), 1-probEpsilon)
		sum -= t*math.Log(q) + (1-t)*math.Log(1-q)
	}
	return sum / float64(len(y))
}

// bitMatches counts outputs whose thresholded prediction equals the label
func bitMatches(y, p []float64) int {
	n := 0
	for i, t := range y {
		pred := 0.0
		if p[i] > Threshold {
			pred = 1
		}
		if pred == t {
			n++
		}
	}
	return n
}
