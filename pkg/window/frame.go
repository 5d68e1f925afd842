package window

import "slices"

// Frame holds the last L encoded rows slid over the series.
// Rows are stored in a circular slice; a Frame is single-owner.
type Frame struct {
	rows  [][]float64
	start int // oldest row
	n     int
}

// NewFrame creates an empty frame holding up to l rows
func NewFrame(l int) *Frame {
	return &Frame{rows: make([][]float64, l)}
}

// Push appends row, evicting the oldest one when the frame is full
func (f *Frame) Push(row []float64) {
	l := len(f.rows)
	if f.n < l {
		f.rows[(f.start+f.n)%l] = row
		f.n++
		return
	}
	f.rows[f.start] = row
	f.start = (f.start + 1) % l
}

// Len returns the number of rows held
func (f *Frame) Len() int { return f.n }

// Cap returns the sequence length of the frame
func (f *Frame) Cap() int { return len(f.rows) }

// Full reports whether the frame holds a complete history
func (f *Frame) Full() bool { return f.n == len(f.rows) }

// Rows returns copies of the held rows, oldest first
func (f *Frame) Rows() [][]float64 {
	out := make([][]float64, f.n)
	for i := range out {
		out[i] = slices.Clone(f.rows[(f.start+i)%len(f.rows)])
	}
	return out
}

// Newest returns the most recently pushed row
func (f *Frame) Newest() []float64 {
	if f.n == 0 {
		return nil
	}
	return f.rows[(f.start+f.n-1)%len(f.rows)]
}

// Reset empties the frame
func (f *Frame) Reset() {
	clear(f.rows)
	f.start, f.n = 0, 0
}
