// Package tensor provides owned float64 buffers for the training data and the
// scope that releases them.
package tensor

import (
	"errors"
	"fmt"
)

// ErrReleased is returned when a released tensor is used
var ErrReleased = errors.New("tensor released")

// Releaser is anything holding a buffer that can be dropped
type Releaser interface {
	Release()
}

// Tensor2 is a row-major [rows, cols] matrix
type Tensor2 struct {
	rows, cols int
	data       []float64
	released   bool
}

// NewTensor2 allocates a zeroed [rows, cols] tensor
func NewTensor2(rows, cols int) *Tensor2 {
	return &Tensor2{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// FromRows copies rows into a new tensor. cols is needed when rows is empty.
func FromRows(cols int, rows [][]float64) (*Tensor2, error) {
	t := NewTensor2(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
		copy(t.data[i*cols:(i+1)*cols], r)
	}
	return t, nil
}

// Shape returns the tensor dimensions
func (t *Tensor2) Shape() (rows, cols int) {
	return t.rows, t.cols
}

// Len returns the number of rows
func (t *Tensor2) Len() int {
	return t.rows
}

// Row returns a view of row i
func (t *Tensor2) Row(i int) []float64 {
	return t.data[i*t.cols : (i+1)*t.cols]
}

// At returns the element at (i, j)
func (t *Tensor2) At(i, j int) float64 {
	return t.data[i*t.cols+j]
}

// Set stores v at (i, j)
func (t *Tensor2) Set(i, j int, v float64) {
	t.data[i*t.cols+j] = v
}

// Rows copies the tensor into a slice of rows
func (t *Tensor2) Rows() [][]float64 {
	out := make([][]float64, t.rows)
	for i := range out {
		out[i] = append([]float64(nil), t.Row(i)...)
	}
	return out
}

// Slice copies rows [start, end) into a new tensor
func (t *Tensor2) Slice(start, end int) (*Tensor2, error) {
	if err := t.Check(); err != nil {
		return nil, err
	}
	if start < 0 || end > t.rows || start > end {
		return nil, fmt.Errorf("slice [%d:%d] out of range for %d rows", start, end, t.rows)
	}
	out := NewTensor2(end-start, t.cols)
	copy(out.data, t.data[start*t.cols:end*t.cols])
	return out, nil
}

// Check returns ErrReleased once the buffer has been dropped
func (t *Tensor2) Check() error {
	if t == nil || t.released {
		return ErrReleased
	}
	return nil
}

// Released reports whether Release has been called
func (t *Tensor2) Released() bool {
	return t.released
}

// Release drops the backing buffer
func (t *Tensor2) Release() {
	t.data = nil
	t.released = true
}

// Tensor3 is a [n, steps, width] sequence batch
type Tensor3 struct {
	n, steps, width int
	data            []float64
	released        bool
}

// NewTensor3 allocates a zeroed [n, steps, width] tensor
func NewTensor3(n, steps, width int) *Tensor3 {
	return &Tensor3{n: n, steps: steps, width: width, data: make([]float64, n*steps*width)}
}

// FromSequences copies sequences into a new tensor. steps and width are needed when seqs is empty.
func FromSequences(steps, width int, seqs [][][]float64) (*Tensor3, error) {
	t := NewTensor3(len(seqs), steps, width)
	for i, seq := range seqs {
		if len(seq) != steps {
			return nil, fmt.Errorf("sequence %d has %d steps, want %d", i, len(seq), steps)
		}
		for s, v := range seq {
			if len(v) != width {
				return nil, fmt.Errorf("sequence %d step %d has width %d, want %d", i, s, len(v), width)
			}
			copy(t.Step(i, s), v)
		}
	}
	return t, nil
}

// Shape returns the tensor dimensions
func (t *Tensor3) Shape() (n, steps, width int) {
	return t.n, t.steps, t.width
}

// Len returns the number of sequences
func (t *Tensor3) Len() int {
	return t.n
}

// Step returns a view of step s of sequence i
func (t *Tensor3) Step(i, s int) []float64 {
	off := (i*t.steps + s) * t.width
	return t.data[off : off+t.width]
}

// Sequence returns views of every step of sequence i
func (t *Tensor3) Sequence(i int) [][]float64 {
	out := make([][]float64, t.steps)
	for s := range out {
		out[s] = t.Step(i, s)
	}
	return out
}

// Slice copies sequences [start, end) into a new tensor
func (t *Tensor3) Slice(start, end int) (*Tensor3, error) {
	if err := t.Check(); err != nil {
		return nil, err
	}
	if start < 0 || end > t.n || start > end {
		return nil, fmt.Errorf("slice [%d:%d] out of range for %d sequences", start, end, t.n)
	}
	out := NewTensor3(end-start, t.steps, t.width)
	per := t.steps * t.width
	copy(out.data, t.data[start*per:end*per])
	return out, nil
}

// Check returns ErrReleased once the buffer has been dropped
func (t *Tensor3) Check() error {
	if t == nil || t.released {
		return ErrReleased
	}
	return nil
}

// Released reports whether Release has been called
func (t *Tensor3) Released() bool {
	return t.released
}

// Release drops the backing buffer
func (t *Tensor3) Release() {
	t.data = nil
	t.released = true
}
