package tensor

// Scope owns every tensor registered with it and releases them together.
// A Scope is single-owner; it is not safe for concurrent use.
type Scope struct {
	owned    []Releaser
	released bool
}

// NewScope creates an empty scope
func NewScope() *Scope {
	return &Scope{}
}

// Track registers r with the scope. Tracking into a released scope releases r immediately.
func (s *Scope) Track(r Releaser) {
	if s.released {
		r.Release()
		return
	}
	s.owned = append(s.owned, r)
}

// Tensor2 allocates a tracked [rows, cols] tensor
func (s *Scope) Tensor2(rows, cols int) *Tensor2 {
	t := NewTensor2(rows, cols)
	s.Track(t)
	return t
}

// Tensor3 allocates a tracked [n, steps, width] tensor
func (s *Scope) Tensor3(n, steps, width int) *Tensor3 {
	t := NewTensor3(n, steps, width)
	s.Track(t)
	return t
}

// Len returns the number of tracked tensors
func (s *Scope) Len() int {
	return len(s.owned)
}

// Release releases all tracked tensors. Safe to call more than once.
func (s *Scope) Release() {
	for i := len(s.owned) - 1; i >= 0; i-- {
		s.owned[i].Release()
	}
	s.owned = nil
	s.released = true
}

// Released reports whether the scope has been released
func (s *Scope) Released() bool {
	return s.released
}
