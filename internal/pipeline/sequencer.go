package pipeline

import "fmt"

// #region sequencer
// Sequencer buffers out-of-order items and releases them strictly by position.
type Sequencer[T any] struct {
	next    int
	pending map[int]T
}

// NewSequencer creates a sequencer that releases start first.
func NewSequencer[T any](start int) *Sequencer[T] {
	return &Sequencer[T]{next: start, pending: make(map[int]T)}
}

// Push buffers v at pos. Positions already released or already buffered are rejected.
func (s *Sequencer[T]) Push(pos int, v T) error {
	if pos < s.next {
		return fmt.Errorf("position %d already released (next %d)", pos, s.next)
	}
	if _, dup := s.pending[pos]; dup {
		return fmt.Errorf("position %d pushed twice", pos)
	}
	s.pending[pos] = v
	return nil
}

// Pop releases the next item in order, if it has arrived.
func (s *Sequencer[T]) Pop() (T, bool) {
	v, ok := s.pending[s.next]
	if !ok {
		var zero T
		return zero, false
	}
	delete(s.pending, s.next)
	s.next++
	return v, true
}

// Next returns the position that will be released next.
func (s *Sequencer[T]) Next() int { return s.next }

// Buffered returns the number of items waiting for an earlier position.
func (s *Sequencer[T]) Buffered() int { return len(s.pending) }

// #endregion sequencer
