package player

import "sync/atomic"

// Shared is a lock-free cell holding a small value that many goroutines read
// and a few write. Values are copied in and out, so readers never observe a
// torn write. The last write wins.
type Shared[T any] struct {
	p atomic.Pointer[T]
}

// NewShared returns a cell holding v
func NewShared[T any](v T) *Shared[T] {
	s := &Shared[T]{}
	s.Set(v)
	return s
}

// Get returns a copy of the current value
func (s *Shared[T]) Get() T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Set publishes v
func (s *Shared[T]) Set(v T) {
	s.p.Store(&v)
}

// Swap publishes v and returns the previous value
func (s *Shared[T]) Swap(v T) T {
	if old := s.p.Swap(&v); old != nil {
		return *old
	}
	var zero T
	return zero
}

// Update applies fn to the current value until it can publish the result
// without an intervening write. It returns the published value.
func (s *Shared[T]) Update(fn func(T) T) T {
	for {
		old := s.p.Load()
		var cur T
		if old != nil {
			cur = *old
		}
		next := fn(cur)
		if s.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// Take returns the current value and replaces it with reset, but only when
// match accepts it. Two goroutines can never take the same value.
func (s *Shared[T]) Take(match func(T) bool, reset T) (T, bool) {
	for {
		old := s.p.Load()
		var cur T
		if old != nil {
			cur = *old
		}
		if !match(cur) {
			return cur, false
		}
		r := reset
		if s.p.CompareAndSwap(old, &r) {
			return cur, true
		}
	}
}
