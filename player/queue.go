package player

import "time"

// Item is an element of a packet or frame channel. A Discontinuity item
// carries no value and marks the point where a seek flushed the pipeline.
type Item[T any] struct {
	Value         T
	Discontinuity bool
	// Epoch is the seek generation the value belongs to
	Epoch uint64
}

func valueItem[T any](v T, epoch uint64) Item[T] {
	return Item[T]{Value: v, Epoch: epoch}
}

func discontinuityItem[T any](epoch uint64) Item[T] {
	return Item[T]{Discontinuity: true, Epoch: epoch}
}

// send blocks until ch accepts it. It returns false if stop closed first.
func send[T any](ch chan<- Item[T], it Item[T], stop <-chan struct{}) bool {
	select {
	case ch <- it:
		return true
	case <-stop:
		return false
	}
}

// recv waits at most d for an item. ok is false on timeout or stop.
func recv[T any](ch <-chan Item[T], d time.Duration, stop <-chan struct{}) (Item[T], bool) {
	select {
	case it := <-ch:
		return it, true
	default:
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case it := <-ch:
		return it, true
	case <-t.C:
	case <-stop:
	}
	return Item[T]{}, false
}

// drain empties ch without blocking, handing every value to discard
func drain[T any](ch chan Item[T], discard func(T)) int {
	n := 0
	for {
		select {
		case it := <-ch:
			if !it.Discontinuity && discard != nil {
				discard(it.Value)
			}
			n++
		default:
			return n
		}
	}
}

// full reports whether a buffered channel has no free slot
func full[T any](ch chan Item[T]) bool {
	return ch != nil && len(ch) == cap(ch)
}

// sleep waits d or until stop closes. It returns false on stop.
func sleep(d time.Duration, stop <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}
