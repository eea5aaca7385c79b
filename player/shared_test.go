package player

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSharedGetSet(t *testing.T) {
	s := NewShared(StatePaused)
	if got := s.Get(); got != StatePaused {
		t.Fatalf("Get = %v, want paused", got)
	}
	if old := s.Swap(StatePlaying); old != StatePaused {
		t.Fatalf("Swap returned %v, want paused", old)
	}
	if got := s.Get(); got != StatePlaying {
		t.Fatalf("Get = %v, want playing", got)
	}

	var zero Shared[int]
	if got := zero.Get(); got != 0 {
		t.Fatalf("zero cell Get = %d", got)
	}
}

func TestSharedUpdateConcurrent(t *testing.T) {
	s := NewShared(0)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				s.Update(func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	if got := s.Get(); got != 50*200 {
		t.Fatalf("Get = %d, want %d", got, 50*200)
	}
}

func TestSharedTakeOnce(t *testing.T) {
	s := NewShared(FrameCommand(3))

	var taken atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take(isFrameCommand, NoCommand()); ok {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := taken.Load(); got != 1 {
		t.Fatalf("command taken %d times, want 1", got)
	}
	if got := s.Get(); got.Kind != CommandNone {
		t.Fatalf("cell holds %v after take, want none", got)
	}
}

func TestSharedTakeNoMatch(t *testing.T) {
	s := NewShared(SeekCommand(10))
	got, ok := s.Take(isFrameCommand, NoCommand())
	if ok {
		t.Fatal("Take matched a seek command")
	}
	if got != SeekCommand(10) || s.Get() != SeekCommand(10) {
		t.Fatalf("unmatched Take changed the cell: %v", s.Get())
	}
}
