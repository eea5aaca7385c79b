package player

import (
	"sync"
	"testing"
)

func TestRingBufferWrap(t *testing.T) {
	prod, cons := NewRingBuffer(4)

	if n := prod.Push([]float32{1, 2, 3}); n != 3 {
		t.Fatalf("Push = %d, want 3", n)
	}
	dst := make([]float32, 2)
	if n := cons.Pop(dst); n != 2 || dst[0] != 1 || dst[1] != 2 {
		t.Fatalf("Pop = %d %v", n, dst)
	}

	// wraps around the end of the storage
	if n := prod.Push([]float32{4, 5, 6, 7}); n != 3 {
		t.Fatalf("Push into 3 free slots = %d", n)
	}
	if prod.FreeLen() != 0 || cons.Len() != 4 {
		t.Fatalf("FreeLen %d Len %d, want 0 and 4", prod.FreeLen(), cons.Len())
	}

	dst = make([]float32, 8)
	n := cons.Pop(dst)
	want := []float32{3, 4, 5, 6}
	if n != len(want) {
		t.Fatalf("Pop = %d, want %d", n, len(want))
	}
	for i, v := range want {
		if dst[i] != v {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], v)
		}
	}
}

func TestRingBufferDiscard(t *testing.T) {
	prod, cons := NewRingBuffer(8)
	prod.Push([]float32{1, 2, 3})
	if n := cons.Discard(); n != 3 {
		t.Fatalf("Discard = %d, want 3", n)
	}
	if cons.Len() != 0 || prod.FreeLen() != prod.Capacity() {
		t.Fatalf("buffer not empty after Discard")
	}
}

func TestRingBufferConcurrentOrder(t *testing.T) {
	const total = 100000
	prod, cons := NewRingBuffer(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		next := float32(0)
		chunk := make([]float32, 7)
		for next < total {
			n := 0
			for n < len(chunk) && next+float32(n) < total {
				chunk[n] = next + float32(n)
				n++
			}
			pushed := prod.Push(chunk[:n])
			next += float32(pushed)
		}
	}()

	got := 0
	dst := make([]float32, 5)
	for got < total {
		n := cons.Pop(dst)
		for i := range n {
			if dst[i] != float32(got) {
				t.Fatalf("sample %d = %v", got, dst[i])
			}
			got++
		}
	}
	wg.Wait()
}
