package player

import (
	"testing"
	"time"
)

func TestSendStops(t *testing.T) {
	ch := make(chan Item[int], 1)
	stop := make(chan struct{})

	if !send(ch, valueItem(1, 0), stop) {
		t.Fatal("send into a free slot failed")
	}

	res := make(chan bool)
	go func() { res <- send(ch, valueItem(2, 0), stop) }()

	select {
	case <-res:
		t.Fatal("send on a full channel returned early")
	case <-time.After(20 * time.Millisecond):
	}

	close(stop)
	if <-res {
		t.Fatal("send reported success after stop")
	}
}

func TestRecv(t *testing.T) {
	ch := make(chan Item[int], 2)
	stop := make(chan struct{})

	if _, ok := recv(ch, 5*time.Millisecond, stop); ok {
		t.Fatal("recv on an empty channel succeeded")
	}

	ch <- discontinuityItem[int](3)
	it, ok := recv(ch, time.Second, stop)
	if !ok || !it.Discontinuity || it.Epoch != 3 {
		t.Fatalf("recv = %+v, %v", it, ok)
	}

	close(stop)
	start := time.Now()
	if _, ok := recv(ch, time.Minute, stop); ok {
		t.Fatal("recv after stop succeeded")
	}
	if time.Since(start) > time.Second {
		t.Fatal("recv ignored stop")
	}
}

func TestDrain(t *testing.T) {
	ch := make(chan Item[int], 4)
	ch <- valueItem(1, 0)
	ch <- discontinuityItem[int](1)
	ch <- valueItem(2, 1)

	var seen []int
	if n := drain(ch, func(v int) { seen = append(seen, v) }); n != 3 {
		t.Fatalf("drain = %d, want 3", n)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("discarded %v, want the two values", seen)
	}
	if len(ch) != 0 {
		t.Fatal("channel not empty")
	}
}

func TestSleepStops(t *testing.T) {
	stop := make(chan struct{})
	if !sleep(time.Millisecond, stop) {
		t.Fatal("sleep without stop returned false")
	}
	close(stop)
	if sleep(time.Minute, stop) {
		t.Fatal("sleep after stop returned true")
	}
}

func TestFull(t *testing.T) {
	var nilCh chan Item[int]
	if full(nilCh) {
		t.Fatal("a nil channel is never full")
	}
	ch := make(chan Item[int], 1)
	ch <- valueItem(0, 0)
	if !full(ch) {
		t.Fatal("channel should be full")
	}
}
