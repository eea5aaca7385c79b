package player

import "sync/atomic"

// ringBuffer is a fixed capacity single-producer single-consumer sample
// queue. head and tail are monotonic counters; only the consumer moves head
// and only the producer moves tail.
type ringBuffer struct {
	buf  []float32
	head atomic.Uint64
	tail atomic.Uint64
}

// RingProducer is the write half of the audio ring buffer. It must be owned by one goroutine.
type RingProducer struct {
	r *ringBuffer
}

// RingConsumer is the read half of the audio ring buffer. It must be owned by one goroutine.
type RingConsumer struct {
	r *ringBuffer
}

// NewRingBuffer creates a ring buffer holding capacity samples and returns its two halves
func NewRingBuffer(capacity int) (*RingProducer, *RingConsumer) {
	if capacity <= 0 {
		capacity = 1
	}
	r := &ringBuffer{buf: make([]float32, capacity)}
	return &RingProducer{r: r}, &RingConsumer{r: r}
}

// len loads head before tail so a third goroutine never sees head past tail
func (r *ringBuffer) len() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}

// Capacity returns the total number of samples the buffer can hold
func (p *RingProducer) Capacity() int {
	return len(p.r.buf)
}

// FreeLen returns how many samples can be pushed without overwriting unread data
func (p *RingProducer) FreeLen() int {
	return len(p.r.buf) - p.r.len()
}

// Push copies as many samples as fit and returns the count written
func (p *RingProducer) Push(samples []float32) int {
	r := p.r
	n := min(len(samples), p.FreeLen())
	if n == 0 {
		return 0
	}

	size := uint64(len(r.buf))
	tail := r.tail.Load()
	start := int(tail % size)

	// two segments when the write wraps
	first := copy(r.buf[start:], samples[:n])
	if first < n {
		copy(r.buf, samples[first:n])
	}

	r.tail.Store(tail + uint64(n))
	return n
}

// Len returns the number of samples ready to read
func (c *RingConsumer) Len() int {
	return c.r.len()
}

// Pop moves up to len(dst) samples into dst and returns the count read
func (c *RingConsumer) Pop(dst []float32) int {
	r := c.r
	n := min(len(dst), r.len())
	if n == 0 {
		return 0
	}

	size := uint64(len(r.buf))
	head := r.head.Load()
	start := int(head % size)

	first := copy(dst[:n], r.buf[start:])
	if first < n {
		copy(dst[first:n], r.buf)
	}

	r.head.Store(head + uint64(n))
	return n
}

// Discard drops everything currently buffered
func (c *RingConsumer) Discard() int {
	r := c.r
	n := r.len()
	r.head.Add(uint64(n))
	return n
}
