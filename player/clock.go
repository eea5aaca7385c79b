package player

import (
	"math"
	"sync/atomic"
)

// Clock tracks the last presented frame of one stream and converts stream
// ticks into play time seconds.
type Clock struct {
	q2d float64

	pts       atomic.Int64
	duration  atomic.Int64
	timestamp atomic.Int64

	// float64 bits
	playTS       atomic.Uint64
	playDuration atomic.Uint64
}

// NewClock creates a clock for a stream with the given time base
func NewClock(tb Rational) *Clock {
	return &Clock{q2d: tb.Float64()}
}

// Update records a presented frame. pts and duration are in stream ticks.
func (c *Clock) Update(pts, duration, timestamp int64) {
	c.pts.Store(pts)
	c.duration.Store(duration)
	c.timestamp.Store(timestamp)
	c.playTS.Store(math.Float64bits(float64(pts) * c.q2d))
	c.playDuration.Store(math.Float64bits(float64(duration) * c.q2d))
}

// Reset returns the clock to zero
func (c *Clock) Reset() {
	c.Update(0, 0, 0)
}

// PlayTS returns the projected play time in seconds after n more frames of
// the last seen duration.
func (c *Clock) PlayTS(n int) float64 {
	ts, dur := c.PlayTSDuration()
	if ts == 0 {
		return 0
	}
	return ts + float64(n)*dur
}

// PlayTSDuration returns the play time and duration of the last frame in seconds
func (c *Clock) PlayTSDuration() (float64, float64) {
	return math.Float64frombits(c.playTS.Load()), math.Float64frombits(c.playDuration.Load())
}

// ElapsedMs returns the play time of the last frame in milliseconds
func (c *Clock) ElapsedMs() int64 {
	ts, _ := c.PlayTSDuration()
	return int64(math.Round(ts * 1000))
}

// Timestamp returns the last frame's best effort timestamp in stream ticks
func (c *Clock) Timestamp() int64 {
	return c.timestamp.Load()
}
