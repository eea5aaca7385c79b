package player

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// PlayCtrl is the control object every worker of a session shares. It owns
// the clocks, the state and command cells, the finished flags and the
// telemetry the UI polls.
type PlayCtrl struct {
	AudioClock *Clock
	VideoClock *Clock

	state   *Shared[PlayerState]
	command *Shared[CommandGo]
	volume  *Shared[float64]
	muted   *Shared[bool]

	hasAudio bool
	hasVideo bool

	audioFinished  atomic.Bool
	videoFinished  atomic.Bool
	packetFinished atomic.Bool

	duration   int64
	durationMs int64

	audioElapsedMs  atomic.Int64
	videoElapsedMs  atomic.Int64
	elapsedOverride atomic.Int64

	epoch    atomic.Uint64
	preSeek  *Shared[PlayerState]
	stepping atomic.Bool

	lookahead int

	// ring and ringRate turn buffered samples into device latency
	ring     *RingConsumer
	ringRate float64

	stop     chan struct{}
	stopOnce sync.Once

	wakeMu sync.Mutex
	wake   chan struct{}
}

type ctrlConfig struct {
	audio     *StreamInfo
	video     *StreamInfo
	duration  int64
	volume    float64
	muted     bool
	lookahead int
	ring      *RingConsumer
	format    AudioFormat
}

func newPlayCtrl(cfg ctrlConfig) *PlayCtrl {
	c := &PlayCtrl{
		AudioClock: NewClock(Rational{}),
		VideoClock: NewClock(Rational{}),
		state:      NewShared(StatePaused),
		command:    NewShared(NoCommand()),
		volume:     NewShared(lo.Clamp(cfg.volume, 0, 1)),
		muted:      NewShared(cfg.muted),
		preSeek:    NewShared(StatePaused),
		hasAudio:   cfg.audio != nil,
		hasVideo:   cfg.video != nil,
		duration:   max(cfg.duration, 0),
		lookahead:  cfg.lookahead,
		ring:       cfg.ring,
		ringRate:   float64(cfg.format.SampleRate * cfg.format.Channels),
		stop:       make(chan struct{}),
		wake:       make(chan struct{}),
	}
	if cfg.audio != nil {
		c.AudioClock = NewClock(cfg.audio.TimeBase)
	}
	if cfg.video != nil {
		c.VideoClock = NewClock(cfg.video.TimeBase)
	}
	c.durationMs = ticksToMs(c.duration)
	c.elapsedOverride.Store(-1)
	return c
}

// State returns the current player state
func (c *PlayCtrl) State() PlayerState {
	return c.state.Get()
}

// SetState publishes s. Stopped is terminal: once published, later calls
// are ignored and SetState returns false.
func (c *PlayCtrl) SetState(s PlayerState) bool {
	return c.transition(func(PlayerState) bool { return true }, s)
}

// transition publishes to if the current state satisfies from
func (c *PlayCtrl) transition(from func(PlayerState) bool, to PlayerState) bool {
	applied := false
	c.state.Update(func(cur PlayerState) PlayerState {
		applied = cur != StateStopped && from(cur)
		if !applied {
			return cur
		}
		return to
	})
	if applied && to == StateStopped {
		c.stopOnce.Do(func() { close(c.stop) })
	}
	if applied {
		c.notify()
	}
	return applied
}

// notify wakes every worker parked in wait
func (c *PlayCtrl) notify() {
	c.wakeMu.Lock()
	defer c.wakeMu.Unlock()

	close(c.wake)
	c.wake = make(chan struct{})
}

func (c *PlayCtrl) wakeup() <-chan struct{} {
	c.wakeMu.Lock()
	defer c.wakeMu.Unlock()

	return c.wake
}

// wait parks a worker for at most d. A state change, a new command or the
// start of a step ends it early. It returns false once Stopped is published.
func (c *PlayCtrl) wait(d time.Duration) bool {
	wake := c.wakeup()
	if c.stopped() {
		return false
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-wake:
	case <-c.stop:
		return false
	}
	return true
}

// Stop publishes Stopped and wakes every sleeping worker
func (c *PlayCtrl) Stop() {
	c.SetState(StateStopped)
}

// Done is closed once Stopped has been published
func (c *PlayCtrl) Done() <-chan struct{} {
	return c.stop
}

func (c *PlayCtrl) stopped() bool {
	return c.State() == StateStopped
}

// idle reports whether workers should sleep instead of working. A settled
// seek that started from Paused is already idle.
func (c *PlayCtrl) idle() bool {
	if c.stepping.Load() {
		return false
	}
	switch st := c.State(); st {
	case StatePaused:
		return true
	case Seeking(false):
		return c.preSeek.Get() == StatePaused
	}
	return false
}

// resume moves a paused session to Playing. During a seek it changes the
// state the seek settles into.
func (c *PlayCtrl) resume() bool {
	if c.transition(func(cur PlayerState) bool { return cur == StatePaused }, StatePlaying) {
		return true
	}
	if _, ok := c.State().Seeking(); ok {
		c.preSeek.Set(StatePlaying)
		c.notify()
		return true
	}
	return false
}

// pause is the inverse of resume
func (c *PlayCtrl) pause() bool {
	if c.transition(func(cur PlayerState) bool { return cur == StatePlaying }, StatePaused) {
		return true
	}
	if _, ok := c.State().Seeking(); ok {
		c.preSeek.Set(StatePaused)
		c.notify()
		return true
	}
	return false
}

// audible reports whether decoded audio should reach the device
func (c *PlayCtrl) audible() bool {
	switch st := c.State(); st {
	case StatePlaying, StateEndOfFile, StateRestarting:
		return true
	default:
		if _, ok := st.Seeking(); ok {
			return c.preSeek.Get() == StatePlaying
		}
		return false
	}
}

// Command returns the pending trick-play command
func (c *PlayCtrl) Command() CommandGo {
	return c.command.Get()
}

// SetCommand replaces the pending trick-play command
func (c *PlayCtrl) SetCommand(cmd CommandGo) {
	c.command.Set(cmd)
	c.notify()
}

// takeCommand consumes the pending command when match accepts it
func (c *PlayCtrl) takeCommand(match func(CommandGo) bool) (CommandGo, bool) {
	return c.command.Take(match, NoCommand())
}

func (c *PlayCtrl) Volume() float64 {
	return c.volume.Get()
}

// SetVolume sets the volume, clamped to [0, 1]
func (c *PlayCtrl) SetVolume(v float64) float64 {
	v = lo.Clamp(v, 0, 1)
	c.volume.Set(v)
	return v
}

func (c *PlayCtrl) Muted() bool {
	return c.muted.Get()
}

func (c *PlayCtrl) SetMuted(m bool) {
	c.muted.Set(m)
}

func (c *PlayCtrl) HasAudio() bool { return c.hasAudio }
func (c *PlayCtrl) HasVideo() bool { return c.hasVideo }

// primary returns the stream that drives end of file and seek settling
func (c *PlayCtrl) primary() MediaType {
	if c.hasVideo {
		return MediaVideo
	}
	return MediaAudio
}

func (c *PlayCtrl) AudioFinished() bool  { return c.audioFinished.Load() }
func (c *PlayCtrl) VideoFinished() bool  { return c.videoFinished.Load() }
func (c *PlayCtrl) PacketFinished() bool { return c.packetFinished.Load() }

func (c *PlayCtrl) setPacketFinished(v bool) { c.packetFinished.Store(v) }

// setFinished marks a stream as fully presented. When it is the primary
// stream, playback moves to EndOfFile.
func (c *PlayCtrl) setFinished(mt MediaType) {
	switch mt {
	case MediaAudio:
		c.audioFinished.Store(true)
	case MediaVideo:
		c.videoFinished.Store(true)
	}
	if mt == c.primary() {
		c.transition(func(cur PlayerState) bool {
			return cur == StatePlaying || cur == StateRestarting
		}, StateEndOfFile)
	}
}

// allFinished reports whether every present stream has been fully presented
func (c *PlayCtrl) allFinished() bool {
	return (!c.hasAudio || c.audioFinished.Load()) && (!c.hasVideo || c.videoFinished.Load())
}

// Duration returns the container duration in ticks
func (c *PlayCtrl) Duration() int64 {
	return c.duration
}

func (c *PlayCtrl) DurationMs() int64 {
	return c.durationMs
}

// AudioElapsedMs returns the play time the device has reached: the end of
// the last pushed frame minus what still waits in the ring buffer.
func (c *PlayCtrl) AudioElapsedMs() int64 {
	return max(c.audioElapsedMs.Load()-int64(math.Round(c.audioLatency()*1000)), 0)
}
func (c *PlayCtrl) VideoElapsedMs() int64 { return c.videoElapsedMs.Load() }

// ElapsedMs returns the position shown to the user. While a seek is in
// flight it reports the seek target.
func (c *PlayCtrl) ElapsedMs() int64 {
	if o := c.elapsedOverride.Load(); o != -1 {
		return o
	}
	if c.hasVideo {
		return c.videoElapsedMs.Load()
	}
	return c.audioElapsedMs.Load()
}

// Epoch returns the current seek generation
func (c *PlayCtrl) Epoch() uint64 {
	return c.epoch.Load()
}

// beginSeek starts a new seek generation targeting targetMs and returns it
func (c *PlayCtrl) beginSeek(targetMs int64) uint64 {
	cur := c.State()
	if _, seeking := cur.Seeking(); !seeking {
		switch cur {
		case StatePaused:
			c.preSeek.Set(StatePaused)
		default:
			c.preSeek.Set(StatePlaying)
		}
	}

	epoch := c.epoch.Add(1)
	c.resetClocks()
	c.packetFinished.Store(false)
	c.audioFinished.Store(false)
	c.videoFinished.Store(false)
	c.elapsedOverride.Store(targetMs)
	c.transition(func(PlayerState) bool { return true }, Seeking(true))
	return epoch
}

// settleSeek marks the in-flight seek as settled
func (c *PlayCtrl) settleSeek() {
	c.transition(func(cur PlayerState) bool { return cur == Seeking(true) }, Seeking(false))
}

func (c *PlayCtrl) resetClocks() {
	c.AudioClock.Reset()
	c.VideoClock.Reset()
}

func (c *PlayCtrl) Stepping() bool {
	return c.stepping.Load()
}

func (c *PlayCtrl) setStepping(v bool) {
	c.stepping.Store(v)
	if v {
		c.notify()
	}
}

// audioLatency returns the seconds of audio queued ahead of the device
func (c *PlayCtrl) audioLatency() float64 {
	if c.ring == nil || c.ringRate <= 0 {
		return 0
	}
	return float64(c.ring.Len()) / c.ringRate
}

// processState applies the state transitions no single worker owns
func (c *PlayCtrl) processState() {
	switch st := c.State(); st {
	case StateEndOfFile:
		if c.allFinished() {
			c.SetState(StateStopped)
		}
	case StateRestarting:
		c.resetClocks()
		c.SetCommand(SeekCommand(0))
		c.transition(func(cur PlayerState) bool { return cur == StateRestarting }, StatePlaying)
	default:
		inProgress, seeking := st.Seeking()
		if !seeking {
			return
		}
		if inProgress {
			return
		}
		c.elapsedOverride.Store(-1)
		c.transition(func(cur PlayerState) bool { return cur == Seeking(false) }, c.preSeek.Get())
	}
}

// updateAudio records a presented audio frame
func (c *PlayCtrl) updateAudio(f *AudioPlayFrame) {
	c.AudioClock.Update(f.PTS, f.Duration, f.Timestamp)
	ts, dur := c.AudioClock.PlayTSDuration()
	c.audioElapsedMs.Store(int64(math.Round((ts + dur) * 1000)))
}

// updateVideo records a presented video frame
func (c *PlayCtrl) updateVideo(f *VideoPlayFrame) {
	c.VideoClock.Update(f.PTS, f.Duration, f.Timestamp)
	c.videoElapsedMs.Store(c.VideoClock.ElapsedMs())
}

// videoDelay runs the sync algorithm against the current clocks
func (c *PlayCtrl) videoDelay() float64 {
	audioTS := c.AudioClock.PlayTS(c.lookahead)
	if audioTS > 0 {
		// no reference until the device has played something
		audioTS = max(audioTS-c.audioLatency(), 0)
	}
	videoTS, videoDur := c.VideoClock.PlayTSDuration()
	return ComputeVideoDelay(audioTS, videoTS, videoDur)
}
