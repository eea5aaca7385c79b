package player

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/njyeung/kplay/log"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// restartFraction is the progress fraction under which a seek restarts the file
const restartFraction = 0.03

// Options tunes a player. Zero queue sizes are raised to 1.
type Options struct {
	VideoPacketQueue int
	AudioPacketQueue int
	VideoFrameQueue  int
	AudioFrameQueue  int

	// LookaheadFrames is how many audio frames ahead of the last presented
	// one the video is synced against
	LookaheadFrames int

	// RingSamples is the audio ring buffer capacity in interleaved samples
	RingSamples int

	Volume float64
	Muted  bool

	// Loop reopens the file when it plays to the end
	Loop bool

	MaxWidth  int
	MaxHeight int

	// Subtitles enables burning subtitles into the picture
	Subtitles bool
	// SubtitleLookup returns an external subtitle file for a media path
	SubtitleLookup func(path string) (string, bool)
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		VideoPacketQueue: 12,
		AudioPacketQueue: 2,
		VideoFrameQueue:  1,
		AudioFrameQueue:  10,
		LookaheadFrames:  4,
		RingSamples:      17640,
		Volume:           1,
		Subtitles:        true,
	}
}

// Telemetry is a snapshot of the playback position and settings
type Telemetry struct {
	Path           string
	State          PlayerState
	ElapsedMs      int64
	AudioElapsedMs int64
	VideoElapsedMs int64
	DurationMs     int64
	Volume         float64
	Muted          bool
	HasAudio       bool
	HasVideo       bool
	// TabMs is the remembered position, -1 when unset
	TabMs int64
}

// Progress returns elapsed/duration in [0, 1], 0 when the duration is unknown
func (t Telemetry) Progress() float64 {
	if t.DurationMs <= 0 {
		return 0
	}
	return lo.Clamp(float64(t.ElapsedMs)/float64(t.DurationMs), 0, 1)
}

// Text returns "elapsed / duration"
func (t Telemetry) Text() string {
	return FormatDuration(t.ElapsedMs) + " / " + FormatDuration(t.DurationMs)
}

// FormatDuration formats ms as MM:SS, or HH:MM:SS from one hour up
func FormatDuration(ms int64) string {
	secs := max(ms, 0) / 1000
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// AVPlayer plays one file at a time through an Opener, an AudioOutput and a
// VideoSink. All methods are safe for concurrent use.
type AVPlayer struct {
	opener   Opener
	audioOut AudioOutput
	sink     VideoSink
	log      *logrus.Entry

	configMu sync.Mutex
	opts     Options
	volume   float64

	muted  atomic.Bool
	tabMs  atomic.Int64
	closed atomic.Bool

	// openMu serializes session replacement
	openMu sync.Mutex

	sessionMu sync.Mutex
	session   *playSession
	path      string
}

// NewAVPlayer creates a player. audio or sink may be nil to play only the
// other stream.
func NewAVPlayer(opener Opener, audio AudioOutput, sink VideoSink, opts Options) *AVPlayer {
	p := &AVPlayer{
		opener:   opener,
		audioOut: audio,
		sink:     sink,
		log:      log.For("player"),
		opts:     opts,
		volume:   lo.Clamp(opts.Volume, 0, 1),
	}
	p.muted.Store(opts.Muted)
	p.tabMs.Store(-1)
	return p
}

func (p *AVPlayer) setSession(s *playSession, path string) {
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()

	p.session = s
	p.path = path
}

func (p *AVPlayer) currentSession() *playSession {
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()

	return p.session
}

func (p *AVPlayer) withSession(fn func(*playSession)) {
	if s := p.currentSession(); s != nil {
		fn(s)
	}
}

func (p *AVPlayer) withCtrl(fn func(*PlayCtrl)) {
	p.withSession(func(s *playSession) { fn(s.ctrl) })
}

// Path returns the file of the current session
func (p *AVPlayer) Path() string {
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()

	return p.path
}

func (p *AVPlayer) sessionConfig(path string) sessionConfig {
	p.configMu.Lock()
	defer p.configMu.Unlock()

	return sessionConfig{
		path:     path,
		opts:     p.opts,
		volume:   p.volume,
		muted:    p.muted.Load(),
		audioOut: p.audioOut,
		sink:     p.sink,
		subIndex: -1,
	}
}

// Open stops the current session and opens path. The new session starts
// Paused with its first frame shown.
func (p *AVPlayer) Open(path string) error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.openMu.Lock()
	defer p.openMu.Unlock()

	p.stopSession()
	return p.open(path)
}

// Reload reopens the current file at the current position, Playing or
// Paused as before. Decoder settings such as the maximum picture size are
// read again.
func (p *AVPlayer) Reload() error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.openMu.Lock()
	defer p.openMu.Unlock()

	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	pos := s.ctrl.ElapsedMs()
	playing := s.ctrl.audible()

	p.stopSession()
	if err := p.open(s.path); err != nil {
		return err
	}

	p.withCtrl(func(c *PlayCtrl) {
		if pos > 0 {
			c.SetCommand(SeekCommand(msToTicks(pos)))
		}
		if playing {
			c.resume()
		}
	})
	p.log.WithFields(logrus.Fields{"path": s.path, "position_ms": pos}).Debug("reloaded")
	return nil
}

// open must be called with openMu held
func (p *AVPlayer) open(path string) error {
	logger := p.log.WithField("path", path)

	src, err := p.opener.Open(path)
	if err != nil {
		p.setSession(nil, "")
		return newOpError("open", path, err)
	}

	cfg := p.sessionConfig(path)
	cfg.subtitle, cfg.subIndex = p.subtitles(src, path)

	s, err := newPlaySession(src, cfg)
	if err != nil {
		p.setSession(nil, "")
		logger.WithError(err).Error("open failed")
		return err
	}

	p.setSession(s, path)
	s.start()
	go p.watch(s)

	logger.Info("opened")
	return nil
}

// subtitles picks the subtitle track to burn in: an external file first,
// then the best embedded stream
func (p *AVPlayer) subtitles(src Source, path string) (string, int) {
	p.configMu.Lock()
	enabled, lookup := p.opts.Subtitles, p.opts.SubtitleLookup
	p.configMu.Unlock()

	if !enabled {
		return "", -1
	}
	if lookup != nil {
		if file, ok := lookup(path); ok {
			return file, -1
		}
	}
	if info, ok := src.BestStream(MediaSubtitle); ok {
		return path, info.Index
	}
	return "", -1
}

// watch releases a session once its workers have exited and reopens the
// file when looping.
func (p *AVPlayer) watch(s *playSession) {
	<-s.done
	if s.err != nil {
		s.log.WithError(s.err).Error("session failed")
	}
	s.release()

	p.configMu.Lock()
	loop := p.opts.Loop
	p.configMu.Unlock()

	if !loop || s.userStop.Load() || p.closed.Load() {
		return
	}

	p.openMu.Lock()
	defer p.openMu.Unlock()

	if p.currentSession() != s || p.closed.Load() {
		return
	}
	s.log.Info("looping")
	if err := p.open(s.path); err != nil {
		return
	}
	p.withCtrl(func(c *PlayCtrl) { c.resume() })
}

// stopSession stops and releases the current session. openMu must be held.
func (p *AVPlayer) stopSession() {
	s := p.currentSession()
	if s == nil {
		return
	}
	s.userStop.Store(true)
	if err := s.stop(); err != nil {
		s.log.WithError(err).Warn("session stopped with error")
	}
	s.release()
}

// ensureOpen reopens the last file when its session has stopped
func (p *AVPlayer) ensureOpen() error {
	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	if !s.ctrl.stopped() {
		return nil
	}

	p.openMu.Lock()
	defer p.openMu.Unlock()

	if cur := p.currentSession(); cur != s {
		return nil
	}
	<-s.done
	s.release()
	return p.open(s.path)
}

// Play resumes playback, reopening the file if it already ended
func (p *AVPlayer) Play() error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	p.withCtrl(func(c *PlayCtrl) { c.resume() })
	return nil
}

func (p *AVPlayer) Pause() {
	p.withCtrl(func(c *PlayCtrl) { c.pause() })
}

// TogglePause flips between Playing and Paused
func (p *AVPlayer) TogglePause() error {
	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	if s.ctrl.pause() {
		return nil
	}
	return p.Play()
}

// Stop ends the current session and waits for its workers
func (p *AVPlayer) Stop() {
	p.openMu.Lock()
	defer p.openMu.Unlock()

	p.stopSession()
}

// Close stops playback. The player cannot be used afterwards.
func (p *AVPlayer) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.Stop()
	p.log.Info("closed")
}

// Seek jumps to ms from the start
func (p *AVPlayer) Seek(ms int64) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	p.withCtrl(func(c *PlayCtrl) { c.SetCommand(SeekCommand(msToTicks(max(ms, 0)))) })
	return nil
}

// SeekFraction jumps to a fraction of the duration. Positions very close
// to the start restart the file.
func (p *AVPlayer) SeekFraction(f float64) error {
	f = lo.Clamp(f, 0, 1)
	if f < restartFraction {
		return p.Restart()
	}
	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	return p.Seek(int64(f * float64(s.ctrl.DurationMs())))
}

// Skip moves ms relative to the current position, backwards when negative
func (p *AVPlayer) Skip(ms int64) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	p.withCtrl(func(c *PlayCtrl) { c.SetCommand(GoMsCommand(ms)) })
	return nil
}

// StepFrame skips n-1 video frames and shows the next one
func (p *AVPlayer) StepFrame(n int64) error {
	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	if n <= 0 || !s.ctrl.HasVideo() {
		return nil
	}
	s.ctrl.SetCommand(FrameCommand(n))
	s.ctrl.setStepping(true)
	return nil
}

// StepPacket forwards n packets and decodes until the next frame is shown
func (p *AVPlayer) StepPacket(n int64) error {
	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	if n <= 0 {
		return nil
	}
	s.ctrl.SetCommand(PacketCommand(n))
	s.ctrl.setStepping(true)
	return nil
}

// Restart plays the file again from the start
func (p *AVPlayer) Restart() error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	p.withCtrl(func(c *PlayCtrl) { c.SetState(StateRestarting) })
	return nil
}

// MarkTab remembers the current position
func (p *AVPlayer) MarkTab() {
	p.withCtrl(func(c *PlayCtrl) { p.tabMs.Store(c.ElapsedMs()) })
}

// JumpTab seeks to the position remembered by MarkTab
func (p *AVPlayer) JumpTab() error {
	ms := p.tabMs.Load()
	if ms < 0 {
		return nil
	}
	return p.Seek(ms)
}

// SetVolume sets the volume, clamped to [0, 1]. It persists across files.
func (p *AVPlayer) SetVolume(v float64) float64 {
	v = lo.Clamp(v, 0, 1)

	p.configMu.Lock()
	p.volume = v
	p.configMu.Unlock()

	p.withCtrl(func(c *PlayCtrl) { c.SetVolume(v) })
	return v
}

// AdjustVolume changes the volume by delta
func (p *AVPlayer) AdjustVolume(delta float64) float64 {
	return p.SetVolume(p.Volume() + delta)
}

func (p *AVPlayer) Volume() float64 {
	p.configMu.Lock()
	defer p.configMu.Unlock()

	return p.volume
}

// ToggleMute flips mute and returns the new value
func (p *AVPlayer) ToggleMute() bool {
	m := !p.muted.Load()
	p.muted.Store(m)
	p.withCtrl(func(c *PlayCtrl) { c.SetMuted(m) })
	return m
}

func (p *AVPlayer) Muted() bool {
	return p.muted.Load()
}

// SetMaxSize bounds the decoded picture size. It applies from the next open
// or Reload.
func (p *AVPlayer) SetMaxSize(width, height int) {
	p.configMu.Lock()
	defer p.configMu.Unlock()

	p.opts.MaxWidth = width
	p.opts.MaxHeight = height
}

// SetLoop toggles reopening the file at its end
func (p *AVPlayer) SetLoop(loop bool) {
	p.configMu.Lock()
	defer p.configMu.Unlock()

	p.opts.Loop = loop
}

// Telemetry returns a snapshot of the current session
func (p *AVPlayer) Telemetry() Telemetry {
	t := Telemetry{
		State:  StateStopped,
		Volume: p.Volume(),
		Muted:  p.Muted(),
		TabMs:  p.tabMs.Load(),
		Path:   p.Path(),
	}
	p.withCtrl(func(c *PlayCtrl) {
		t.State = c.State()
		t.ElapsedMs = c.ElapsedMs()
		t.AudioElapsedMs = c.AudioElapsedMs()
		t.VideoElapsedMs = c.VideoElapsedMs()
		t.DurationMs = c.DurationMs()
		t.HasAudio = c.HasAudio()
		t.HasVideo = c.HasVideo()
	})
	return t
}

// Wait blocks until the current session's workers have exited
func (p *AVPlayer) Wait() error {
	s := p.currentSession()
	if s == nil {
		return ErrNotOpen
	}
	<-s.done
	return s.err
}
