package player

import (
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// msBase is the stream time base of the fake media: ticks are milliseconds
var msBase = Rational{Num: 1, Den: 1000}

type fakePacket struct {
	src    *fakeSource
	stream int
	pts    int64
	freed  atomic.Bool
}

func (p *fakePacket) StreamIndex() int { return p.stream }

func (p *fakePacket) Free() {
	if p.freed.Swap(true) {
		p.src.doubleFrees.Add(1)
		return
	}
	p.src.outstanding.Add(-1)
}

type fakeEntry struct {
	stream int
	pts    int64
}

// fakeSource is a container with an audio stream at index 0 and a video
// stream at index 1, both in milliseconds
type fakeSource struct {
	audio    bool
	video    bool
	subtitle bool

	audioFrameMs int64
	videoFrameMs int64
	durationMs   int64

	mu      sync.Mutex
	entries []fakeEntry
	cursor  int
	reads   int
	seeks   []int64

	outstanding atomic.Int64
	doubleFrees atomic.Int64
	closed      atomic.Bool

	audioDec *fakeAudioDecoder
	videoDec *fakeVideoDecoder
}

func newFakeSource(audio, video bool, durationMs int64) *fakeSource {
	s := &fakeSource{
		audio:        audio,
		video:        video,
		audioFrameMs: 20,
		videoFrameMs: 40,
		durationMs:   durationMs,
	}
	if audio {
		for pts := int64(0); pts < durationMs; pts += s.audioFrameMs {
			s.entries = append(s.entries, fakeEntry{stream: 0, pts: pts})
		}
	}
	if video {
		for pts := int64(0); pts < durationMs; pts += s.videoFrameMs {
			s.entries = append(s.entries, fakeEntry{stream: 1, pts: pts})
		}
	}
	sort.SliceStable(s.entries, func(i, j int) bool { return s.entries[i].pts < s.entries[j].pts })
	return s
}

func (s *fakeSource) BestStream(mt MediaType) (StreamInfo, bool) {
	switch {
	case mt == MediaAudio && s.audio:
		return StreamInfo{Index: 0, Type: MediaAudio, TimeBase: msBase, SampleRate: 48000}, true
	case mt == MediaVideo && s.video:
		return StreamInfo{Index: 1, Type: MediaVideo, TimeBase: msBase, Width: 2, Height: 2}, true
	case mt == MediaSubtitle && s.subtitle:
		return StreamInfo{Index: 2, Type: MediaSubtitle, TimeBase: msBase}, true
	}
	return StreamInfo{}, false
}

func (s *fakeSource) Duration() int64 {
	return msToTicks(s.durationMs)
}

func (s *fakeSource) ReadPacket() (Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.cursor >= len(s.entries) {
		return nil, io.EOF
	}
	e := s.entries[s.cursor]
	s.cursor++
	s.reads++
	s.outstanding.Add(1)
	return &fakePacket{src: s, stream: e.stream, pts: e.pts}, nil
}

func (s *fakeSource) Seek(target int64, backward bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := ticksToMs(target)
	s.seeks = append(s.seeks, ms)

	s.cursor = sort.Search(len(s.entries), func(i int) bool { return s.entries[i].pts >= ms })
	if backward {
		for s.cursor > 0 && s.cursor < len(s.entries) && s.entries[s.cursor].pts > ms {
			s.cursor--
		}
	}
	return nil
}

func (s *fakeSource) NewAudioDecoder(out AudioFormat) (AudioDecoder, error) {
	s.audioDec = &fakeAudioDecoder{out: out, frameMs: s.audioFrameMs}
	return s.audioDec, nil
}

func (s *fakeSource) NewVideoDecoder(cfg VideoConfig) (VideoDecoder, error) {
	s.videoDec = &fakeVideoDecoder{cfg: cfg, frameMs: s.videoFrameMs}
	return s.videoDec, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *fakeSource) seekTargets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seeks...)
}

// fakeDecoder turns every packet into exactly one frame
type fakeDecoder struct {
	mu      sync.Mutex
	pending []int64
	flushes int
	closed  bool
}

func (d *fakeDecoder) SendPacket(pkt Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.pending = append(d.pending, pkt.(*fakePacket).pts)
	return nil
}

func (d *fakeDecoder) next() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	if len(d.pending) == 0 {
		return 0, ErrNeedMore
	}
	pts := d.pending[0]
	d.pending = d.pending[1:]
	return pts, nil
}

func (d *fakeDecoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.flushes++
}

func (d *fakeDecoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *fakeDecoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeAudioDecoder struct {
	fakeDecoder
	out     AudioFormat
	frameMs int64
}

func (d *fakeAudioDecoder) ReceiveFrame() (*AudioPlayFrame, error) {
	pts, err := d.next()
	if err != nil {
		return nil, err
	}
	n := int(int64(d.out.SampleRate)*d.frameMs/1000) * d.out.Channels
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5
	}
	return &AudioPlayFrame{
		Samples:    samples,
		Channels:   d.out.Channels,
		SampleRate: d.out.SampleRate,
		PTS:        pts,
		Duration:   d.frameMs,
		Timestamp:  pts,
	}, nil
}

type fakeVideoDecoder struct {
	fakeDecoder
	cfg     VideoConfig
	frameMs int64
}

func (d *fakeVideoDecoder) ReceiveFrame() (*VideoPlayFrame, error) {
	pts, err := d.next()
	if err != nil {
		return nil, err
	}
	return &VideoPlayFrame{
		Width:     2,
		Height:    2,
		PTS:       pts,
		Duration:  d.frameMs,
		Timestamp: pts,
		Pixels:    make([]byte, 12),
	}, nil
}

// fakeOutput drains the ring buffer at the device rate
type fakeOutput struct {
	format AudioFormat

	mu       sync.Mutex
	stop     chan struct{}
	attaches int
	detaches int
	played   atomic.Int64
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{format: AudioFormat{Channels: 2, SampleRate: 48000}}
}

func (o *fakeOutput) Format() AudioFormat { return o.format }

func (o *fakeOutput) Attach(src SampleSource) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.attaches++
	stop := make(chan struct{})
	o.stop = stop
	go func() {
		perSecond := int64(o.format.SampleRate * o.format.Channels)
		start := time.Now()
		var consumed int64

		t := time.NewTicker(5 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				due := int64(time.Since(start).Seconds()*float64(perSecond)) - consumed
				if due <= 0 {
					continue
				}
				buf := make([]float32, due)
				n := int64(src.Pop(buf))
				// silence still advances the device clock
				consumed += due
				o.played.Add(n)
			}
		}
	}()
	return nil
}

func (o *fakeOutput) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.detaches++
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
}

func (o *fakeOutput) counts() (attaches, detaches int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attaches, o.detaches
}

// fakeSink records the pts of every rendered frame
type fakeSink struct {
	mu       sync.Mutex
	rendered []int64
	repaints atomic.Int64
}

func (s *fakeSink) Render(f *VideoPlayFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendered = append(s.rendered, f.PTS)
	return nil
}

func (s *fakeSink) RequestRepaint() {
	s.repaints.Add(1)
}

func (s *fakeSink) frames() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.rendered...)
}

func (s *fakeSink) last() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rendered) == 0 {
		return 0, false
	}
	return s.rendered[len(s.rendered)-1], true
}

// fakeOpener hands out fresh sources built by newSrc
type fakeOpener struct {
	newSrc func() *fakeSource
	err    error

	mu      sync.Mutex
	sources []*fakeSource
}

func (o *fakeOpener) Open(path string) (Source, error) {
	if o.err != nil {
		return nil, o.err
	}
	s := o.newSrc()
	o.mu.Lock()
	o.sources = append(o.sources, s)
	o.mu.Unlock()
	return s, nil
}

func (o *fakeOpener) opened() []*fakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeSource(nil), o.sources...)
}

var errFakeOpen = errors.New("cannot open")

// waitFor polls cond until it holds or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
