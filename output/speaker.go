package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/njyeung/kplay/log"
	"github.com/njyeung/kplay/player"
)

// Speaker plays the engine's ring buffer through the system audio device.
// It implements player.AudioOutput.
type Speaker struct {
	format player.AudioFormat
	buffer time.Duration

	mu       sync.Mutex
	inited   bool
	ctrl     *beep.Ctrl
	streamer *ringStreamer
}

// NewSpeaker creates a stereo speaker. The device is opened on first Attach.
func NewSpeaker(sampleRate int, buffer time.Duration) *Speaker {
	return &Speaker{
		format: player.AudioFormat{Channels: 2, SampleRate: sampleRate},
		buffer: buffer,
	}
}

func (s *Speaker) Format() player.AudioFormat {
	return s.format
}

// Init opens the audio device early so permission prompts show up before playback
func (s *Speaker) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked()
}

func (s *Speaker) initLocked() error {
	if s.inited {
		return nil
	}
	sr := beep.SampleRate(s.format.SampleRate)
	if err := speaker.Init(sr, sr.N(s.buffer)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	s.inited = true
	log.For("speaker").WithField("rate", s.format.SampleRate).Debug("speaker initialized")
	return nil
}

// Attach starts pulling samples from src
func (s *Speaker) Attach(src player.SampleSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initLocked(); err != nil {
		return err
	}

	s.streamer = newRingStreamer(src, s.format.Channels)
	s.ctrl = &beep.Ctrl{Streamer: s.streamer}
	speaker.Play(s.ctrl)
	return nil
}

// Detach stops pulling from the attached source
func (s *Speaker) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited || s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	speaker.Clear()
	s.ctrl = nil
	s.streamer = nil
}

// ringStreamer implements beep.Streamer over interleaved float32 samples
type ringStreamer struct {
	src      player.SampleSource
	channels int
	scratch  []float32
}

func newRingStreamer(src player.SampleSource, channels int) *ringStreamer {
	return &ringStreamer{src: src, channels: channels}
}

// Stream never runs dry: missing samples are silence so the device keeps going
func (s *ringStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	// whole sample frames only, so channels never swap
	want := min(len(samples), s.src.Len()/s.channels) * s.channels
	if cap(s.scratch) < want {
		s.scratch = make([]float32, want)
	}
	buf := s.scratch[:want]

	got := s.src.Pop(buf) / s.channels

	for i := range samples {
		if i >= got {
			samples[i][0] = 0
			samples[i][1] = 0
			continue
		}
		if s.channels == 1 {
			v := float64(buf[i])
			samples[i][0], samples[i][1] = v, v
			continue
		}
		samples[i][0] = float64(buf[i*2])
		samples[i][1] = float64(buf[i*2+1])
	}
	return len(samples), true
}

func (s *ringStreamer) Err() error {
	return nil
}
