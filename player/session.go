package player

import (
	"sync"
	"sync/atomic"

	"github.com/njyeung/kplay/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// playSession is everything that lives for one open file: the control
// object, the channel set and the workers moving data between them.
type playSession struct {
	path string
	src  Source
	ctrl *PlayCtrl
	log  *logrus.Entry

	audio     AudioDecoder
	video     VideoDecoder
	audioOut  AudioOutput
	sink      VideoSink
	attached  bool
	audioInfo *StreamInfo
	videoInfo *StreamInfo
	consumer  *RingConsumer
	producer  *RingProducer

	audioPkts   chan Item[Packet]
	videoPkts   chan Item[Packet]
	audioFrames chan Item[*AudioPlayFrame]
	videoFrames chan Item[*VideoPlayFrame]

	group *errgroup.Group
	done  chan struct{}
	err   error

	// userStop is set when the session was stopped from the outside
	userStop atomic.Bool

	releaseOnce sync.Once
}

type sessionConfig struct {
	path     string
	opts     Options
	volume   float64
	muted    bool
	audioOut AudioOutput
	sink     VideoSink
	subtitle string
	subIndex int
}

// newPlaySession opens the decoders and wires the channels. On error every
// resource acquired so far is released and src is closed.
func newPlaySession(src Source, cfg sessionConfig) (_ *playSession, err error) {
	s := &playSession{
		path:     cfg.path,
		src:      src,
		audioOut: cfg.audioOut,
		sink:     cfg.sink,
		log:      log.For("session").WithField("path", cfg.path),
		done:     make(chan struct{}),
	}
	defer func() {
		if err != nil {
			s.release()
		}
	}()

	if info, ok := src.BestStream(MediaAudio); ok && cfg.audioOut != nil {
		s.audioInfo = &info
	}
	if info, ok := src.BestStream(MediaVideo); ok && cfg.sink != nil {
		s.videoInfo = &info
	}
	if s.audioInfo == nil && s.videoInfo == nil {
		return nil, newOpError("open", cfg.path, ErrNoPlayableStream)
	}

	opts := cfg.opts
	var audioFormat AudioFormat
	if s.audioInfo != nil {
		audioFormat = cfg.audioOut.Format()
		s.audio, err = src.NewAudioDecoder(audioFormat)
		if err != nil {
			return nil, newOpError("open audio decoder", cfg.path, err)
		}
		s.audioPkts = make(chan Item[Packet], max(opts.AudioPacketQueue, 1))
		s.audioFrames = make(chan Item[*AudioPlayFrame], max(opts.AudioFrameQueue, 1))
		s.producer, s.consumer = NewRingBuffer(max(opts.RingSamples, 1))
	}
	if s.videoInfo != nil {
		s.video, err = src.NewVideoDecoder(VideoConfig{
			MaxWidth:       opts.MaxWidth,
			MaxHeight:      opts.MaxHeight,
			SubtitleFile:   cfg.subtitle,
			SubtitleStream: cfg.subIndex,
		})
		if err != nil {
			return nil, newOpError("open video decoder", cfg.path, err)
		}
		s.videoPkts = make(chan Item[Packet], max(opts.VideoPacketQueue, 1))
		s.videoFrames = make(chan Item[*VideoPlayFrame], max(opts.VideoFrameQueue, 1))
	}

	s.ctrl = newPlayCtrl(ctrlConfig{
		audio:     s.audioInfo,
		video:     s.videoInfo,
		duration:  src.Duration(),
		volume:    cfg.volume,
		muted:     cfg.muted,
		lookahead: opts.LookaheadFrames,
		ring:      s.consumer,
		format:    audioFormat,
	})

	if s.audioInfo != nil {
		if err = cfg.audioOut.Attach(s.consumer); err != nil {
			return nil, newOpError("attach audio output", cfg.path, err)
		}
		s.attached = true
	}

	s.log.WithFields(logrus.Fields{
		"audio":    s.audioInfo != nil,
		"video":    s.videoInfo != nil,
		"duration": s.ctrl.DurationMs(),
	}).Info("session opened")

	return s, nil
}

// start launches the workers. The session begins Paused with a stepping
// pass so the first frame is shown before playback.
func (s *playSession) start() {
	s.ctrl.setStepping(true)

	g := new(errgroup.Group)
	s.group = g

	reader := &packetReader{
		ctrl:        s.ctrl,
		src:         s.src,
		log:         log.For("reader"),
		audioIdx:    -1,
		videoIdx:    -1,
		audioPkts:   s.audioPkts,
		videoPkts:   s.videoPkts,
		audioFrames: s.audioFrames,
		videoFrames: s.videoFrames,
	}

	if s.audioInfo != nil {
		reader.audioIdx = s.audioInfo.Index
		g.Go(newAudioDecodeWorker(s.ctrl, s.audio, s.audioPkts, s.audioFrames, log.For("audio_decode")).run)
		g.Go((&audioPresenter{
			ctrl:     s.ctrl,
			frames:   s.audioFrames,
			producer: s.producer,
			log:      log.For("audio_present"),
		}).run)
	}
	if s.videoInfo != nil {
		reader.videoIdx = s.videoInfo.Index
		g.Go(newVideoDecodeWorker(s.ctrl, s.video, s.videoPkts, s.videoFrames, log.For("video_decode")).run)
		g.Go((&videoPresenter{
			ctrl:   s.ctrl,
			frames: s.videoFrames,
			sink:   s.sink,
			log:    log.For("video_present"),
		}).run)
	}
	g.Go(reader.run)
	g.Go(s.supervise)

	go func() {
		s.err = g.Wait()
		s.log.Info("session workers joined")
		close(s.done)
	}()
}

// supervise applies the state transitions no single worker owns
func (s *playSession) supervise() error {
	for {
		s.ctrl.processState()
		if s.ctrl.stopped() {
			return nil
		}
		if !s.ctrl.wait(PlayMinInterval) {
			return nil
		}
	}
}

// stop publishes Stopped and waits for every worker to exit
func (s *playSession) stop() error {
	s.ctrl.Stop()
	if s.group == nil {
		return nil
	}
	<-s.done
	return s.err
}

// release frees the decoders, the source and the packets still queued.
// Workers must have exited.
func (s *playSession) release() {
	s.releaseOnce.Do(func() {
		if s.attached {
			s.audioOut.Detach()
			s.attached = false
		}
		if s.audioPkts != nil {
			drain(s.audioPkts, Packet.Free)
		}
		if s.videoPkts != nil {
			drain(s.videoPkts, Packet.Free)
		}
		if s.audio != nil {
			s.audio.Close()
		}
		if s.video != nil {
			s.video.Close()
		}
		if err := s.src.Close(); err != nil {
			s.log.WithError(err).Warn("close source")
		}
		s.log.Info("session released")
	})
}
