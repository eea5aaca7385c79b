package player

import (
	"github.com/sirupsen/logrus"
)

// audioPresenter moves decoded audio into the ring buffer the device drains
type audioPresenter struct {
	ctrl     *PlayCtrl
	frames   chan Item[*AudioPlayFrame]
	producer *RingProducer
	log      *logrus.Entry

	settlePending bool
}

func (p *audioPresenter) run() error {
	p.log.Info("audio presenter started")
	defer p.log.Info("audio presenter exit")

	done := p.ctrl.Done()
	primary := p.ctrl.primary() == MediaAudio
	empty := 0

	for {
		if p.ctrl.stopped() {
			return nil
		}

		if p.ctrl.idle() {
			if !p.ctrl.wait(PlayMinInterval) {
				return nil
			}
			continue
		}

		// While video previews a paused position, hold audio back and
		// only drop frames when the decoder is about to stall on us.
		if !primary && !p.ctrl.audible() && !full(p.frames) {
			if !p.ctrl.wait(ringFullSleep) {
				return nil
			}
			continue
		}

		it, ok := recv(p.frames, PlayMinInterval, done)
		if !ok {
			if p.ctrl.PacketFinished() {
				empty++
				if empty >= finishedPolls && !p.ctrl.AudioFinished() {
					p.log.Info("audio stream finished")
					p.ctrl.setFinished(MediaAudio)
				}
			}
			continue
		}
		empty = 0

		if it.Discontinuity {
			if primary && it.Epoch == p.ctrl.Epoch() {
				p.settlePending = true
			}
			continue
		}
		if it.Epoch < p.ctrl.Epoch() {
			continue
		}

		if !p.play(it.Value) {
			return nil
		}

		if primary {
			if p.settlePending {
				p.settlePending = false
				p.ctrl.settleSeek()
			}
			p.ctrl.setStepping(false)
		}
	}
}

// play pushes the samples, waiting for room in the ring buffer, then updates
// the audio clock. No sample is dropped unless the player stops.
func (p *audioPresenter) play(f *AudioPlayFrame) bool {
	if !p.ctrl.audible() {
		p.ctrl.updateAudio(f)
		return true
	}
	if p.ctrl.Muted() {
		zeroSamples(f.Samples)
	}

	samples := f.Samples
	for {
		n := p.producer.Push(samples)
		samples = samples[n:]
		if len(samples) == 0 {
			p.ctrl.updateAudio(f)
			return true
		}
		if p.ctrl.stopped() || !sleep(ringFullSleep, p.ctrl.Done()) {
			return false
		}
	}
}

// videoPresenter shows decoded pictures at the pace the sync algorithm sets
type videoPresenter struct {
	ctrl   *PlayCtrl
	frames chan Item[*VideoPlayFrame]
	sink   VideoSink
	log    *logrus.Entry

	settlePending bool
}

func isFrameCommand(c CommandGo) bool {
	return c.Kind == CommandFrame
}

func (p *videoPresenter) run() error {
	p.log.Info("video presenter started")
	defer p.log.Info("video presenter exit")

	done := p.ctrl.Done()
	empty := 0

	for {
		if p.ctrl.stopped() {
			return nil
		}

		if p.ctrl.idle() {
			if !p.ctrl.wait(PlayMinInterval) {
				return nil
			}
			continue
		}

		if cmd, ok := p.ctrl.takeCommand(isFrameCommand); ok {
			if !p.skip(cmd.N - 1) {
				return nil
			}
		}

		it, ok := recv(p.frames, PlayMinInterval, done)
		if !ok {
			if p.ctrl.PacketFinished() {
				empty++
				if empty >= finishedPolls && !p.ctrl.VideoFinished() {
					p.log.Info("video stream finished")
					p.ctrl.setFinished(MediaVideo)
				}
			}
			continue
		}
		empty = 0

		if it.Discontinuity {
			if it.Epoch == p.ctrl.Epoch() {
				p.settlePending = true
			}
			continue
		}
		if it.Epoch < p.ctrl.Epoch() {
			continue
		}

		if !p.present(it.Value) {
			return nil
		}
	}
}

// skip discards n frames of the current epoch. It gives up early at the end
// of the stream or on a seek, and returns false on stop.
func (p *videoPresenter) skip(n int64) bool {
	done := p.ctrl.Done()
	for n > 0 {
		if p.ctrl.stopped() {
			return false
		}
		it, ok := recv(p.frames, PlayMinInterval, done)
		if !ok {
			if p.ctrl.PacketFinished() && len(p.frames) == 0 {
				return true
			}
			continue
		}
		if it.Discontinuity {
			if it.Epoch == p.ctrl.Epoch() {
				p.settlePending = true
			}
			return true
		}
		if it.Epoch < p.ctrl.Epoch() {
			continue
		}
		n--
	}
	return true
}

// present shows one frame and holds it for the computed delay
func (p *videoPresenter) present(f *VideoPlayFrame) bool {
	p.ctrl.updateVideo(f)
	delay := p.ctrl.videoDelay()

	if err := p.sink.Render(f); err != nil {
		p.log.WithError(err).Warn("render frame")
	}
	p.sink.RequestRepaint()

	if p.settlePending {
		p.settlePending = false
		p.ctrl.settleSeek()
	}

	if p.ctrl.Stepping() {
		p.ctrl.setStepping(false)
		return true
	}

	if delay > 0 {
		return sleep(secondsToDuration(delay), p.ctrl.Done())
	}
	return true
}
