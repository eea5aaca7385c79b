package player

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// frameDecoder is the part of AudioDecoder and VideoDecoder the decode loop needs
type frameDecoder[F any] interface {
	SendPacket(pkt Packet) error
	ReceiveFrame() (F, error)
	Flush()
}

// decodeWorker pulls packets of one stream, feeds the decoder and forwards
// every decoded frame before asking for more input.
type decodeWorker[F any] struct {
	ctrl    *PlayCtrl
	dec     frameDecoder[F]
	packets chan Item[Packet]
	frames  chan Item[F]
	log     *logrus.Entry

	// prepare runs on every frame before it is forwarded
	prepare func(F)

	// epoch of the last packet fed to the decoder
	epoch uint64
}

func newAudioDecodeWorker(ctrl *PlayCtrl, dec AudioDecoder, packets chan Item[Packet], frames chan Item[*AudioPlayFrame], log *logrus.Entry) *decodeWorker[*AudioPlayFrame] {
	return &decodeWorker[*AudioPlayFrame]{
		ctrl:    ctrl,
		dec:     dec,
		packets: packets,
		frames:  frames,
		log:     log,
		prepare: func(f *AudioPlayFrame) {
			scaleVolume(f.Samples, ctrl.Volume())
		},
	}
}

func newVideoDecodeWorker(ctrl *PlayCtrl, dec VideoDecoder, packets chan Item[Packet], frames chan Item[*VideoPlayFrame], log *logrus.Entry) *decodeWorker[*VideoPlayFrame] {
	return &decodeWorker[*VideoPlayFrame]{
		ctrl:    ctrl,
		dec:     dec,
		packets: packets,
		frames:  frames,
		log:     log,
	}
}

func (w *decodeWorker[F]) run() error {
	w.log.Info("decoder started")
	defer w.log.Info("decoder exit")

	done := w.ctrl.Done()
	for {
		if w.ctrl.stopped() {
			return nil
		}

		if w.ctrl.idle() {
			if !w.ctrl.wait(PlayMinInterval) {
				return nil
			}
			continue
		}

		if !w.receiveAll() {
			return nil
		}

		it, ok := recv(w.packets, PlayMinInterval, done)
		if !ok {
			continue
		}

		if it.Discontinuity {
			w.dec.Flush()
			w.epoch = it.Epoch
			if !send(w.frames, discontinuityItem[F](it.Epoch), done) {
				return nil
			}
			continue
		}

		if it.Epoch < w.ctrl.Epoch() {
			it.Value.Free()
			continue
		}

		w.epoch = it.Epoch
		if err := w.dec.SendPacket(it.Value); err != nil {
			w.log.WithError(err).Debug("send packet")
		}
		it.Value.Free()
	}
}

// receiveAll forwards every frame the decoder has ready. It returns false
// when a stop interrupted a blocked send.
func (w *decodeWorker[F]) receiveAll() bool {
	for {
		f, err := w.dec.ReceiveFrame()
		if err != nil {
			if !errors.Is(err, ErrNeedMore) && !errors.Is(err, ErrDrained) {
				w.log.WithError(err).Debug("receive frame")
			}
			return true
		}

		if w.epoch < w.ctrl.Epoch() {
			continue
		}

		if w.prepare != nil {
			w.prepare(f)
		}

		if !send(w.frames, valueItem(f, w.epoch), w.ctrl.Done()) {
			w.log.Debug("frame send interrupted by stop")
			return false
		}
	}
}
