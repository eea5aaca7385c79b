package player

import (
	"errors"
	"io"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// packetReader owns the demux cursor. It routes packets to the per-stream
// channels and executes seek and skip commands.
type packetReader struct {
	ctrl *PlayCtrl
	src  Source
	log  *logrus.Entry

	audioIdx int
	videoIdx int

	audioPkts   chan Item[Packet]
	videoPkts   chan Item[Packet]
	audioFrames chan Item[*AudioPlayFrame]
	videoFrames chan Item[*VideoPlayFrame]
}

func (r *packetReader) run() error {
	r.log.Info("packet reader started")
	defer r.log.Info("packet reader exit")

	for {
		if r.ctrl.stopped() {
			return nil
		}

		if r.ctrl.allFinished() {
			r.ctrl.Stop()
			return nil
		}

		if cmd, ok := r.ctrl.takeCommand(CommandGo.ownedByReader); ok {
			r.log.WithField("command", cmd).Debug("command")
			if !r.execute(cmd) {
				return nil
			}
			continue
		}

		if r.ctrl.idle() || r.ctrl.PacketFinished() {
			if !r.ctrl.wait(PlayMinInterval) {
				return nil
			}
			continue
		}

		// back off instead of blocking in send so commands are still taken
		if full(r.audioPkts) || full(r.videoPkts) {
			if !r.ctrl.wait(queueFullSleep) {
				return nil
			}
			continue
		}

		if !r.readOne() {
			return nil
		}
	}
}

// execute runs a reader-owned command. It returns false when the reader must exit.
func (r *packetReader) execute(cmd CommandGo) bool {
	switch cmd.Kind {
	case CommandPacket:
		for range max(cmd.N, 0) {
			if r.ctrl.PacketFinished() {
				break
			}
			if !r.readOne() {
				return false
			}
		}
		return true

	case CommandGoMs:
		target := max(r.ctrl.ElapsedMs()+cmd.N, 0)
		if d := r.ctrl.DurationMs(); d > 0 {
			target = min(target, d)
		}
		return r.seek(target, cmd.N < 0)

	case CommandSeek:
		ticks := max(cmd.N, 0)
		if d := r.ctrl.Duration(); d > 0 {
			ticks = lo.Clamp(ticks, 0, d)
		}
		target := ticksToMs(ticks)
		return r.seek(target, target < r.ctrl.ElapsedMs())
	}
	return true
}

// seek moves the cursor to targetMs and flushes everything downstream
func (r *packetReader) seek(targetMs int64, backward bool) bool {
	log := r.log.WithFields(logrus.Fields{"target_ms": targetMs, "backward": backward})

	if err := r.src.Seek(msToTicks(targetMs), backward); err != nil {
		log.WithError(err).Warn("seek failed")
		return true
	}

	wasPaused := r.ctrl.State() == StatePaused
	epoch := r.ctrl.beginSeek(targetMs)
	if !r.flush(epoch) {
		return false
	}
	log.WithField("epoch", epoch).Debug("seeked")

	// a paused picture still updates after the seek
	if wasPaused {
		return r.readOne()
	}
	return true
}

// flush discards queued packets and frames and marks the discontinuity on
// every packet channel
func (r *packetReader) flush(epoch uint64) bool {
	drain(r.audioPkts, Packet.Free)
	drain(r.videoPkts, Packet.Free)
	drain(r.audioFrames, nil)
	drain(r.videoFrames, nil)

	for _, ch := range []chan Item[Packet]{r.audioPkts, r.videoPkts} {
		if ch == nil {
			continue
		}
		if !send(ch, discontinuityItem[Packet](epoch), r.ctrl.Done()) {
			return false
		}
	}
	return true
}

// readOne reads and routes a single packet. It returns false when the reader must exit.
func (r *packetReader) readOne() bool {
	pkt, err := r.src.ReadPacket()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			r.log.WithError(err).Warn("read packet")
		}
		if !r.ctrl.PacketFinished() {
			r.log.Info("end of container")
		}
		r.ctrl.setPacketFinished(true)
		return true
	}
	return r.route(pkt)
}

func (r *packetReader) route(pkt Packet) bool {
	var ch chan Item[Packet]
	switch pkt.StreamIndex() {
	case r.audioIdx:
		ch = r.audioPkts
	case r.videoIdx:
		ch = r.videoPkts
	}
	if ch == nil {
		pkt.Free()
		return true
	}

	if !send(ch, valueItem(pkt, r.ctrl.Epoch()), r.ctrl.Done()) {
		r.log.Debug("packet send interrupted by stop")
		pkt.Free()
		return false
	}
	return true
}
