package ffmpeg

import (
	"errors"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/kplay/player"
)

// flushDrainFrames caps the frames discarded from a decoder on flush
const flushDrainFrames = 20

// decodeError maps FFmpeg's receive errors onto the player's sentinels
func decodeError(err error) error {
	switch {
	case errors.Is(err, astiav.ErrEagain):
		return player.ErrNeedMore
	case errors.Is(err, astiav.ErrEof):
		return player.ErrDrained
	}
	return err
}

// framePTS resolves the timestamp of a decoded frame. go-astiav does not
// expose best_effort_timestamp, so that fallback is skipped.
func framePTS(f *astiav.Frame) int64 {
	return player.ResolvePTS(f.Pts(), player.NoPTS, f.PktDts())
}
