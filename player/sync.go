package player

import (
	"math"
	"time"
)

// ComputeVideoDelay returns how long to hold the current video frame, in
// seconds, given the projected audio play time and the video frame's play
// time and duration.
//
// Video lagging audio by more than 100ms shortens the hold, video leading by
// more than 25ms lengthens it by a fixed 25ms, anything in between plays at
// the natural frame rate. Without a reference on either side the natural
// rate is used.
func ComputeVideoDelay(audioPlayTS, videoPlayTS, videoDuration float64) float64 {
	if audioPlayTS == 0 || videoPlayTS == 0 {
		return videoDuration
	}

	diff := videoPlayTS - audioPlayTS
	switch {
	case diff <= VideoSyncThresholdMin:
		return math.Max(0, videoDuration+diff)
	case diff >= VideoSyncThresholdMax:
		return videoDuration + VideoSyncThresholdMax
	default:
		return videoDuration
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
