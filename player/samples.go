package player

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SamplesFromBytes decodes n packed little-endian float32 samples from b
func SamplesFromBytes(b []byte, n int) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative sample count %d", n)
	}
	if len(b) < n*4 {
		return nil, fmt.Errorf("sample buffer holds %d bytes, need %d", len(b), n*4)
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// ResolvePTS picks the presentation timestamp of a decoded frame: its own
// pts, then its best effort timestamp, then the packet dts, then 0.
func ResolvePTS(pts, bestEffort, pktDts int64) int64 {
	switch {
	case pts != NoPTS:
		return pts
	case bestEffort != NoPTS:
		return bestEffort
	case pktDts != NoPTS:
		return pktDts
	}
	return 0
}

// scaleVolume multiplies samples in place
func scaleVolume(samples []float32, volume float64) {
	if volume == 1 {
		return
	}
	v := float32(volume)
	for i := range samples {
		samples[i] *= v
	}
}

func zeroSamples(samples []float32) {
	clear(samples)
}

// ticksToMs converts container ticks to milliseconds
func ticksToMs(ticks int64) int64 {
	return ticks / (TimeBase / 1000)
}

// msToTicks converts milliseconds to container ticks
func msToTicks(ms int64) int64 {
	return ms * (TimeBase / 1000)
}
