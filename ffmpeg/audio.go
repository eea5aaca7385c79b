package ffmpeg

import (
	"errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/kplay/player"
)

// AudioDecoder decodes one audio stream and resamples it to packed float32
// in the device format
type AudioDecoder struct {
	codecCtx *astiav.CodecContext
	swrCtx   *astiav.SoftwareResampleContext
	frame    *astiav.Frame
	outFrame *astiav.Frame

	timeBase astiav.Rational
	out      player.AudioFormat

	mu     sync.Mutex
	closed bool
}

// NewAudioDecoder creates a decoder from codec parameters
func NewAudioDecoder(codecParams *astiav.CodecParameters, timeBase astiav.Rational, out player.AudioFormat) (*AudioDecoder, error) {
	if out.Channels != 1 && out.Channels != 2 {
		return nil, fmt.Errorf("unsupported output channel count %d", out.Channels)
	}

	a := &AudioDecoder{
		timeBase: timeBase,
		out:      out,
	}

	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("audio codec not found: %s", codecParams.CodecID())
	}

	a.codecCtx = astiav.AllocCodecContext(codec)
	if a.codecCtx == nil {
		return nil, errors.New("failed to allocate audio codec context")
	}

	if err := codecParams.ToCodecContext(a.codecCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to copy audio codec params: %w", err)
	}

	if err := a.codecCtx.Open(codec, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open audio codec: %w", err)
	}

	a.frame = astiav.AllocFrame()
	a.outFrame = astiav.AllocFrame()

	// configured from the first frame
	a.swrCtx = astiav.AllocSoftwareResampleContext()
	if a.swrCtx == nil {
		a.Close()
		return nil, errors.New("failed to allocate swr context")
	}

	return a, nil
}

func (a *AudioDecoder) outLayout() astiav.ChannelLayout {
	if a.out.Channels == 1 {
		return astiav.ChannelLayoutMono
	}
	return astiav.ChannelLayoutStereo
}

func (a *AudioDecoder) SendPacket(pkt player.Packet) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return player.ErrClosed
	}

	p, ok := pkt.(*astiav.Packet)
	if !ok {
		return fmt.Errorf("unexpected packet type %T", pkt)
	}
	if err := a.codecCtx.SendPacket(p); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("failed to send audio packet: %w", err)
	}
	return nil
}

// ReceiveFrame returns the next decoded frame, resampled
func (a *AudioDecoder) ReceiveFrame() (*player.AudioPlayFrame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, player.ErrClosed
	}

	if err := a.codecCtx.ReceiveFrame(a.frame); err != nil {
		return nil, decodeError(err)
	}
	defer a.frame.Unref()

	inSamples := a.frame.NbSamples()
	inRate := a.frame.SampleRate()
	if inRate <= 0 {
		inRate = a.codecCtx.SampleRate()
	}

	// room for every converted sample plus what the resampler held back
	a.outFrame.Unref()
	a.outFrame.SetSampleFormat(astiav.SampleFormatFlt)
	a.outFrame.SetChannelLayout(a.outLayout())
	a.outFrame.SetSampleRate(a.out.SampleRate)
	a.outFrame.SetNbSamples(inSamples*a.out.SampleRate/max(inRate, 1) + 256)
	if err := a.outFrame.AllocBuffer(0); err != nil {
		return nil, fmt.Errorf("failed to allocate resample buffer: %w", err)
	}

	if err := a.swrCtx.ConvertFrame(a.frame, a.outFrame); err != nil {
		return nil, fmt.Errorf("failed to resample audio frame: %w", err)
	}

	n := a.outFrame.NbSamples() * a.out.Channels
	plane, err := a.outFrame.Data().Bytes(0)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio bytes: %w", err)
	}
	samples, err := player.SamplesFromBytes(plane, n)
	if err != nil {
		return nil, err
	}

	var duration int64
	if tb := a.timeBase.Float64(); tb > 0 && inRate > 0 {
		duration = int64(float64(inSamples) / float64(inRate) / tb)
	}

	pts := framePTS(a.frame)
	return &player.AudioPlayFrame{
		Samples:    samples,
		Channels:   a.out.Channels,
		SampleRate: a.out.SampleRate,
		PTS:        pts,
		Duration:   duration,
		Timestamp:  pts,
	}, nil
}

// Flush discards the frames still pending in the decoder
func (a *AudioDecoder) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	for range flushDrainFrames {
		if err := a.codecCtx.ReceiveFrame(a.frame); err != nil {
			return
		}
		a.frame.Unref()
	}
}

func (a *AudioDecoder) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true

	if a.frame != nil {
		a.frame.Free()
		a.frame = nil
	}
	if a.outFrame != nil {
		a.outFrame.Free()
		a.outFrame = nil
	}
	if a.swrCtx != nil {
		a.swrCtx.Free()
		a.swrCtx = nil
	}
	if a.codecCtx != nil {
		a.codecCtx.Free()
		a.codecCtx = nil
	}
}
