package ffmpeg

import (
	"errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/kplay/log"
	"github.com/njyeung/kplay/player"
	"github.com/sirupsen/logrus"
)

// fallbackFrameRate is used when a stream does not report its frame rate
const fallbackFrameRate = 25

// VideoDecoder decodes one video stream, burns in subtitles if asked and
// converts pictures to RGB24 inside a maximum size
type VideoDecoder struct {
	codecCtx *astiav.CodecContext
	swsCtx   *astiav.SoftwareScaleContext
	frame    *astiav.Frame
	rgbFrame *astiav.Frame

	sub    subtitleSource
	filter *subtitleFilter

	maxWidth  int
	maxHeight int

	// source geometry the scaler was built for
	srcWidth  int
	srcHeight int
	srcFormat astiav.PixelFormat
	dstWidth  int
	dstHeight int

	timeBase      astiav.Rational
	frameDuration int64

	log *logrus.Entry

	mu     sync.Mutex
	closed bool
}

// NewVideoDecoder creates a decoder for a video stream
func NewVideoDecoder(stream *astiav.Stream, maxWidth, maxHeight int, sub subtitleSource) (*VideoDecoder, error) {
	codecParams := stream.CodecParameters()
	v := &VideoDecoder{
		timeBase:  stream.TimeBase(),
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		sub:       sub,
		log:       log.For("video_decoder"),
	}
	v.frameDuration = frameDuration(stream.AvgFrameRate(), v.timeBase)

	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("video codec not found: %s", codecParams.CodecID())
	}

	v.codecCtx = astiav.AllocCodecContext(codec)
	if v.codecCtx == nil {
		return nil, errors.New("failed to allocate video codec context")
	}

	if err := codecParams.ToCodecContext(v.codecCtx); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to copy video codec params: %w", err)
	}

	if err := v.codecCtx.Open(codec, nil); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to open video codec: %w", err)
	}

	v.frame = astiav.AllocFrame()
	v.rgbFrame = astiav.AllocFrame()

	return v, nil
}

// frameDuration returns one frame's duration in stream ticks
func frameDuration(rate, timeBase astiav.Rational) int64 {
	fps := rate.Float64()
	if fps <= 0 {
		fps = fallbackFrameRate
	}
	tb := timeBase.Float64()
	if tb <= 0 {
		return 0
	}
	return int64(1 / fps / tb)
}

// fitSize computes aspect-correct dimensions to fit in the target area.
func fitSize(srcW, srcH, maxW, maxH int) (int, int) {
	if maxW <= 0 || maxH <= 0 || srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(maxW) / float64(maxH)

	if srcAspect > dstAspect {
		return maxW, max(int(float64(maxW)/srcAspect), 1)
	}
	return max(int(float64(maxH)*srcAspect), 1), maxH
}

// ensureScaler rebuilds the scaler when the decoded geometry changes
func (v *VideoDecoder) ensureScaler(f *astiav.Frame) error {
	w, h, pf := f.Width(), f.Height(), f.PixelFormat()
	if v.swsCtx != nil && w == v.srcWidth && h == v.srcHeight && pf == v.srcFormat {
		return nil
	}

	if v.swsCtx != nil {
		v.swsCtx.Free()
		v.swsCtx = nil
	}

	dstW, dstH := fitSize(w, h, v.maxWidth, v.maxHeight)

	var err error
	v.swsCtx, err = astiav.CreateSoftwareScaleContext(
		w, h, pf,
		dstW, dstH, astiav.PixelFormatRgb24,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("failed to create sws context: %w", err)
	}

	v.rgbFrame.Unref()
	v.rgbFrame.SetWidth(dstW)
	v.rgbFrame.SetHeight(dstH)
	v.rgbFrame.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := v.rgbFrame.AllocBuffer(1); err != nil {
		return fmt.Errorf("failed to allocate RGB frame buffer: %w", err)
	}

	v.srcWidth, v.srcHeight, v.srcFormat = w, h, pf
	v.dstWidth, v.dstHeight = dstW, dstH

	v.log.WithFields(logrus.Fields{
		"src": fmt.Sprintf("%dx%d", w, h),
		"dst": fmt.Sprintf("%dx%d", dstW, dstH),
	}).Debug("scaler configured")
	return nil
}

func (v *VideoDecoder) SendPacket(pkt player.Packet) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return player.ErrClosed
	}

	p, ok := pkt.(*astiav.Packet)
	if !ok {
		return fmt.Errorf("unexpected packet type %T", pkt)
	}
	if err := v.codecCtx.SendPacket(p); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("failed to send video packet: %w", err)
	}
	return nil
}

// picture runs the subtitle filter over the decoded frame. The filter is
// built on the first frame, and dropped for good if it fails.
func (v *VideoDecoder) picture() *astiav.Frame {
	if v.sub.file == "" {
		return v.frame
	}

	if v.filter == nil {
		f, err := newSubtitleFilter(v.frame, v.timeBase, v.sub)
		if err != nil {
			v.log.WithError(err).Warn("subtitles disabled")
			v.sub = subtitleSource{}
			return v.frame
		}
		v.filter = f
	}

	out, err := v.filter.apply(v.frame)
	if err != nil {
		v.log.WithError(err).Debug("subtitle filter")
		return v.frame
	}
	return out
}

// ReceiveFrame returns the next decoded picture
func (v *VideoDecoder) ReceiveFrame() (*player.VideoPlayFrame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, player.ErrClosed
	}

	if err := v.codecCtx.ReceiveFrame(v.frame); err != nil {
		return nil, decodeError(err)
	}
	defer v.frame.Unref()

	pts := framePTS(v.frame)

	pic := v.picture()
	if err := v.ensureScaler(pic); err != nil {
		return nil, err
	}
	if err := v.swsCtx.ScaleFrame(pic, v.rgbFrame); err != nil {
		return nil, fmt.Errorf("failed to scale frame: %w", err)
	}

	rgbBytes, err := v.rgbFrame.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get RGB bytes: %w", err)
	}

	// Copy the data since the frame buffer will be reused
	rgb := make([]byte, v.dstWidth*v.dstHeight*3)
	copy(rgb, rgbBytes)

	return &player.VideoPlayFrame{
		Width:     v.dstWidth,
		Height:    v.dstHeight,
		PTS:       pts,
		Duration:  v.frameDuration,
		Timestamp: pts,
		Pixels:    rgb,
	}, nil
}

// Flush discards the frames still pending in the decoder
func (v *VideoDecoder) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	for range flushDrainFrames {
		if err := v.codecCtx.ReceiveFrame(v.frame); err != nil {
			return
		}
		v.frame.Unref()
	}
}

// Close releases all resources
func (v *VideoDecoder) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true

	if v.filter != nil {
		v.filter.close()
		v.filter = nil
	}
	if v.frame != nil {
		v.frame.Free()
		v.frame = nil
	}
	if v.rgbFrame != nil {
		v.rgbFrame.Free()
		v.rgbFrame = nil
	}
	if v.swsCtx != nil {
		v.swsCtx.Free()
		v.swsCtx = nil
	}
	if v.codecCtx != nil {
		v.codecCtx.Free()
		v.codecCtx = nil
	}
}
