package player

import (
	"fmt"
	"time"
)

// Opener opens a media file for playback
type Opener interface {
	Open(path string) (Source, error)
}

// OpenerFunc adapts a function to an Opener
type OpenerFunc func(path string) (Source, error)

func (f OpenerFunc) Open(path string) (Source, error) { return f(path) }

// Source is a seekable demuxable container
type Source interface {
	// BestStream returns the preferred stream of a media type
	BestStream(mt MediaType) (StreamInfo, bool)

	// Duration returns the container duration in ticks of TimeBase
	Duration() int64

	// ReadPacket returns the next packet in container order, io.EOF at the end
	ReadPacket() (Packet, error)

	// Seek moves the read cursor to the keyframe nearest target (container
	// ticks). backward restricts the search to keyframes at or before target.
	// The landing position may be before or after target.
	Seek(target int64, backward bool) error

	// NewAudioDecoder opens a decoder for the best audio stream that
	// resamples to the given output format
	NewAudioDecoder(out AudioFormat) (AudioDecoder, error)

	// NewVideoDecoder opens a decoder for the best video stream
	NewVideoDecoder(cfg VideoConfig) (VideoDecoder, error)

	Close() error
}

// Packet is a compressed packet owned by whoever holds it last. Free must be
// called exactly once.
type Packet interface {
	StreamIndex() int
	Free()
}

// AudioDecoder decodes audio packets into frames already in the output format
type AudioDecoder interface {
	SendPacket(pkt Packet) error
	// ReceiveFrame returns ErrNeedMore when the decoder needs input and
	// ErrDrained once it will not produce any more frames
	ReceiveFrame() (*AudioPlayFrame, error)
	// Flush discards frames pending in the decoder
	Flush()
	Close()
}

// VideoDecoder decodes video packets into displayable RGB frames
type VideoDecoder interface {
	SendPacket(pkt Packet) error
	ReceiveFrame() (*VideoPlayFrame, error)
	Flush()
	Close()
}

// AudioOutput is the platform audio device. The device pulls samples from
// the attached source on its own callback; the engine never calls it.
type AudioOutput interface {
	Format() AudioFormat
	Attach(src SampleSource) error
	Detach()
}

// SampleSource is the consumer side of the audio ring buffer
type SampleSource interface {
	Pop(dst []float32) int
	Len() int
}

// VideoSink displays frames
type VideoSink interface {
	Render(frame *VideoPlayFrame) error
	RequestRepaint()
}

// MediaType identifies a kind of elementary stream
type MediaType int

const (
	MediaVideo MediaType = iota
	MediaAudio
	MediaSubtitle
)

func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaSubtitle:
		return "subtitle"
	}
	return fmt.Sprintf("media(%d)", int(m))
}

// Rational is a stream time base
type Rational struct {
	Num, Den int
}

// Float64 returns num/den, or 0 for an unset rational
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// StreamInfo describes one elementary stream
type StreamInfo struct {
	Index     int
	Type      MediaType
	Codec     string
	TimeBase  Rational
	FrameRate Rational

	// video
	Width, Height int

	// audio
	SampleRate int
	Layout     string
}

// AudioFormat is the device format: interleaved float32 samples
type AudioFormat struct {
	Channels   int
	SampleRate int
}

// VideoConfig configures the video decoder output
type VideoConfig struct {
	// Frames are scaled to fit inside MaxWidth x MaxHeight, keeping aspect. 0 keeps the source size.
	MaxWidth  int
	MaxHeight int

	// SubtitleFile is burned into the picture when set
	SubtitleFile string
	// SubtitleStream selects an embedded subtitle stream when >= 0
	SubtitleStream int
}

// AudioPlayFrame is a decoded audio frame ready for the device
type AudioPlayFrame struct {
	Samples    []float32 // interleaved, resampled and volume-scaled
	Channels   int
	SampleRate int
	PTS        int64
	Duration   int64
	Timestamp  int64
}

// VideoPlayFrame is a decoded picture ready for display
type VideoPlayFrame struct {
	Width     int
	Height    int
	PTS       int64
	Duration  int64
	Timestamp int64
	Pixels    []byte // packed RGB24
}

// NoPTS marks a missing timestamp
const NoPTS int64 = -1 << 63

// TimeBase is the container tick rate (ticks per second)
const TimeBase = 1000000

const (
	// PlayMinInterval bounds every sleep-and-recheck loop
	PlayMinInterval = 50 * time.Millisecond

	// VideoSyncThresholdMin is how far video may lag audio before frames are hurried
	VideoSyncThresholdMin = -0.1
	// VideoSyncThresholdMax is how far video may lead audio before frames are held
	VideoSyncThresholdMax = 0.025

	// finishedPolls is the number of consecutive empty polls after end of
	// container before a presenter declares its stream finished
	finishedPolls = 10

	ringFullSleep = 10 * time.Millisecond

	// queueFullSleep is the reader's backoff while a packet channel is full
	queueFullSleep = 10 * time.Millisecond
)
