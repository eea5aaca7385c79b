// Package ffmpeg implements the player's media source and decoders on top of
// FFmpeg through go-astiav.
package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/kplay/log"
	"github.com/njyeung/kplay/player"
	"github.com/sirupsen/logrus"
)

func init() {
	// FFmpeg writes to stderr, which the terminal UI owns
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

// Opener opens files with FFmpeg
type Opener struct{}

func (Opener) Open(path string) (player.Source, error) {
	return NewDemuxer(path)
}

// Demuxer reads packets from a container and creates the decoders of its
// best streams. It implements player.Source.
type Demuxer struct {
	path      string
	formatCtx *astiav.FormatContext
	log       *logrus.Entry

	best map[player.MediaType]*astiav.Stream

	// subtitleOrdinal maps a subtitle stream index to its position among the
	// subtitle streams, which is how the subtitles filter addresses it
	subtitleOrdinal map[int]int

	mu     sync.Mutex
	closed bool
}

// NewDemuxer opens path and probes its streams
func NewDemuxer(path string) (*Demuxer, error) {
	d := &Demuxer{
		path:            path,
		log:             log.For("demuxer").WithField("path", path),
		best:            make(map[player.MediaType]*astiav.Stream),
		subtitleOrdinal: make(map[int]int),
	}

	d.formatCtx = astiav.AllocFormatContext()
	if d.formatCtx == nil {
		return nil, errors.New("failed to allocate format context")
	}

	if err := d.formatCtx.OpenInput(path, nil, nil); err != nil {
		d.formatCtx.Free()
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	if err := d.formatCtx.FindStreamInfo(nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to find stream info: %w", err)
	}

	for _, stream := range d.formatCtx.Streams() {
		mt, ok := mediaType(stream.CodecParameters().MediaType())
		if !ok {
			continue
		}
		if mt == player.MediaSubtitle {
			d.subtitleOrdinal[stream.Index()] = len(d.subtitleOrdinal)
		}
		if _, seen := d.best[mt]; !seen {
			d.best[mt] = stream
		}
	}

	d.log.WithFields(logrus.Fields{
		"streams":  len(d.formatCtx.Streams()),
		"duration": d.Duration(),
	}).Debug("demuxer opened")

	return d, nil
}

func mediaType(t astiav.MediaType) (player.MediaType, bool) {
	switch t {
	case astiav.MediaTypeVideo:
		return player.MediaVideo, true
	case astiav.MediaTypeAudio:
		return player.MediaAudio, true
	case astiav.MediaTypeSubtitle:
		return player.MediaSubtitle, true
	}
	return 0, false
}

func rational(r astiav.Rational) player.Rational {
	return player.Rational{Num: r.Num(), Den: r.Den()}
}

func streamInfo(mt player.MediaType, s *astiav.Stream) player.StreamInfo {
	cp := s.CodecParameters()
	info := player.StreamInfo{
		Index:     s.Index(),
		Type:      mt,
		Codec:     cp.CodecID().String(),
		TimeBase:  rational(s.TimeBase()),
		FrameRate: rational(s.AvgFrameRate()),
	}
	switch mt {
	case player.MediaVideo:
		info.Width, info.Height = cp.Width(), cp.Height()
	case player.MediaAudio:
		info.SampleRate = cp.SampleRate()
		info.Layout = cp.ChannelLayout().String()
	}
	return info
}

// Streams describes every stream the player can use, in container order
func (d *Demuxer) Streams() []player.StreamInfo {
	var out []player.StreamInfo
	for _, s := range d.formatCtx.Streams() {
		if mt, ok := mediaType(s.CodecParameters().MediaType()); ok {
			out = append(out, streamInfo(mt, s))
		}
	}
	return out
}

// BestStream returns the first stream of a media type
func (d *Demuxer) BestStream(mt player.MediaType) (player.StreamInfo, bool) {
	s, ok := d.best[mt]
	if !ok {
		return player.StreamInfo{}, false
	}
	return streamInfo(mt, s), true
}

// Duration returns the container duration in microseconds, 0 when unknown
func (d *Demuxer) Duration() int64 {
	return max(d.formatCtx.Duration(), 0)
}

// ReadPacket reads the next packet in container order. The caller owns
// the returned packet.
func (d *Demuxer) ReadPacket() (player.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, player.ErrClosed
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, errors.New("failed to allocate packet")
	}

	if err := d.formatCtx.ReadFrame(pkt); err != nil {
		pkt.Free()
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return pkt, nil
}

// Seek moves the read cursor near target microseconds
func (d *Demuxer) Seek(target int64, backward bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return player.ErrClosed
	}

	flags := astiav.NewSeekFlags()
	if backward {
		flags = astiav.NewSeekFlags(astiav.SeekFlagBackward)
	}
	if err := d.formatCtx.SeekFrame(-1, target, flags); err != nil {
		return fmt.Errorf("failed to seek to %d: %w", target, err)
	}
	return nil
}

// NewAudioDecoder opens the best audio stream, resampling to out
func (d *Demuxer) NewAudioDecoder(out player.AudioFormat) (player.AudioDecoder, error) {
	s, ok := d.best[player.MediaAudio]
	if !ok {
		return nil, fmt.Errorf("audio: %w", player.ErrNoPlayableStream)
	}
	return NewAudioDecoder(s.CodecParameters(), s.TimeBase(), out)
}

// NewVideoDecoder opens the best video stream
func (d *Demuxer) NewVideoDecoder(cfg player.VideoConfig) (player.VideoDecoder, error) {
	s, ok := d.best[player.MediaVideo]
	if !ok {
		return nil, fmt.Errorf("video: %w", player.ErrNoPlayableStream)
	}

	sub := subtitleSource{file: cfg.SubtitleFile, stream: -1}
	if cfg.SubtitleFile != "" {
		if ord, ok := d.subtitleOrdinal[cfg.SubtitleStream]; ok && cfg.SubtitleStream >= 0 {
			sub.stream = ord
		}
	}

	return NewVideoDecoder(s, cfg.MaxWidth, cfg.MaxHeight, sub)
}

// Close releases the container
func (d *Demuxer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
	return nil
}
