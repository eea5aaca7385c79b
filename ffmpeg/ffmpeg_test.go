package ffmpeg

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/kplay/player"
)

func TestFitSize(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"no bound", 1920, 1080, 0, 0, 1920, 1080},
		{"already fits", 640, 360, 1280, 720, 640, 360},
		{"wide source", 1920, 1080, 800, 800, 800, 450},
		{"tall source", 1080, 1920, 800, 800, 450, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitSize(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitSize(%d, %d, %d, %d) = %dx%d, want %dx%d",
					tt.srcW, tt.srcH, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFrameDuration(t *testing.T) {
	tb := astiav.NewRational(1, 90000)

	if got := frameDuration(astiav.NewRational(30, 1), tb); got != 3000 {
		t.Errorf("30fps at 1/90000 = %d ticks, want 3000", got)
	}
	if got := frameDuration(astiav.NewRational(0, 1), tb); got != 3600 {
		t.Errorf("unknown rate = %d ticks, want the 25fps fallback 3600", got)
	}
	if got := frameDuration(astiav.NewRational(30, 1), astiav.NewRational(0, 1)); got != 0 {
		t.Errorf("unset time base = %d ticks, want 0", got)
	}
}

func TestSubtitleContent(t *testing.T) {
	tests := []struct {
		name string
		src  subtitleSource
		want string
	}{
		{"external file", subtitleSource{file: "/m/a.srt", stream: -1}, "subtitles=filename='/m/a.srt'"},
		{"embedded stream", subtitleSource{file: "/m/a.mkv", stream: 1}, "subtitles=filename='/m/a.mkv':si=1"},
		{"quote in path", subtitleSource{file: "/m/it's.srt", stream: -1}, `subtitles=filename='/m/it'\''s.srt'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.content(); got != tt.want {
				t.Errorf("content() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		in   astiav.MediaType
		want player.MediaType
		ok   bool
	}{
		{astiav.MediaTypeVideo, player.MediaVideo, true},
		{astiav.MediaTypeAudio, player.MediaAudio, true},
		{astiav.MediaTypeSubtitle, player.MediaSubtitle, true},
		{astiav.MediaTypeData, 0, false},
	}

	for _, tt := range tests {
		got, ok := mediaType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("mediaType(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodeError(t *testing.T) {
	if err := decodeError(astiav.ErrEagain); err != player.ErrNeedMore {
		t.Errorf("EAGAIN mapped to %v", err)
	}
	if err := decodeError(astiav.ErrEof); err != player.ErrDrained {
		t.Errorf("EOF mapped to %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := (Opener{}).Open("/definitely/not/here.mp4"); err == nil {
		t.Fatal("expected an error opening a missing file")
	}
}
