package cmd

import (
	"strings"
	"testing"

	"github.com/njyeung/kplay/ffmpeg"
	"github.com/njyeung/kplay/player"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormatProbe(t *testing.T) {
	Convey("Given a probed file with audio and video", t, func() {
		info := ffmpeg.ProbeInfo{
			Path:     "/media/clip.mkv",
			Duration: 83_000_000,
			Streams: []player.StreamInfo{
				{Index: 0, Type: player.MediaVideo, Codec: "h264", TimeBase: player.Rational{Num: 1, Den: 1000}, FrameRate: player.Rational{Num: 25, Den: 1}, Width: 640, Height: 360},
				{Index: 1, Type: player.MediaAudio, Codec: "aac", TimeBase: player.Rational{Num: 1, Den: 48000}, SampleRate: 48000, Layout: "stereo"},
				{Index: 2, Type: player.MediaAudio, Codec: "opus", TimeBase: player.Rational{Num: 1, Den: 48000}, SampleRate: 48000, Layout: "stereo"},
			},
			BestVideo:    0,
			BestAudio:    1,
			BestSubtitle: -1,
		}

		out := formatProbe(info)
		lines := strings.Split(strings.TrimSpace(out), "\n")

		Convey("It prints the path, the duration and one line per stream", func() {
			So(lines, ShouldHaveLength, 5)
			So(lines[0], ShouldContainSubstring, "/media/clip.mkv")
			So(lines[1], ShouldEqual, "duration "+player.FormatDuration(83_000))
		})

		Convey("It describes each stream by type", func() {
			So(lines[2], ShouldContainSubstring, "640x360")
			So(lines[2], ShouldContainSubstring, "25.00fps")
			So(lines[3], ShouldContainSubstring, "48000Hz stereo")
		})

		Convey("Only the best stream of each type is marked", func() {
			So(lines[2], ShouldContainSubstring, "(best)")
			So(lines[3], ShouldContainSubstring, "(best)")
			So(lines[4], ShouldNotContainSubstring, "(best)")
		})
	})

	Convey("Given a file without streams", t, func() {
		out := formatProbe(ffmpeg.ProbeInfo{Path: "x", BestVideo: -1, BestAudio: -1, BestSubtitle: -1})

		Convey("It says so", func() {
			So(out, ShouldContainSubstring, "no playable streams")
		})
	})
}
