package output

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/player"
	. "github.com/smartystreets/goconvey/convey"
)

func frame(w, h int) *player.VideoPlayFrame {
	return &player.VideoPlayFrame{Width: w, Height: h, Pixels: bytes.Repeat([]byte{7}, w*h*3)}
}

func TestKittyRenderer(t *testing.T) {
	Convey("Given a renderer writing to a buffer", t, func() {
		var out bytes.Buffer
		r := NewKittyRenderer(&out)

		Convey("A small frame is sent in one chunk inside a synchronized update", func() {
			So(r.Render(frame(2, 2)), ShouldBeNil)
			s := out.String()
			So(s, ShouldStartWith, "\x1b[?2026h\x1b7")
			So(s, ShouldEndWith, "\x1b8\x1b[?2026l")
			So(s, ShouldContainSubstring, "a=T,f=24,s=2,v=2,i=1,q=2,m=0;")
			So(s, ShouldContainSubstring, base64.StdEncoding.EncodeToString(frame(2, 2).Pixels))
			So(r.Frames(), ShouldEqual, 1)
		})

		Convey("A large frame is split into continuation chunks", func() {
			So(r.Render(frame(64, 64)), ShouldBeNil)
			s := out.String()
			So(s, ShouldContainSubstring, "m=1;")
			So(s, ShouldContainSubstring, "\x1b_Gm=0;")
		})

		Convey("A size change deletes the previous image", func() {
			So(r.Render(frame(2, 2)), ShouldBeNil)
			out.Reset()
			So(r.Render(frame(4, 2)), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "\x1b_Ga=d,d=i,i=1,q=2\x1b\\")
		})

		Convey("Frames are centered once the terminal size is known", func() {
			r.SetTerminalSize(80, 24, 800, 480)
			So(r.Render(frame(400, 240)), ShouldBeNil)
			row, col := r.Position()
			So(row, ShouldEqual, 7)
			So(col, ShouldEqual, 21)
			So(out.String(), ShouldContainSubstring, "\x1b[7;21H")
		})

		Convey("Repaint requests coalesce and never block", func() {
			r.RequestRepaint()
			r.RequestRepaint()
			So(len(r.Repaints()), ShouldEqual, 1)
		})

		Convey("Clear deletes the image", func() {
			So(r.Clear(), ShouldBeNil)
			So(out.String(), ShouldEqual, "\x1b_Ga=d,d=i,i=1,q=2\x1b\\")
		})
	})
}

func TestKittyRendererShm(t *testing.T) {
	Convey("Given a renderer using shared memory", t, func() {
		filesystem.SetMemMapFs()
		Reset(filesystem.SetOsFs)

		var out bytes.Buffer
		r := NewKittyRenderer(&out)
		r.SetUseShm(true)

		So(r.Render(frame(2, 2)), ShouldBeNil)

		Convey("The pixels are written to a shm file and only its name is sent", func() {
			data, err := filesystem.API().ReadFile("/dev/shm/kplay-frame-0")
			So(err, ShouldBeNil)
			So(data, ShouldResemble, frame(2, 2).Pixels)

			name := base64.StdEncoding.EncodeToString([]byte("/kplay-frame-0"))
			So(out.String(), ShouldContainSubstring, "t=s,S=12;"+name)
		})
	})
}

func TestVideoArea(t *testing.T) {
	Convey("VideoArea reserves text rows", t, func() {
		w, h := VideoArea(80, 24, 800, 480, 2)
		So(w, ShouldEqual, 800)
		So(h, ShouldEqual, 440)

		Convey("and gives up without pixel sizes", func() {
			w, h := VideoArea(80, 24, 0, 0, 2)
			So(w, ShouldEqual, 0)
			So(h, ShouldEqual, 0)
		})
	})
}

func TestRingStreamer(t *testing.T) {
	Convey("Given a stereo streamer over a ring buffer", t, func() {
		prod, cons := player.NewRingBuffer(16)
		s := newRingStreamer(cons, 2)
		samples := make([][2]float64, 4)

		Convey("Buffered samples are played and the rest is silence", func() {
			prod.Push([]float32{0.5, -0.5, 0.25, -0.25})
			n, ok := s.Stream(samples)
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 4)
			So(samples[0], ShouldResemble, [2]float64{0.5, -0.5})
			So(samples[1], ShouldResemble, [2]float64{0.25, -0.25})
			So(samples[2], ShouldResemble, [2]float64{0, 0})
			So(cons.Len(), ShouldEqual, 0)
		})

		Convey("A half written frame stays in the buffer", func() {
			prod.Push([]float32{0.5, -0.5, 0.25})
			s.Stream(samples)
			So(samples[0], ShouldResemble, [2]float64{0.5, -0.5})
			So(samples[1], ShouldResemble, [2]float64{0, 0})
			So(cons.Len(), ShouldEqual, 1)
		})

		Convey("An empty buffer keeps streaming silence", func() {
			n, ok := s.Stream(samples)
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 4)
			So(samples[3], ShouldResemble, [2]float64{0, 0})
		})
	})

	Convey("A mono streamer copies each sample to both channels", t, func() {
		prod, cons := player.NewRingBuffer(8)
		s := newRingStreamer(cons, 1)
		prod.Push([]float32{0.5})
		samples := make([][2]float64, 2)
		s.Stream(samples)
		So(samples[0], ShouldResemble, [2]float64{0.5, 0.5})
	})
}

func TestShmReply(t *testing.T) {
	Convey("Only an OK for the probe image counts", t, func() {
		So(shmReplyOK([]byte("\x1b_Gi=999;OK\x1b\\")), ShouldBeTrue)
		So(shmReplyOK([]byte("\x1b_Gi=999;EBADF:no such file\x1b\\")), ShouldBeFalse)
		So(shmReplyOK([]byte("\x1b_Gi=1;OK\x1b\\")), ShouldBeFalse)
		So(shmReplyOK(nil), ShouldBeFalse)
	})
}

func TestLockedWriter(t *testing.T) {
	Convey("Concurrent writes land whole", t, func() {
		var buf bytes.Buffer
		w := NewLockedWriter(&buf)

		done := make(chan struct{})
		for i := range 8 {
			go func() {
				defer func() { done <- struct{}{} }()
				chunk := bytes.Repeat([]byte{byte('a' + i)}, 512)
				for range 20 {
					w.Write(chunk)
				}
			}()
		}
		for range 8 {
			<-done
		}

		data := buf.Bytes()
		So(len(data), ShouldEqual, 8*20*512)
		for off := 0; off < len(data); off += 512 {
			So(bytes.Count(data[off:off+512], data[off:off+1]), ShouldEqual, 512)
		}
	})
}
