package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func touch(paths ...string) {
	for _, p := range paths {
		So(API().WriteFile(p, []byte{0}, 0o644), ShouldBeNil)
	}
}

func TestMediaFiles(t *testing.T) {
	Convey("Given a directory with media and other files", t, func() {
		SetMemMapFs()
		So(API().MkdirAll("/videos/sub", 0o755), ShouldBeNil)
		touch("/videos/b.mkv", "/videos/a.mp4", "/videos/c.MP3", "/videos/notes.txt", "/videos/a.srt")

		Convey("MediaFiles should list only media, sorted", func() {
			files, err := MediaFiles("/videos")
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{"/videos/a.mp4", "/videos/b.mkv", "/videos/c.MP3"})
		})

		Convey("Sibling should step forward and backward with wrap-around", func() {
			next, err := Sibling("/videos/a.mp4", 1)
			So(err, ShouldBeNil)
			So(next, ShouldEqual, "/videos/b.mkv")

			prev, err := Sibling("/videos/a.mp4", -1)
			So(err, ShouldBeNil)
			So(prev, ShouldEqual, "/videos/c.MP3")

			wrap, err := Sibling("/videos/c.MP3", 1)
			So(err, ShouldBeNil)
			So(wrap, ShouldEqual, "/videos/a.mp4")
		})

		Convey("Sibling of a missing file should start from the first entry", func() {
			next, err := Sibling("/videos/gone.mp4", 1)
			So(err, ShouldBeNil)
			So(next, ShouldEqual, "/videos/a.mp4")
		})

		Convey("Subtitle should find a file with the same base name", func() {
			sub, ok := Subtitle("/videos/a.mp4")
			So(ok, ShouldBeTrue)
			So(sub, ShouldEqual, "/videos/a.srt")

			_, ok = Subtitle("/videos/b.mkv")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Sibling of a file in an empty directory should fail on a missing dir", t, func() {
		SetMemMapFs()
		_, err := Sibling("/nowhere/x.mp4", 1)
		So(err, ShouldNotBeNil)
	})
}
