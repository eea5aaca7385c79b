package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/key"
	"github.com/njyeung/kplay/where"
	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestFor(t *testing.T) {
	Convey("Component loggers", t, func() {
		var buf bytes.Buffer
		SetOutput(&buf)
		SetLevel(logrus.DebugLevel)
		defer SetOutput(&bytes.Buffer{})

		For("reader").Debug("hello")

		So(buf.String(), ShouldContainSubstring, "component=reader")
		So(buf.String(), ShouldContainSubstring, "hello")
	})
}

func TestSetup(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		t.Setenv(where.EnvConfigPath, "/cfg")
		defer viper.Reset()

		Convey("Disabled logging should not create a file", func() {
			viper.Set(key.LogsWrite, false)
			So(Setup(), ShouldBeNil)

			files, err := filesystem.API().ReadDir(where.Logs())
			So(err, ShouldBeNil)
			So(files, ShouldBeEmpty)
		})

		Convey("Enabled logging should write to a dated file", func() {
			viper.Set(key.LogsWrite, true)
			viper.Set(key.LogsLevel, "warn")
			So(Setup(), ShouldBeNil)

			For("test").Info("dropped")
			For("test").Warn("kept")

			files, err := filesystem.API().ReadDir(where.Logs())
			So(err, ShouldBeNil)
			So(files, ShouldHaveLength, 1)
			So(strings.HasSuffix(files[0].Name(), ".log"), ShouldBeTrue)

			data, err := filesystem.API().ReadFile(where.Logs() + "/" + files[0].Name())
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "kept")
			So(string(data), ShouldNotContainSubstring, "dropped")

			SetOutput(&bytes.Buffer{})
		})
	})
}
