// Package log is the structured logger shared by every component. A
// terminal UI owns stdout, so records only ever go to a dated log file.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/key"
	"github.com/njyeung/kplay/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var logger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Setup configures output, format and level from the config. When writing
// logs is disabled every record is discarded.
func Setup() error {
	if !viper.GetBool(key.LogsWrite) {
		logger.SetOutput(io.Discard)
		return nil
	}

	filename := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02"))
	path := filepath.Join(where.Logs(), filename)

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return nil
}

// SetOutput redirects records, mostly for tests
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func SetLevel(lvl logrus.Level) {
	logger.SetLevel(lvl)
}

// For returns the logger of a component
func For(component string) *logrus.Entry {
	return logger.WithField("component", component)
}
