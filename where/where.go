// Package where resolves the directories the application writes to.
package where

import (
	"os"
	"path/filepath"

	"github.com/njyeung/kplay/constant"
	"github.com/njyeung/kplay/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the config directory
const EnvConfigPath = "KPLAY_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config returns the config directory, creating it if needed
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(".", "config")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs returns the directory log files are written to
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}
