// Package filesystem is the single entry point for file access, backed by
// afero so tests can swap in a memory filesystem.
package filesystem

import "github.com/spf13/afero"

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active filesystem
func API() afero.Afero {
	return backend
}

// SetOsFs switches back to the real filesystem
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs switches to an empty in-memory filesystem
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}
