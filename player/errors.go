package player

import (
	"errors"
	"fmt"
)

var (
	ErrNoPlayableStream = errors.New("no playable stream")
	ErrNotOpen          = errors.New("no media open")
	ErrClosed           = errors.New("player closed")

	// ErrNeedMore is returned by decoders that need another packet
	ErrNeedMore = errors.New("decoder needs more data")
	// ErrDrained is returned by decoders that will not produce more frames
	ErrDrained = errors.New("decoder drained")
)

// OpError records a failed player operation on a media file
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func newOpError(op, path string, err error) *OpError {
	return &OpError{Op: op, Path: path, Err: err}
}
