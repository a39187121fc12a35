package skylapse

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImages means no image was found inside the requested window.
	ErrNoImages = errors.New("no images in window")
	// ErrEmptySchedule means duration × framerate is below one frame.
	ErrEmptySchedule = errors.New("empty frame schedule")
	// ErrBadWindow means the window does not start before it ends.
	ErrBadWindow = errors.New("invalid time window")
	// ErrOverlayTooLarge means the overlay and its margin do not fit on the frame.
	ErrOverlayTooLarge = errors.New("overlay larger than frame")
	// ErrWindowSet is returned when a run's dates are set a second time.
	ErrWindowSet = errors.New("window already set")
	// ErrState is returned when a run step is called out of order.
	ErrState = errors.New("invalid run state")
)

// FilesystemError is a missing or unreadable source or output path.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// DecodeError is an image that could not be read.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is a frame the sink refused.
type EncodeError struct {
	Frame int
	Err   error
}

func (e *EncodeError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("encode: %v", e.Err)
	}
	return fmt.Sprintf("encode frame %d: %v", e.Frame, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
