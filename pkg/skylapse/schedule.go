package skylapse

import (
	"fmt"
	"time"
)

// FrameCount is the number of frames in a video of duration seconds at
// framerate frames per second. Fractions are truncated.
func FrameCount(duration, framerate float64) int {
	n := duration * framerate
	if !(n >= 1) {
		return 0
	}
	return int(n)
}

// Schedule returns FrameCount(duration, framerate) instants spaced evenly
// across [start, end]. The first is start and, given two or more frames,
// the last is end.
func Schedule(start, end time.Time, duration, framerate float64) ([]time.Time, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s is not before %s", ErrBadWindow, start, end)
	}

	n := FrameCount(duration, framerate)
	if n < 1 {
		return nil, fmt.Errorf("%w: %gs at %g fps", ErrEmptySchedule, duration, framerate)
	}

	ts := make([]time.Time, n)
	if n == 1 {
		ts[0] = start
		return ts, nil
	}

	span := float64(end.Sub(start))
	for i := range ts {
		ts[i] = start.Add(time.Duration(span * float64(i) / float64(n-1)))
	}
	ts[n-1] = end
	return ts, nil
}
