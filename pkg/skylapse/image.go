package skylapse

import (
	"time"
)

// Image is a source photo and its capture time.
type Image struct {
	Taken time.Time
	Path  string
}

// Series is a strictly ascending run of images.
type Series []Image

// Day is a folder holding one calendar day of images.
type Day struct {
	Date time.Time
	Name string
}

// First returns the earliest capture time, or the zero time.
func (s Series) First() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Taken
}

// Last returns the latest capture time, or the zero time.
func (s Series) Last() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Taken
}

// Within returns the images taken in [start, end].
func (s Series) Within(start, end time.Time) Series {
	out := Series{}
	for _, i := range s {
		if i.Taken.Before(start) || i.Taken.After(end) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Concat joins per-day series in day order. The result is not re-sorted:
// images that do not advance past the last kept image are dropped, and
// the number dropped is returned.
func Concat(days ...Series) (Series, int) {
	out := Series{}
	dropped := 0
	for _, d := range days {
		for _, i := range d {
			if len(out) > 0 && !i.Taken.After(out[len(out)-1].Taken) {
				dropped++
				continue
			}
			out = append(out, i)
		}
	}
	return out, dropped
}
