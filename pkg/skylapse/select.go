package skylapse

import (
	"fmt"
	"sort"
	"time"
)

// Policy decides how output frames are mapped to source images.
type Policy int

const (
	// Nearest picks, for each scheduled instant, the image closest in time.
	// Playback is evenly paced; images may repeat.
	Nearest Policy = iota
	// Decimate keeps every n-th image. Images never repeat; pacing follows
	// the capture cadence.
	Decimate
)

func (p Policy) String() string {
	switch p {
	case Nearest:
		return "nearest"
	case Decimate:
		return "decimate"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ChoosePolicy picks Nearest when linear time is requested or when there are
// more frames to fill than images to fill them with, Decimate otherwise.
func ChoosePolicy(linearTime bool, images int, frames int) Policy {
	if linearTime || frames > images {
		return Nearest
	}
	return Decimate
}

// Selection is the source image chosen for one output frame.
type Selection struct {
	Index  int
	Image  Image
	Target time.Time
}

// Select maps each scheduled instant to a source image.
func Select(s Series, schedule []time.Time, p Policy) ([]Selection, error) {
	if len(s) == 0 {
		return nil, ErrNoImages
	}
	if len(schedule) == 0 {
		return nil, ErrEmptySchedule
	}

	switch p {
	case Nearest:
		out := make([]Selection, len(schedule))
		for i, t := range schedule {
			idx := nearest(s, t)
			out[i] = Selection{Index: idx, Image: s[idx], Target: t}
		}
		return out, nil
	case Decimate:
		idxs := decimate(len(s), len(schedule))
		out := make([]Selection, len(idxs))
		for i, idx := range idxs {
			out[i] = Selection{Index: idx, Image: s[idx], Target: s[idx].Taken}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown policy: %v", p)
}

// nearest returns the index of the image closest to t. Ties go to the
// earlier image.
func nearest(s Series, t time.Time) int {
	i := sort.Search(len(s), func(i int) bool {
		return !s[i].Taken.Before(t)
	})

	if i == 0 {
		return 0
	}
	if i == len(s) {
		return len(s) - 1
	}

	if t.Sub(s[i-1].Taken) <= s[i].Taken.Sub(t) {
		return i - 1
	}
	return i
}

// decimate returns up to m indexes into n images, stepping by n/m.
func decimate(n int, m int) []int {
	skip := n / m
	if skip < 1 {
		skip = 1
	}

	idxs := make([]int, 0, m)
	for i := 0; i < n && len(idxs) < m; i += skip {
		idxs = append(idxs, i)
	}
	return idxs
}
