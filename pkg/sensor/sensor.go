// Package sensor reads time series of sensor readings, such as irradiance,
// that are plotted alongside a time-lapse.
package sensor

import (
	"sort"
	"time"
)

// Sample is one reading.
type Sample struct {
	Time  time.Time
	Value float64
}

// Series is a run of samples in ascending time order.
type Series []Sample

// Source returns the samples recorded in [start, end].
type Source interface {
	Query(start, end time.Time) (Series, error)
}

// Nearest returns the sample closest to t. Ties go to the earlier sample.
// ok is false for an empty series.
func (s Series) Nearest(t time.Time) (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}

	i := sort.Search(len(s), func(i int) bool {
		return !s[i].Time.Before(t)
	})
	switch {
	case i == 0:
		return s[0], true
	case i == len(s):
		return s[len(s)-1], true
	case t.Sub(s[i-1].Time) <= s[i].Time.Sub(t):
		return s[i-1], true
	}
	return s[i], true
}

// Bounds returns the smallest and largest values.
func (s Series) Bounds() (lo, hi float64) {
	for i, v := range s {
		if i == 0 || v.Value < lo {
			lo = v.Value
		}
		if i == 0 || v.Value > hi {
			hi = v.Value
		}
	}
	return lo, hi
}
