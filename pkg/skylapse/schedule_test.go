package skylapse

import (
	"errors"
	"testing"
	"time"
)

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration, framerate float64
		want                int
	}{
		{10, 60, 600},
		{1.5, 3, 4},
		{0.5, 1, 0},
		{0, 30, 0},
		{-1, 30, 0},
		{1, 1, 1},
	}
	for _, tc := range tests {
		if got := FrameCount(tc.duration, tc.framerate); got != tc.want {
			t.Errorf("FrameCount(%g, %g) = %d, want %d", tc.duration, tc.framerate, got, tc.want)
		}
	}
}

func TestSchedule(t *testing.T) {
	start := clock(8, 0)
	end := clock(9, 0)

	ts, err := Schedule(start, end, 1, 5)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(ts) != 5 {
		t.Fatalf("got %d instants, want 5", len(ts))
	}
	want := []time.Time{clock(8, 0), clock(8, 15), clock(8, 30), clock(8, 45), clock(9, 0)}
	for i := range want {
		if !ts[i].Equal(want[i]) {
			t.Errorf("instant %d = %s, want %s", i, ts[i].Format(time.TimeOnly), want[i].Format(time.TimeOnly))
		}
	}
}

func TestScheduleEndpointsAndOrder(t *testing.T) {
	start := clock(5, 42)
	end := clock(20, 37).Add(13 * time.Second)

	for _, fps := range []float64{1, 7, 24, 29.97, 60} {
		ts, err := Schedule(start, end, 10, fps)
		if err != nil {
			t.Fatalf("Schedule at %g fps: %v", fps, err)
		}
		if len(ts) != FrameCount(10, fps) {
			t.Errorf("%g fps: got %d instants, want %d", fps, len(ts), FrameCount(10, fps))
		}
		if !ts[0].Equal(start) || !ts[len(ts)-1].Equal(end) {
			t.Errorf("%g fps: schedule spans %s..%s, want %s..%s", fps, ts[0], ts[len(ts)-1], start, end)
		}
		for i := 1; i < len(ts); i++ {
			if !ts[i].After(ts[i-1]) {
				t.Fatalf("%g fps: instant %d (%s) does not advance past %s", fps, i, ts[i], ts[i-1])
			}
		}
	}
}

func TestScheduleSingleFrame(t *testing.T) {
	ts, err := Schedule(clock(8, 0), clock(9, 0), 1, 1)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(ts) != 1 || !ts[0].Equal(clock(8, 0)) {
		t.Errorf("got %v, want only the start", ts)
	}
}

func TestScheduleErrors(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		duration   float64
		want       error
	}{
		{"reversed", clock(9, 0), clock(8, 0), 10, ErrBadWindow},
		{"empty window", clock(8, 0), clock(8, 0), 10, ErrBadWindow},
		{"too short", clock(8, 0), clock(9, 0), 0.01, ErrEmptySchedule},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Schedule(tc.start, tc.end, tc.duration, 30)
			if !errors.Is(err, tc.want) {
				t.Errorf("Schedule error = %v, want %v", err, tc.want)
			}
		})
	}
}
