package skylapse

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFindDays(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"2024-06-18", "2024-06-19", "2024-06-20", "2024-06-21", "2024-06-22", "thumbs", ".cache"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// a file named like a day is not a day folder
	touch(t, filepath.Join(root, "2024-06-23"))

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{
			name:  "start mid-day includes its folder",
			start: time.Date(2024, 6, 19, 5, 42, 0, 0, time.UTC),
			end:   time.Date(2024, 6, 21, 20, 37, 0, 0, time.UTC),
			want:  []string{"2024-06-19", "2024-06-20", "2024-06-21"},
		},
		{
			name:  "single day",
			start: time.Date(2024, 6, 22, 5, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 6, 22, 21, 0, 0, 0, time.UTC),
			want:  []string{"2024-06-22"},
		},
		{
			name:  "files are not days",
			start: time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC),
			want:  []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			days, err := FindDays(root, tc.start, tc.end, "2006-01-02", time.UTC)
			if err != nil {
				t.Fatalf("FindDays: %v", err)
			}
			got := []string{}
			for _, d := range days {
				got = append(got, d.Name)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("days mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindDaysMissingRoot(t *testing.T) {
	_, err := FindDays(filepath.Join(t.TempDir(), "nope"), clock(0, 0), clock(23, 0), "2006-01-02", time.UTC)
	var fe *FilesystemError
	if !errors.As(err, &fe) {
		t.Fatalf("FindDays error = %v, want *FilesystemError", err)
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{
		"2024-06-21--08-10-00.jpg",
		"2024-06-21--08-00-00.jpg",
		"2024-06-21--08-05-00.jpg",
		"thumbs.db",
		".2024-06-21--08-15-00.jpg",
		"2024-06-21--08-20-00.jpg.tmp",
	} {
		touch(t, filepath.Join(dir, n))
	}
	if err := os.MkdirAll(filepath.Join(dir, "2024-06-21--09-00-00.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := ListImages(dir, "2006-01-02--15-04-05.jpg", time.UTC)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}

	want := Series{
		{Taken: clock(8, 0), Path: filepath.Join(dir, "2024-06-21--08-00-00.jpg")},
		{Taken: clock(8, 5), Path: filepath.Join(dir, "2024-06-21--08-05-00.jpg")},
		{Taken: clock(8, 10), Path: filepath.Join(dir, "2024-06-21--08-10-00.jpg")},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestListImagesDuplicateTimestamps(t *testing.T) {
	dir := t.TempDir()
	// "3" accepts one or two digit hours, so both names parse to 08:00
	touch(t, filepath.Join(dir, "8-00.jpg"))
	touch(t, filepath.Join(dir, "08-00.jpg"))
	touch(t, filepath.Join(dir, "9-00.jpg"))

	for i := 0; i < 3; i++ {
		s, err := ListImages(dir, "3-04.jpg", time.UTC)
		if err != nil {
			t.Fatalf("ListImages: %v", err)
		}
		got := []string{}
		for _, img := range s {
			got = append(got, filepath.Base(img.Path))
		}
		if diff := cmp.Diff([]string{"08-00.jpg", "9-00.jpg"}, got); diff != "" {
			t.Errorf("series mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCollapseKeepsFirst(t *testing.T) {
	got := collapse([]Image{
		{Taken: clock(8, 5), Path: "b"},
		{Taken: clock(8, 0), Path: "a1"},
		{Taken: clock(8, 0), Path: "a2"},
		{Taken: clock(8, 5), Path: "b2"},
	})
	want := Series{{Taken: clock(8, 0), Path: "a1"}, {Taken: clock(8, 5), Path: "b"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("collapse mismatch (-want +got):\n%s", diff)
	}
}

func TestListImagesMissingDir(t *testing.T) {
	_, err := ListImages(filepath.Join(t.TempDir(), "gone"), "2006-01-02--15-04-05.jpg", time.UTC)
	var fe *FilesystemError
	if !errors.As(err, &fe) {
		t.Fatalf("ListImages error = %v, want *FilesystemError", err)
	}
}
