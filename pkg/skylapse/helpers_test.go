package skylapse

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthonynsimon/bild/imgio"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

// clock returns 2024-06-21 at hh:mm in UTC.
func clock(hh, mm int) time.Time {
	return time.Date(2024, 6, 21, hh, mm, 0, 0, time.UTC)
}

type fakeSink struct {
	frames   []*image.RGBA
	failAt   int
	closeErr error
	closed   bool
	aborted  bool
}

func (s *fakeSink) WriteFrame(img *image.RGBA) error {
	if s.failAt > 0 && len(s.frames) == s.failAt {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, img)
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return s.closeErr
}

func (s *fakeSink) Abort() error {
	s.aborted = true
	return nil
}
