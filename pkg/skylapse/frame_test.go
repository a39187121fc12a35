package skylapse

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestProcessLetterbox(t *testing.T) {
	p := NewProcessor(100)
	frame, err := p.Process(solid(100, 50, color.White), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got, want := frame.Bounds().Size(), image.Pt(140, 50); got != want {
		t.Fatalf("frame size = %v, want %v", got, want)
	}

	for _, x := range []int{0, 19, 120, 139} {
		if c := frame.RGBAAt(x, 25); c != (color.RGBA{0, 0, 0, 255}) {
			t.Errorf("pad pixel at x=%d = %v, want opaque black", x, c)
		}
	}
	for _, x := range []int{20, 70, 119} {
		if c := frame.RGBAAt(x, 25); c != (color.RGBA{255, 255, 255, 255}) {
			t.Errorf("image pixel at x=%d = %v, want white", x, c)
		}
	}
}

func TestProcessScale(t *testing.T) {
	p := NewProcessor(50)
	frame, err := p.Process(solid(101, 51, color.White), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got, want := p.Reference(), image.Pt(51, 26); got != want {
		t.Errorf("reference = %v, want %v", got, want)
	}
	if got, want := frame.Bounds().Size(), image.Pt(51+2*10, 26); got != want {
		t.Errorf("frame size = %v, want %v", got, want)
	}
}

func TestProcessKeepsReference(t *testing.T) {
	p := NewProcessor(100)
	if _, err := p.Process(solid(80, 60, color.White), nil); err != nil {
		t.Fatal(err)
	}

	frame, err := p.Process(solid(160, 100, color.White), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := frame.Bounds().Size(), image.Pt(80+2*16, 60); got != want {
		t.Errorf("second frame size = %v, want %v", got, want)
	}

	p.Reset()
	if p.Reference() != (image.Point{}) {
		t.Errorf("Reset kept reference %v", p.Reference())
	}
	frame, err = p.Process(solid(160, 100, color.White), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := frame.Bounds().Size(), image.Pt(160+2*32, 100); got != want {
		t.Errorf("frame after reset = %v, want %v", got, want)
	}
}

func TestProcessorsAreIndependent(t *testing.T) {
	a := NewProcessor(100)
	b := NewProcessor(100)
	if _, err := a.Process(solid(80, 60, color.White), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Process(solid(40, 30, color.White), nil); err != nil {
		t.Fatal(err)
	}
	if a.Reference() == b.Reference() {
		t.Errorf("processors share a reference: %v", a.Reference())
	}
}

func TestProcessOverlay(t *testing.T) {
	overlay := image.NewRGBA(image.Rect(0, 0, 20, 10))
	overlay.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	overlay.SetRGBA(5, 5, color.RGBA{0, 0, 0, 255})
	overlay.SetRGBA(19, 9, color.RGBA{0, 0, 200, 128})

	p := NewProcessor(100)
	frame, err := p.Process(solid(100, 50, color.RGBA{0, 255, 0, 255}), overlay)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{OverlayMargin, OverlayMargin, color.RGBA{255, 0, 0, 255}},
		// black overlay pixels are transparent: this lands on the left pad
		{OverlayMargin + 5, OverlayMargin + 5, color.RGBA{0, 0, 0, 255}},
		// and this one on the image
		{OverlayMargin + 15, OverlayMargin + 5, color.RGBA{0, 255, 0, 255}},
		{OverlayMargin + 19, OverlayMargin + 9, color.RGBA{0, 0, 200, 255}},
	}
	for _, tc := range tests {
		if got := frame.RGBAAt(tc.x, tc.y); got != tc.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestProcessOverlayTooLarge(t *testing.T) {
	p := NewProcessor(100)
	_, err := p.Process(solid(100, 50, color.White), solid(130, 20, color.White))
	if !errors.Is(err, ErrOverlayTooLarge) {
		t.Errorf("Process error = %v, want ErrOverlayTooLarge", err)
	}

	_, err = p.Process(solid(100, 50, color.White), solid(20, 31, color.White))
	if !errors.Is(err, ErrOverlayTooLarge) {
		t.Errorf("Process error = %v, want ErrOverlayTooLarge", err)
	}
}

func TestProcessEmpty(t *testing.T) {
	if _, err := NewProcessor(100).Process(image.NewRGBA(image.Rectangle{}), nil); err == nil {
		t.Errorf("Process of an empty image succeeded")
	}
}
