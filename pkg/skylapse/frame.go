package skylapse

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

const (
	// PadFraction is the black border added to each side, as a fraction of frame width.
	PadFraction = 0.2
	// OverlayMargin is the distance in pixels between the overlay and the frame corner.
	OverlayMargin = 10
)

// Processor turns decoded images into frames of one fixed size. The first
// frame it processes sets the reference resolution for the rest of the run,
// so each run needs its own Processor.
type Processor struct {
	scale int
	ref   image.Point
}

// NewProcessor returns a processor that scales images to scale percent.
func NewProcessor(scale int) *Processor {
	if scale <= 0 {
		scale = 100
	}
	return &Processor{scale: scale}
}

// Reference returns the resolution frames are normalized to, before padding.
// It is zero until the first frame is processed.
func (p *Processor) Reference() image.Point {
	return p.ref
}

// Reset forgets the reference resolution.
func (p *Processor) Reset() {
	p.ref = image.Point{}
}

// Process scales src, normalizes it to the reference resolution, letterboxes
// it and composites overlay (if any) onto the top-left corner.
func (p *Processor) Process(src image.Image, overlay image.Image) (*image.RGBA, error) {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image: %v", b)
	}

	var img image.Image = src
	if p.scale != 100 {
		f := float64(p.scale) / 100
		w := int(math.Max(1, math.Round(float64(b.Dx())*f)))
		h := int(math.Max(1, math.Round(float64(b.Dy())*f)))
		img = transform.Resize(src, w, h, transform.Linear)
	}

	size := img.Bounds().Size()
	if p.ref == (image.Point{}) {
		p.ref = size
		klog.V(1).Infof("reference resolution: %dx%d", size.X, size.Y)
	}

	if size != p.ref {
		klog.V(2).Infof("resizing %dx%d frame to %dx%d", size.X, size.Y, p.ref.X, p.ref.Y)
		img = transform.Resize(img, p.ref.X, p.ref.Y, transform.Linear)
	}

	frame := letterbox(img)
	if overlay != nil {
		if err := composite(frame, overlay); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// letterbox pads img with opaque black columns on both sides.
func letterbox(img image.Image) *image.RGBA {
	b := img.Bounds()
	pad := int(float64(b.Dx()) * PadFraction)

	frame := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*pad, b.Dy()))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(frame, image.Rect(pad, 0, pad+b.Dx(), b.Dy()), img, b.Min, draw.Src)
	return frame
}

// composite copies every overlay pixel that is not pure black onto frame.
func composite(frame *image.RGBA, overlay image.Image) error {
	ob := overlay.Bounds()
	fb := frame.Bounds()
	if ob.Dx()+2*OverlayMargin > fb.Dx() || ob.Dy()+2*OverlayMargin > fb.Dy() {
		return fmt.Errorf("%w: %dx%d overlay on %dx%d frame", ErrOverlayTooLarge, ob.Dx(), ob.Dy(), fb.Dx(), fb.Dy())
	}

	for y := ob.Min.Y; y < ob.Max.Y; y++ {
		for x := ob.Min.X; x < ob.Max.X; x++ {
			c := color.RGBAModel.Convert(overlay.At(x, y)).(color.RGBA)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				continue
			}
			c.A = 255
			frame.SetRGBA(fb.Min.X+OverlayMargin+x-ob.Min.X, fb.Min.Y+OverlayMargin+y-ob.Min.Y, c)
		}
	}
	return nil
}
