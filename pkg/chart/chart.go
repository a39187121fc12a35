// Package chart draws a sensor series with a moving cursor, for compositing
// onto time-lapse frames. The background is black so that it drops out when
// overlaid.
package chart

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/tstromberg/skylapse/pkg/sensor"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

const (
	ticks    = 8
	fontSize = 12
	margin   = 8
)

var (
	axisColor   = color.RGBA{0x80, 0x80, 0x80, 0xff}
	lineColor   = color.RGBA{0xe0, 0xe0, 0xff, 0xff}
	cursorColor = color.RGBA{0xff, 0x30, 0x30, 0xff}
	textColor   = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

var (
	fontOnce sync.Once
	ttf      *truetype.Font
	fontErr  error
)

func parseFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		ttf, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("parse font: %w", fontErr)
		}
	})
	return ttf, fontErr
}

// Renderer draws fixed-size charts. A Renderer caches glyphs and must not be
// shared between goroutines.
type Renderer struct {
	Width  int
	Height int
	// Units is printed after the current value, for example "W/m²".
	Units string

	face font.Face
}

// New returns a renderer for width x height charts.
func New(width, height int, units string) *Renderer {
	return &Renderer{Width: width, Height: height, Units: units}
}

func (r *Renderer) loadFace() (font.Face, error) {
	if r.face != nil {
		return r.face, nil
	}

	f, err := parseFont()
	if err != nil {
		return nil, err
	}
	r.face = truetype.NewFace(f, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return r.face, nil
}

// Render plots series with a vertical cursor at t, and labels the value of
// the sample nearest t.
func (r *Renderer) Render(series sensor.Series, t time.Time) (*image.RGBA, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}
	if r.Width <= 4*margin || r.Height <= 4*margin {
		return nil, fmt.Errorf("chart too small: %dx%d", r.Width, r.Height)
	}

	ff, err := r.loadFace()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	lineHeight := ff.Metrics().Height.Ceil()
	plot := image.Rect(margin, margin+lineHeight+margin, r.Width-margin, r.Height-margin-lineHeight-margin)
	if plot.Dx() < 2 || plot.Dy() < 2 {
		return nil, fmt.Errorf("chart too small for text: %dx%d", r.Width, r.Height)
	}

	start := series[0].Time
	end := series[len(series)-1].Time
	span := end.Sub(start)
	lo, hi := series.Bounds()
	if hi == lo {
		hi = lo + 1
	}

	xOf := func(ts time.Time) int {
		if span <= 0 {
			return plot.Min.X
		}
		f := float64(ts.Sub(start)) / float64(span)
		return plot.Min.X + int(math.Round(f*float64(plot.Dx()-1)))
	}
	yOf := func(v float64) int {
		f := (v - lo) / (hi - lo)
		return plot.Max.Y - 1 - int(math.Round(f*float64(plot.Dy()-1)))
	}

	// axes
	line(img, plot.Min.X, plot.Max.Y-1, plot.Max.X-1, plot.Max.Y-1, axisColor)
	line(img, plot.Min.X, plot.Min.Y, plot.Min.X, plot.Max.Y-1, axisColor)

	for i := 1; i < len(series); i++ {
		line(img, xOf(series[i-1].Time), yOf(series[i-1].Value), xOf(series[i].Time), yOf(series[i].Value), lineColor)
	}

	if !t.Before(start) && !t.After(end) {
		cx := xOf(t)
		line(img, cx, plot.Min.Y, cx, plot.Max.Y-1, cursorColor)
	}

	d := &font.Drawer{Dst: img, Src: image.NewUniform(textColor), Face: ff}
	for i := 0; i < ticks; i++ {
		ts := start.Add(time.Duration(float64(span) * float64(i) / float64(ticks-1)))
		label := ts.Format("15:04")
		w := d.MeasureString(label).Ceil()
		x := xOf(ts) - w/2
		x = max(0, min(x, r.Width-w))
		d.Dot = fixed.P(x, r.Height-margin)
		d.DrawString(label)
	}

	if s, ok := series.Nearest(t); ok {
		label := fmt.Sprintf("Current: %7.1f %s", s.Value, r.Units)
		d.Dot = fixed.P(margin, margin+lineHeight)
		d.DrawString(label)
	}

	return img, nil
}

// line draws a straight line with Bresenham's algorithm.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
