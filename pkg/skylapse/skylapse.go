// Package skylapse assembles time-lapse videos from folders of dated still images.
package skylapse

import (
	"image"
	"io"
	"time"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/tstromberg/skylapse/pkg/chart"
	"github.com/tstromberg/skylapse/pkg/sensor"
)

// Where capture times come from.
const (
	TimeFromName = "name"
	TimeFromEXIF = "exif"
)

// Sink receives processed frames in presentation order.
type Sink interface {
	WriteFrame(img *image.RGBA) error
	// Close finalizes the output.
	Close() error
	// Abort discards whatever was written so far.
	Abort() error
}

// SinkFactory opens a sink for an output path.
type SinkFactory func(output string) (Sink, error)

// Params holds everything a run needs apart from its time window.
type Params struct {
	SourceDir    string
	FolderLayout string
	ImageLayout  string
	Location     *time.Location
	TimeSource   string

	Duration   float64 // seconds of output video
	Framerate  float64
	Scale      int // percent of source resolution
	LinearTime bool

	// Optional chart overlay. Both must be set.
	Sensor sensor.Source
	Chart  *chart.Renderer

	// Optional per-frame metric, written when a metric log path is given.
	Metric Metric

	NewSink  SinkFactory
	Decode   func(path string) (image.Image, error)
	Progress io.Writer
}

func (p Params) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p Params) decode(path string) (image.Image, error) {
	if p.Decode != nil {
		return p.Decode(path)
	}
	return imgio.Open(path)
}
