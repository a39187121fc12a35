package batch

import (
	"io"

	"github.com/tstromberg/skylapse/pkg/chart"
	"github.com/tstromberg/skylapse/pkg/config"
	"github.com/tstromberg/skylapse/pkg/encoder"
	"github.com/tstromberg/skylapse/pkg/sensor"
	"github.com/tstromberg/skylapse/pkg/skylapse"
)

// Params returns the run parameters described by c. src may be nil.
func Params(c *config.Config, src sensor.Source, progress io.Writer) (skylapse.Params, error) {
	loc, err := c.Location()
	if err != nil {
		return skylapse.Params{}, err
	}

	opts := c.EncoderOptions()
	p := skylapse.Params{
		SourceDir:    c.Files.SourceDir,
		FolderLayout: c.Formatting.FolderLayout,
		ImageLayout:  c.Formatting.ImageLayout,
		Location:     loc,
		TimeSource:   c.Formatting.TimeSource,
		Duration:     c.Video.Duration,
		Framerate:    c.Video.Framerate,
		Scale:        c.Video.Resolution,
		LinearTime:   c.Codec.LinearTime,
		Progress:     progress,
		NewSink: func(output string) (skylapse.Sink, error) {
			f, err := encoder.New(output, opts)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}

	if c.Files.MetricName != "" {
		p.Metric = skylapse.BrightFraction{Level: c.Files.MetricLevel}
	}

	if src != nil && c.OverlayEnabled() {
		p.Sensor = src
	}
	return p, nil
}

// NewRunner returns a Runner that renders each job with its own run,
// processor and chart renderer.
func NewRunner(c *config.Config, src sensor.Source, progress io.Writer) (Runner, error) {
	base, err := Params(c, src, progress)
	if err != nil {
		return nil, err
	}

	return func(j Job) (int, error) {
		p := base
		if p.Sensor != nil {
			p.Chart = chart.New(c.Overlay.Width, c.Overlay.Height, c.Overlay.Units)
		}
		r := skylapse.NewRun(p)
		err := r.Execute(j.Start, j.End, j.Output, j.MetricLog)
		return r.Frames(), err
	}, nil
}
