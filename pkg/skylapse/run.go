package skylapse

import (
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"

	"github.com/tstromberg/skylapse/pkg/sensor"
)

// State is where a run is in its lifecycle.
type State int

const (
	Unconfigured State = iota
	WindowSet
	Indexed
	Rendering
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case WindowSet:
		return "window set"
	case Indexed:
		return "indexed"
	case Rendering:
		return "rendering"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Run renders one video. Steps must be called in order: SetDates, Index, Render.
type Run struct {
	p     Params
	state State

	start     time.Time
	end       time.Time
	output    string
	metricLog string

	series  Series
	overlay sensor.Series
	proc    *Processor
	frames  int
}

// NewRun returns an unconfigured run. Each run gets its own copy of p and
// its own frame processor.
func NewRun(p Params) *Run {
	return &Run{p: p, proc: NewProcessor(p.Scale)}
}

// State returns the current state.
func (r *Run) State() State { return r.state }

// Series returns the images indexed for the window.
func (r *Run) Series() Series { return r.series }

// Frames returns the number of frames written so far.
func (r *Run) Frames() int { return r.frames }

func (r *Run) String() string {
	if r.start.IsZero() {
		return "run"
	}
	return fmt.Sprintf("%s %s-%s", r.start.Format("2006-01-02"), r.start.Format("15:04"), r.end.Format("15:04"))
}

func (r *Run) fail(err error) error {
	r.state = Failed
	return err
}

// SetDates fixes the time window and outputs. It may only be called once.
// metricLog may be empty.
func (r *Run) SetDates(start, end time.Time, output string, metricLog string) error {
	if r.state != Unconfigured {
		return fmt.Errorf("%w: %s", ErrWindowSet, r)
	}

	if !start.Before(end) {
		return r.fail(fmt.Errorf("%w: %s is not before %s", ErrBadWindow, start, end))
	}

	if FrameCount(r.p.Duration, r.p.Framerate) < 1 {
		return r.fail(fmt.Errorf("%w: %gs at %g fps", ErrEmptySchedule, r.p.Duration, r.p.Framerate))
	}

	r.start = start
	r.end = end
	r.output = output
	r.metricLog = metricLog
	r.state = WindowSet
	return nil
}

// Index builds the image series for the window and fetches overlay data.
func (r *Run) Index() error {
	if r.state != WindowSet {
		return fmt.Errorf("%w: cannot index while %s", ErrState, r.state)
	}

	loc := r.p.location()
	days, err := FindDays(r.p.SourceDir, r.start, r.end, r.p.FolderLayout, loc)
	if err != nil {
		return r.fail(fmt.Errorf("find days: %w", err))
	}
	klog.Infof("%s: indexing %s", r, describeDays(days))

	var et *exiftool.Exiftool
	if r.p.TimeSource == TimeFromEXIF {
		et, err = exiftool.NewExiftool()
		if err != nil {
			return r.fail(fmt.Errorf("exiftool: %w", err))
		}
		defer et.Close()
	}

	perDay := []Series{}
	for _, d := range days {
		dir := filepath.Join(r.p.SourceDir, d.Name)
		var s Series
		if et != nil {
			s, err = ListImagesEXIF(dir, et, loc)
		} else {
			s, err = ListImages(dir, r.p.ImageLayout, loc)
		}
		if err != nil {
			return r.fail(fmt.Errorf("list images: %w", err))
		}
		perDay = append(perDay, s)
	}

	all, dropped := Concat(perDay...)
	if dropped > 0 {
		klog.Warningf("%s: dropped %d images that were out of order across day folders", r, dropped)
	}

	r.series = all.Within(r.start, r.end)
	if len(r.series) == 0 {
		return r.fail(fmt.Errorf("%s: %w", r, ErrNoImages))
	}
	klog.Infof("%s: %d images from %s to %s", r, len(r.series), r.series.First().Format(time.TimeOnly), r.series.Last().Format(time.TimeOnly))

	if r.p.Sensor != nil && r.p.Chart != nil {
		r.overlay, err = r.p.Sensor.Query(r.start, r.end)
		if err != nil {
			return r.fail(fmt.Errorf("sensor query: %w", err))
		}
		if len(r.overlay) == 0 {
			klog.Warningf("%s: no sensor data, rendering without chart", r)
		}
	}

	r.state = Indexed
	return nil
}

// Render writes every scheduled frame to a new sink. On failure the partial
// video and metric log are discarded.
func (r *Run) Render() (err error) {
	if r.state != Indexed {
		return fmt.Errorf("%w: cannot render while %s", ErrState, r.state)
	}

	schedule, err := Schedule(r.start, r.end, r.p.Duration, r.p.Framerate)
	if err != nil {
		return r.fail(err)
	}

	policy := ChoosePolicy(r.p.LinearTime, len(r.series), len(schedule))
	sels, err := Select(r.series, schedule, policy)
	if err != nil {
		return r.fail(err)
	}
	klog.Infof("%s: %d frames from %d images (%s)", r, len(sels), len(r.series), policy)

	if r.p.NewSink == nil {
		return r.fail(fmt.Errorf("%w: no sink configured", ErrState))
	}

	r.state = Rendering
	r.proc.Reset()

	sink, err := r.p.NewSink(r.output)
	if err != nil {
		return r.fail(&FilesystemError{Op: "open sink", Path: r.output, Err: err})
	}

	var ml *MetricLog
	if r.metricLog != "" && r.p.Metric != nil {
		ml, err = CreateMetricLog(r.metricLog)
		if err != nil {
			_ = sink.Abort()
			return r.fail(err)
		}
	}

	defer func() {
		if err == nil {
			return
		}
		if aerr := sink.Abort(); aerr != nil {
			klog.Warningf("%s: abort %s: %v", r, r.output, aerr)
		}
		if ml != nil {
			if derr := ml.Discard(); derr != nil {
				klog.Warningf("%s: discard %s: %v", r, r.metricLog, derr)
			}
		}
		r.state = Failed
	}()

	prog := NewProgress(filepath.Base(r.output), r.p.Progress)
	for i, s := range sels {
		if err := r.renderFrame(sink, ml, i, s); err != nil {
			return err
		}
		r.frames++
		prog.Update(float64(i+1) / float64(len(sels)))
	}
	prog.Finish()

	// the metric log stays open until the video is in place, so a failed
	// Close discards it too
	if err := sink.Close(); err != nil {
		return &EncodeError{Frame: -1, Err: err}
	}

	if ml != nil {
		if err := ml.Close(); err != nil {
			return err
		}
		ml = nil
	}

	r.state = Closed
	klog.Infof("%s: wrote %d frames to %s", r, r.frames, r.output)
	return nil
}

func (r *Run) renderFrame(sink Sink, ml *MetricLog, i int, s Selection) error {
	img, err := r.p.decode(s.Image.Path)
	if err != nil {
		return &DecodeError{Path: s.Image.Path, Err: err}
	}

	var overlay image.Image
	if len(r.overlay) > 0 {
		overlay, err = r.p.Chart.Render(r.overlay, s.Image.Taken)
		if err != nil {
			return fmt.Errorf("chart: %w", err)
		}
	}

	frame, err := r.proc.Process(img, overlay)
	if err != nil {
		return fmt.Errorf("process %s: %w", s.Image.Path, err)
	}

	if err := sink.WriteFrame(frame); err != nil {
		return &EncodeError{Frame: i, Err: err}
	}

	if ml != nil {
		if err := ml.Write(s.Image.Taken, r.p.Metric.Measure(img)); err != nil {
			return fmt.Errorf("metric log: %w", err)
		}
	}

	klog.V(2).Infof("%s: frame %d <- %s", r, i, s.Image.Path)
	return nil
}

// Execute runs every step for one window.
func (r *Run) Execute(start, end time.Time, output string, metricLog string) error {
	if err := r.SetDates(start, end, output, metricLog); err != nil {
		return err
	}
	if err := r.Index(); err != nil {
		return err
	}
	return r.Render()
}
