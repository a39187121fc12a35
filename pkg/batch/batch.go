// Package batch plans one time-lapse per day and renders them in parallel.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/skylapse/pkg/config"
	"github.com/tstromberg/skylapse/pkg/encoder"
	"github.com/tstromberg/skylapse/pkg/solar"
)

// Job is one video to render.
type Job struct {
	Day       time.Time
	Start     time.Time
	End       time.Time
	Output    string
	MetricLog string
}

func (j Job) String() string {
	return fmt.Sprintf("%s %s-%s", j.Day.Format("2006-01-02"), j.Start.Format("15:04"), j.End.Format("15:04"))
}

// Result is the outcome of one job.
type Result struct {
	Job    Job
	Frames int
	Err    error
}

// Runner renders a job and returns how many frames it wrote.
type Runner func(j Job) (int, error)

// Plan returns the jobs for every configured day that has a folder, a
// sunrise and no existing video (unless overwriting).
func Plan(c *config.Config, now time.Time) ([]Job, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	first, n, err := c.Timing.Days(now, loc)
	if err != nil {
		return nil, fmt.Errorf("days: %w", err)
	}
	if n > c.Timing.MaxDays {
		return nil, fmt.Errorf("%d days requested, max_days is %d", n, c.Timing.MaxDays)
	}

	jobs := []Job{}
	for i := 0; i < n; i++ {
		day := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, loc)
		j, ok, err := planDay(c, day)
		if err != nil {
			return nil, err
		}
		if ok {
			jobs = append(jobs, j)
		}
	}

	klog.Infof("planned %d of %d days", len(jobs), n)
	return jobs, nil
}

// Today returns the job for the day containing now, ignoring the timing section.
func Today(c *config.Config, now time.Time) (Job, bool, error) {
	loc, err := c.Location()
	if err != nil {
		return Job{}, false, err
	}
	n := now.In(loc)
	return planDay(c, time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc))
}

func planDay(c *config.Config, day time.Time) (Job, bool, error) {
	folder := day.Format(c.Formatting.FolderLayout)
	st, err := os.Stat(filepath.Join(c.Files.SourceDir, folder))
	if err != nil || !st.IsDir() {
		klog.Warningf("missing folder: %s", folder)
		return Job{}, false, nil
	}

	start, end, err := solar.Window(day, c.SolarLocation())
	if errors.Is(err, solar.ErrNoCrossing) {
		klog.Warningf("%s: %v", day.Format("2006-01-02"), err)
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("solar window: %w", err)
	}

	j := Job{
		Day:    day,
		Start:  start,
		End:    end,
		Output: filepath.Join(c.Files.OutputDir, OutputName(c.Files.OutputName, start, encoder.Extension(c.EncoderOptions()))),
	}
	if c.Files.MetricName != "" {
		j.MetricLog = filepath.Join(c.Files.OutputDir, start.Format(c.Files.MetricName))
	}

	if _, err := os.Stat(j.Output); err == nil {
		if !c.Files.Overwrite {
			klog.Warningf("%s exists and overwrite is off, skipping", j.Output)
			return Job{}, false, nil
		}
		klog.Infof("%s exists, overwriting", j.Output)
	}

	klog.V(1).Infof("planned %s -> %s", j, j.Output)
	return j, true, nil
}

// OutputName formats layout with t and swaps its extension for ext.
func OutputName(layout string, t time.Time, ext string) string {
	base := strings.TrimSuffix(layout, filepath.Ext(layout))
	return t.Format(base) + ext
}

// Execute runs jobs on up to threads workers. A failed job is logged and
// reported in its Result; it never stops the others.
func Execute(jobs []Job, threads int, run Runner) []Result {
	if threads < 1 {
		threads = 1
	}
	klog.Infof("rendering %d videos with %d workers", len(jobs), threads)

	results := make([]Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(threads)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			frames, err := run(j)
			results[i] = Result{Job: j, Frames: frames, Err: err}
			if err != nil {
				klog.Errorf("%s: %v", j, err)
				return nil
			}
			klog.Infof("%s: done, %d frames", j, frames)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Failed returns the results that have an error.
func Failed(rs []Result) []Result {
	out := []Result{}
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
