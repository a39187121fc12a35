package skylapse

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

const progressSteps = 1000

// Progress reports how far a run has come and how long it has left. It
// only observes; nothing it does can fail a run.
type Progress struct {
	name  string
	start time.Time
	now   func() time.Time
	bar   *progressbar.ProgressBar
}

// NewProgress starts the clock for a run called name. The bar is drawn on w;
// a nil w draws nothing.
func NewProgress(name string, w io.Writer) *Progress {
	if w == nil {
		w = io.Discard
	}

	return &Progress{
		name:  name,
		start: time.Now(),
		now:   time.Now,
		bar: progressbar.NewOptions(progressSteps,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(name),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(250*time.Millisecond),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			})),
	}
}

// Update records the completed fraction and returns the estimated time left.
// ok is false while no estimate is possible.
func (p *Progress) Update(fraction float64) (eta time.Duration, ok bool) {
	switch {
	case math.IsNaN(fraction) || fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}

	_ = p.bar.Set(int(fraction * progressSteps))
	if fraction == 0 {
		return 0, false
	}

	elapsed := p.now().Sub(p.start)
	eta = time.Duration(float64(elapsed) / fraction * (1 - fraction))
	p.bar.Describe(fmt.Sprintf("%s (%s left)", p.name, eta.Round(time.Second)))
	klog.V(1).Infof("%s: %.1f%% done, %s elapsed, %s left", p.name, fraction*100, elapsed.Round(time.Second), eta.Round(time.Second))
	return eta, true
}

// Finish completes the bar.
func (p *Progress) Finish() {
	_ = p.bar.Finish()
}
