package skylapse

import (
	"encoding/csv"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anthonynsimon/bild/segment"
)

// Metric derives one number from a source image.
type Metric interface {
	Measure(img image.Image) float64
}

// BrightFraction is the fraction of pixels at or above Level once the image
// is reduced to grayscale: a rough split between cloud and clear sky.
type BrightFraction struct {
	Level uint8
}

// Measure implements Metric.
func (b BrightFraction) Measure(img image.Image) float64 {
	g := segment.Threshold(img, b.Level)
	if len(g.Pix) == 0 {
		return 0
	}

	n := 0
	for _, v := range g.Pix {
		if v == 0xff {
			n++
		}
	}
	return float64(n) / float64(len(g.Pix))
}

// MetricLog is a CSV file with one (timestamp, value) row per frame.
type MetricLog struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// CreateMetricLog creates path and writes the header row.
func CreateMetricLog(path string) (*MetricLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &FilesystemError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, &FilesystemError{Op: "create", Path: path, Err: err}
	}

	m := &MetricLog{path: path, f: f, w: csv.NewWriter(f)}
	if err := m.w.Write([]string{"timestamp", "value"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return m, nil
}

// Write appends one row.
func (m *MetricLog) Write(t time.Time, v float64) error {
	return m.w.Write([]string{t.Format(time.RFC3339), strconv.FormatFloat(v, 'f', 6, 64)})
}

// Close flushes and closes the file.
func (m *MetricLog) Close() error {
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return fmt.Errorf("flush %s: %w", m.path, err)
	}
	return m.f.Close()
}

// Discard closes and removes the file.
func (m *MetricLog) Discard() error {
	m.w.Flush()
	m.f.Close()
	return os.Remove(m.path)
}
