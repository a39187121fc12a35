package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"

	"github.com/tstromberg/skylapse/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Parse([]byte(config.Default))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c.Files.SourceDir = t.TempDir()
	c.Files.OutputDir = t.TempDir()
	c.Timing.StartDay = "-3"
	c.Timing.EndDay = "-1"
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return c
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestPlan(t *testing.T) {
	c := testConfig(t)
	now := time.Date(2024, 6, 22, 16, 0, 0, 0, time.UTC)

	mkdir(t, filepath.Join(c.Files.SourceDir, "2024-06-19"))
	mkdir(t, filepath.Join(c.Files.SourceDir, "2024-06-21"))
	if err := os.WriteFile(filepath.Join(c.Files.OutputDir, "2024-06-21.mp4"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	jobs, err := Plan(c, now)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	var got []string
	for _, j := range jobs {
		got = append(got, filepath.Base(j.Output))
	}
	if diff := cmp.Diff([]string{"2024-06-19.mp4"}, got); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	j := jobs[0]
	if want := filepath.Join(c.Files.OutputDir, "2024-06-19.csv"); j.MetricLog != want {
		t.Errorf("metric log = %q, want %q", j.MetricLog, want)
	}
	if j.Start.Hour() < 4 || j.Start.Hour() > 6 || j.End.Hour() < 20 || j.End.Hour() > 21 {
		t.Errorf("window %s looks wrong for June in Maryland", j)
	}
	if !j.Start.Before(j.End) {
		t.Errorf("start %s is not before end %s", j.Start, j.End)
	}

	c.Files.Overwrite = true
	jobs, err = Plan(c, now)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("with overwrite got %d jobs, want 2", len(jobs))
	}
}

func TestPlanWindowsPreset(t *testing.T) {
	c := testConfig(t)
	c.Codec.WindowsPreset = true
	c.Files.MetricName = ""
	now := time.Date(2024, 6, 22, 16, 0, 0, 0, time.UTC)
	mkdir(t, filepath.Join(c.Files.SourceDir, "2024-06-20"))

	jobs, err := Plan(c, now)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if got := filepath.Base(jobs[0].Output); got != "2024-06-20.avi" {
		t.Errorf("output = %q, want 2024-06-20.avi", got)
	}
	if jobs[0].MetricLog != "" {
		t.Errorf("metric log = %q, want none", jobs[0].MetricLog)
	}
}

func TestPlanMaxDays(t *testing.T) {
	c := testConfig(t)
	c.Timing.StartDay = "-30"
	c.Timing.MaxDays = 10

	if _, err := Plan(c, time.Now()); err == nil {
		t.Errorf("Plan succeeded for 30 days with max_days 10")
	}
}

func TestOutputName(t *testing.T) {
	ts := time.Date(2024, 6, 19, 5, 42, 0, 0, time.UTC)
	tests := []struct {
		layout string
		ext    string
		want   string
	}{
		{"2006-01-02.mp4", ".mp4", "2024-06-19.mp4"},
		{"2006-01-02.mp4", ".avi", "2024-06-19.avi"},
		{"sky-20060102-1504", ".mp4", "sky-20240619-0542.mp4"},
		{"static.mkv", ".mp4", "static.mp4"},
	}
	for _, tc := range tests {
		if got := OutputName(tc.layout, ts, tc.ext); got != tc.want {
			t.Errorf("OutputName(%q, %q) = %q, want %q", tc.layout, tc.ext, got, tc.want)
		}
	}
}

func TestExecute(t *testing.T) {
	var jobs []Job
	for i := 0; i < 9; i++ {
		jobs = append(jobs, Job{Output: fmt.Sprintf("%d.mp4", i)})
	}

	var running, peak atomic.Int32
	var mu sync.Mutex
	seen := map[string]bool{}
	errBoom := errors.New("boom")

	run := func(j Job) (int, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		seen[j.Output] = true
		mu.Unlock()

		if j.Output == "4.mp4" {
			return 3, errBoom
		}
		return 10, nil
	}

	results := Execute(jobs, 3, run)
	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	if len(seen) != len(jobs) {
		t.Errorf("ran %d jobs, want all %d despite a failure", len(seen), len(jobs))
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency %d exceeds 3 workers", p)
	}

	for i, r := range results {
		if r.Job.Output != jobs[i].Output {
			t.Errorf("result %d is for %s, want %s", i, r.Job.Output, jobs[i].Output)
		}
	}

	failed := Failed(results)
	if len(failed) != 1 || !errors.Is(failed[0].Err, errBoom) || failed[0].Frames != 3 {
		t.Errorf("failed = %+v, want the single boom job", failed)
	}
}
