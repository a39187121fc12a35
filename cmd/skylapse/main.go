// skylapse renders daily sky camera time-lapses.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	_ "image/jpeg"
	_ "image/png"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli"
	"k8s.io/klog/v2"

	"github.com/tstromberg/skylapse/pkg/batch"
	"github.com/tstromberg/skylapse/pkg/chart"
	"github.com/tstromberg/skylapse/pkg/config"
	"github.com/tstromberg/skylapse/pkg/sensor"
	"github.com/tstromberg/skylapse/pkg/skylapse"
)

var app = cli.NewApp()

func init() {
	app.Name = "skylapse"
	app.Usage = "Render sunrise-to-sunset time-lapses from sky camera images"
	app.UsageText = "skylapse [--config file] command [options]"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "skylapse.yaml", Usage: "configuration file, created if missing"},
		cli.IntFlag{Name: "verbosity", Value: 0, Usage: "log verbosity"},
	}
	app.Before = func(c *cli.Context) error {
		fs := flag.NewFlagSet("klog", flag.ContinueOnError)
		klog.InitFlags(fs)
		return fs.Set("v", strconv.Itoa(c.GlobalInt("verbosity")))
	}
	app.Commands = []cli.Command{
		{
			Name:   "batch",
			Usage:  "Render every day in the configured range",
			Action: batchCmd,
		},
		{
			Name:  "render",
			Usage: "Render one explicit window",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "start", Usage: "window start, 2006-01-02 15:04 in the configured time zone"},
				cli.StringFlag{Name: "end", Usage: "window end, 2006-01-02 15:04 in the configured time zone"},
				cli.StringFlag{Name: "out", Usage: "output video path"},
				cli.StringFlag{Name: "metric", Usage: "optional per-frame CSV path"},
			},
			Action: renderCmd,
		},
		{
			Name:  "watch",
			Usage: "Re-render today's video whenever its folder changes",
			Flags: []cli.Flag{
				cli.DurationFlag{Name: "debounce", Value: time.Minute, Usage: "quiet period before re-rendering"},
			},
			Action: watchCmd,
		},
	}
}

func load(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openSensor returns nil when no chart is configured.
func openSensor(cfg *config.Config) (*sensor.SQLite, error) {
	if !cfg.OverlayEnabled() {
		return nil, nil
	}
	s, err := sensor.OpenSQLite(cfg.Sensor.DSN, cfg.Sensor.Table, cfg.Sensor.Column, cfg.Sensor.TimeColumn)
	if err != nil {
		return nil, fmt.Errorf("sensor: %w", err)
	}
	return s, nil
}

func newRunner(cfg *config.Config, progress io.Writer) (batch.Runner, func(), error) {
	db, err := openSensor(cfg)
	if err != nil {
		return nil, nil, err
	}

	var src sensor.Source
	cleanup := func() {}
	if db != nil {
		src = db
		cleanup = func() { db.Close() }
	}

	run, err := batch.NewRunner(cfg, src, progress)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return run, cleanup, nil
}

func batchCmd(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}

	jobs, err := batch.Plan(cfg, time.Now())
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if len(jobs) == 0 {
		klog.Infof("nothing to do")
		return nil
	}

	var progress io.Writer
	if cfg.Codec.Threads == 1 {
		progress = os.Stderr
	}

	run, cleanup, err := newRunner(cfg, progress)
	if err != nil {
		return err
	}
	defer cleanup()

	results := batch.Execute(jobs, cfg.Codec.Threads, run)
	for _, r := range results {
		if r.Err == nil {
			fmt.Printf("%s  %s  %d frames\n", r.Job, r.Job.Output, r.Frames)
		}
	}

	if failed := batch.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d videos failed", len(failed), len(results))
	}
	return nil
}

func renderCmd(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", c.String("start"), loc)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", c.String("end"), loc)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	out := c.String("out")
	if out == "" {
		return fmt.Errorf("--out is required")
	}

	db, err := openSensor(cfg)
	if err != nil {
		return err
	}
	var src sensor.Source
	if db != nil {
		defer db.Close()
		src = db
	}

	p, err := batch.Params(cfg, src, os.Stderr)
	if err != nil {
		return err
	}
	if p.Sensor != nil {
		p.Chart = chart.New(cfg.Overlay.Width, cfg.Overlay.Height, cfg.Overlay.Units)
	}

	r := skylapse.NewRun(p)
	if err := r.Execute(start, end, out, c.String("metric")); err != nil {
		return fmt.Errorf("%s: %w", r, err)
	}
	fmt.Printf("%s  %s  %d frames\n", r, out, r.Frames())
	return nil
}

func watchCmd(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	cfg.Files.Overwrite = true

	run, cleanup, err := newRunner(cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	today := func() string {
		return filepath.Join(cfg.Files.SourceDir, time.Now().In(loc).Format(cfg.Formatting.FolderLayout))
	}

	if err := w.Add(cfg.Files.SourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Files.SourceDir, err)
	}
	watching := ""
	follow := func() {
		d := today()
		if d == watching {
			return
		}
		if err := w.Add(d); err != nil {
			klog.V(1).Infof("not watching %s yet: %v", d, err)
			return
		}
		if watching != "" {
			_ = w.Remove(watching)
		}
		watching = d
		klog.Infof("watching %s ...", d)
	}
	follow()

	render := func() {
		j, ok, err := batch.Today(cfg, time.Now())
		if err != nil {
			klog.Errorf("plan today: %v", err)
			return
		}
		if ok {
			batch.Execute([]batch.Job{j}, 1, run)
		}
	}

	changes := make(chan struct{})
	rendered := make(chan struct{})
	go func() {
		batch.Debounce(ctx, changes, c.Duration("debounce"), render)
		close(rendered)
	}()
	defer func() {
		close(changes)
		<-rendered
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(2).Infof("event: %s", event)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				follow()
				select {
				case changes <- struct{}{}:
				case <-ctx.Done():
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watch: %v", err)
		}
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		klog.Exitf("%v", err)
	}
}
