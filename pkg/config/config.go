// Package config loads the skylapse configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/tstromberg/skylapse/pkg/encoder"
	"github.com/tstromberg/skylapse/pkg/solar"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Environment variables that win over the file.
const (
	EnvSensorDSN = "SKYLAPSE_SENSOR_DSN"
	EnvSourceDir = "SKYLAPSE_SOURCE_DIR"
)

// DayLayout is how absolute start and end days are written.
const DayLayout = "2006-01-02"

type Config struct {
	Files      Files      `yaml:"files"`
	Formatting Formatting `yaml:"formatting"`
	Video      Video      `yaml:"video"`
	Codec      Codec      `yaml:"codec"`
	Timing     Timing     `yaml:"timing"`
	Solar      Solar      `yaml:"solar"`
	Sensor     Sensor     `yaml:"sensor"`
	Overlay    Overlay    `yaml:"overlay"`
}

type Files struct {
	SourceDir string `yaml:"source_dir"`
	OutputDir string `yaml:"output_dir"`
	// OutputName is a time layout; its extension is replaced by the codec's.
	OutputName string `yaml:"output_name"`
	Overwrite  bool   `yaml:"overwrite"`
	// MetricName is a time layout for the per-frame CSV. Empty disables it.
	MetricName  string `yaml:"metric_name"`
	MetricLevel uint8  `yaml:"metric_level"`
}

type Formatting struct {
	ImageLayout  string `yaml:"image_layout"`
	FolderLayout string `yaml:"folder_layout"`
	// TimeSource is "name" or "exif".
	TimeSource string `yaml:"time_source"`
}

type Video struct {
	Framerate float64 `yaml:"framerate"`
	Duration  float64 `yaml:"duration"`
	// Resolution is a percentage of the source resolution.
	Resolution int `yaml:"resolution"`
}

type Codec struct {
	WindowsPreset bool              `yaml:"windows_preset"`
	LinearTime    bool              `yaml:"linear_time"`
	Codec         string            `yaml:"codec"`
	Quality       int               `yaml:"quality"`
	Efficiency    int               `yaml:"efficiency"`
	Threads       int               `yaml:"threads"`
	Custom        map[string]string `yaml:"custom"`
	FFmpegPath    string            `yaml:"ffmpeg_path"`
}

type Timing struct {
	// StartDay and EndDay are either dates (2006-01-02) or negative day
	// offsets from today.
	StartDay string `yaml:"start_day"`
	EndDay   string `yaml:"end_day"`
	MaxDays  int    `yaml:"max_days"`
}

type Solar struct {
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	Altitude     float64 `yaml:"altitude"`
	TimeZone     string  `yaml:"time_zone"`
	MinElevation float64 `yaml:"min_elevation"`
}

type Sensor struct {
	// DSN of the SQLite database. Empty disables the overlay.
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	Column     string `yaml:"column"`
	TimeColumn string `yaml:"time_column"`
}

type Overlay struct {
	Enabled bool   `yaml:"enabled"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Units   string `yaml:"units"`
}

// Load reads path, creating it with defaults if it does not exist. A .env
// file next to it is loaded into the environment first.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		klog.Infof("creating default config at %s", path)
		if err := os.WriteFile(path, []byte(Default), 0o644); err != nil {
			return nil, fmt.Errorf("write default: %w", err)
		}
	}

	env := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(env); err == nil {
		if err := godotenv.Load(env); err != nil {
			return nil, fmt.Errorf("load %s: %w", env, err)
		}
		klog.V(1).Infof("loaded %s", env)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if v := os.Getenv(EnvSourceDir); v != "" {
		c.Files.SourceDir = v
	}
	if v := os.Getenv(EnvSensorDSN); v != "" {
		c.Sensor.DSN = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML without validating it.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return c, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks ranges and that the source directory exists.
func (c *Config) Validate() error {
	if err := c.EncoderOptions().Validate(); err != nil {
		return invalid("%v", err)
	}
	if c.Video.Resolution <= 0 {
		return invalid("resolution must be positive: %d", c.Video.Resolution)
	}
	if c.Video.Duration <= 0 {
		return invalid("duration must be positive: %g", c.Video.Duration)
	}
	if c.Codec.Threads < 1 {
		return invalid("threads must be at least 1: %d", c.Codec.Threads)
	}

	switch c.Formatting.TimeSource {
	case "", "name", "exif":
	default:
		return invalid("time_source must be name or exif: %q", c.Formatting.TimeSource)
	}

	if _, err := c.Location(); err != nil {
		return invalid("%v", err)
	}

	if c.Timing.MaxDays < 1 {
		return invalid("max_days must be at least 1: %d", c.Timing.MaxDays)
	}
	start, startRel, err := c.Timing.parse(c.Timing.StartDay)
	if err != nil {
		return invalid("start_day: %v", err)
	}
	end, endRel, err := c.Timing.parse(c.Timing.EndDay)
	if err != nil {
		return invalid("end_day: %v", err)
	}
	if startRel != endRel {
		return invalid("start_day and end_day must both be dates or both be offsets")
	}
	if startRel && (start >= 0 || end >= 0) {
		return invalid("relative start and end days must be negative")
	}

	if c.Overlay.Enabled && (c.Overlay.Width <= 0 || c.Overlay.Height <= 0) {
		return invalid("overlay size must be positive: %dx%d", c.Overlay.Width, c.Overlay.Height)
	}

	st, err := os.Stat(c.Files.SourceDir)
	if err != nil {
		return invalid("source directory: %v", err)
	}
	if !st.IsDir() {
		return invalid("source directory is not a directory: %s", c.Files.SourceDir)
	}
	return nil
}

// parse returns a day offset (relative) or a Unix day number (absolute).
func (t Timing) parse(s string) (int, bool, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	d, err := time.Parse(DayLayout, s)
	if err != nil {
		return 0, false, fmt.Errorf("%q is neither a date nor a day offset", s)
	}
	return int(d.Unix() / 86400), false, nil
}

// Days returns the first day and how many days follow it, in loc.
func (t Timing) Days(now time.Time, loc *time.Location) (time.Time, int, error) {
	start, rel, err := t.parse(t.StartDay)
	if err != nil {
		return time.Time{}, 0, err
	}
	end, _, err := t.parse(t.EndDay)
	if err != nil {
		return time.Time{}, 0, err
	}

	if end < start {
		return time.Time{}, 0, fmt.Errorf("end day %s is before start day %s", t.EndDay, t.StartDay)
	}

	var first time.Time
	if rel {
		n := now.In(loc)
		first = time.Date(n.Year(), n.Month(), n.Day()+start, 0, 0, 0, 0, loc)
	} else {
		d, _ := time.Parse(DayLayout, t.StartDay)
		first = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}
	return first, end - start + 1, nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Solar.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Solar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}
	return loc, nil
}

// EncoderOptions returns the codec settings.
func (c *Config) EncoderOptions() encoder.Options {
	return encoder.Options{
		Framerate:     c.Video.Framerate,
		Codec:         c.Codec.Codec,
		Quality:       c.Codec.Quality,
		Efficiency:    c.Codec.Efficiency,
		Threads:       c.Codec.Threads,
		WindowsPreset: c.Codec.WindowsPreset,
		Custom:        c.Codec.Custom,
		FFmpegPath:    c.Codec.FFmpegPath,
	}
}

// SolarLocation returns the camera site.
func (c *Config) SolarLocation() solar.Location {
	return solar.Location{
		Latitude:     c.Solar.Latitude,
		Longitude:    c.Solar.Longitude,
		Altitude:     c.Solar.Altitude,
		MinElevation: c.Solar.MinElevation,
	}
}

// OverlayEnabled is true when a chart should be drawn.
func (c *Config) OverlayEnabled() bool {
	return c.Overlay.Enabled && c.Sensor.DSN != ""
}
