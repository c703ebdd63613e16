// Package config loads runtime settings from a TOML file
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"eyebump/internal/core"
	"eyebump/internal/detect"
)

// Config is the full application configuration
type Config struct {
	Source             string `toml:"source"`
	CaptureWidth       int    `toml:"capture_width"`
	CaptureHeight      int    `toml:"capture_height"`
	SensorOrientation  string `toml:"sensor_orientation"`
	DisplayOrientation string `toml:"display_orientation"`
	StillFPS           int    `toml:"still_fps"`
	StatsInterval      string `toml:"stats_interval"`

	Detection Detection `toml:"detection"`
	Window    Window    `toml:"window"`
}

// Detection configures the cascade face locator
type Detection struct {
	CascadeDir  string  `toml:"cascade_dir"`
	FaceCascade string  `toml:"face_cascade"`
	EyeCascade  string  `toml:"eye_cascade"`
	Accuracy    string  `toml:"accuracy"`
	Tracking    bool    `toml:"tracking"`
	MinFaceSize int     `toml:"min_face_size"`
	Downscale   float64 `toml:"downscale"`
}

// Window configures the preview window
type Window struct {
	Title  string  `toml:"title"`
	Width  float32 `toml:"width"`
	Height float32 `toml:"height"`
}

// Default returns a configuration that opens the first camera
func Default() Config {
	det := detect.DefaultConfig()

	return Config{
		Source:             "0",
		CaptureWidth:       1280,
		CaptureHeight:      720,
		SensorOrientation:  core.LandscapeRight.String(),
		DisplayOrientation: core.LandscapeRight.String(),
		StillFPS:           30,
		StatsInterval:      "10s",
		Detection: Detection{
			CascadeDir:  "./models/haarcascades",
			FaceCascade: "haarcascade_frontalface_alt.xml",
			EyeCascade:  "haarcascade_eye.xml",
			Accuracy:    det.Accuracy.String(),
			Tracking:    det.Tracking,
			MinFaceSize: det.MinFaceSize,
			Downscale:   det.Downscale,
		},
		Window: Window{
			Title:  "Eye Bump",
			Width:  960,
			Height: 540,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}

	return cfg, nil
}

// Validate checks every field that can be wrong independently of the
// machine it runs on
func (c Config) Validate() error {
	var errs []error

	if c.Source == "" {
		errs = append(errs, errors.New("source must not be empty"))
	}
	if c.CaptureWidth < 0 || c.CaptureHeight < 0 {
		errs = append(errs, fmt.Errorf("capture size %dx%d must not be negative", c.CaptureWidth, c.CaptureHeight))
	}
	if _, err := core.ParseOrientation(c.SensorOrientation); err != nil {
		errs = append(errs, fmt.Errorf("sensor_orientation: %w", err))
	}
	if _, err := core.ParseOrientation(c.DisplayOrientation); err != nil {
		errs = append(errs, fmt.Errorf("display_orientation: %w", err))
	}
	if c.StillFPS <= 0 {
		errs = append(errs, fmt.Errorf("still_fps must be positive, got %d", c.StillFPS))
	}
	if _, err := c.StatsPeriod(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DetectorConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %vx%v must be positive", c.Window.Width, c.Window.Height))
	}

	return errors.Join(errs...)
}

// StatsPeriod returns how often pipeline stats are logged; zero disables it
func (c Config) StatsPeriod() (time.Duration, error) {
	if c.StatsInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StatsInterval)
	if err != nil {
		return 0, fmt.Errorf("stats_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("stats_interval must not be negative, got %s", d)
	}
	return d, nil
}

// DetectorConfig converts the detection section
func (c Config) DetectorConfig() (detect.Config, error) {
	var acc detect.Accuracy
	switch c.Detection.Accuracy {
	case detect.AccuracyHigh.String():
		acc = detect.AccuracyHigh
	case detect.AccuracyLow.String():
		acc = detect.AccuracyLow
	default:
		return detect.Config{}, fmt.Errorf("detection.accuracy must be %q or %q, got %q",
			detect.AccuracyHigh, detect.AccuracyLow, c.Detection.Accuracy)
	}

	if c.Detection.MinFaceSize < 0 {
		return detect.Config{}, fmt.Errorf("detection.min_face_size must not be negative, got %d", c.Detection.MinFaceSize)
	}
	if c.Detection.Downscale < 1 {
		return detect.Config{}, fmt.Errorf("detection.downscale must be at least 1, got %v", c.Detection.Downscale)
	}

	return detect.Config{
		Accuracy:    acc,
		Tracking:    c.Detection.Tracking,
		MinFaceSize: c.Detection.MinFaceSize,
		Downscale:   c.Detection.Downscale,
	}, nil
}

// Display returns the initial display orientation. Call Validate first.
func (c Config) Display() core.Orientation {
	o, _ := core.ParseOrientation(c.DisplayOrientation)
	return o
}

// Sensor returns the sensor orientation. Call Validate first.
func (c Config) Sensor() core.Orientation {
	o, _ := core.ParseOrientation(c.SensorOrientation)
	return o
}
