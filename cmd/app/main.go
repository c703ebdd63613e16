// Eye Bump - live camera preview with eye bump distortion
// Author: Ervins Strauhmanis
// License: MIT
// Version: 1.0.0 - Cascade eyes + bump distortion

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"eyebump/internal/algorithms"
	"eyebump/internal/capture"
	"eyebump/internal/config"
	"eyebump/internal/detect/cascade"
	"eyebump/internal/gui"
	"eyebump/internal/metrics"
	"eyebump/internal/pipeline"
)

const (
	AppName    = "Eye Bump"
	AppID      = "com.eyebump.preview"
	AppVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	source := flag.String("source", "", "Camera index, video file or still image; overrides the config file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
	}).Info("Starting " + AppName)

	if err := run(*configPath, *source, logger); err != nil {
		logger.WithError(err).Error("Application failed")
		os.Exit(1)
	}

	logger.Info("Application shutting down gracefully")
}

func run(configPath, sourceOverride string, logger *logrus.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if sourceOverride != "" {
		cfg.Source = sourceOverride
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	detCfg, err := cfg.DetectorConfig()
	if err != nil {
		return err
	}
	statsInterval, err := cfg.StatsPeriod()
	if err != nil {
		return err
	}

	locator, err := cascade.NewLocator(detCfg, cascade.Files{
		Dir:  cfg.Detection.CascadeDir,
		Face: cfg.Detection.FaceCascade,
		Eye:  cfg.Detection.EyeCascade,
	}, logger)
	if err != nil {
		return fmt.Errorf("load face locator: %w", err)
	}

	src, err := openSource(cfg, logger)
	if err != nil {
		locator.Close()
		return err
	}

	surface := gui.NewSurface(logger)
	p := pipeline.New(pipeline.Options{
		Source:   src,
		Locator:  locator,
		Operator: algorithms.NewEvaluator(logger),
		Drawer:   surface,
		Display:  cfg.Display(),
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	go metrics.Report(ctx, statsInterval, p.Stats, logger)

	fyneApp := app.NewWithID(AppID)
	window := gui.NewApplication(fyneApp, gui.WindowConfig{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
	}, surface, p, logger)

	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	window.ShowAndRun()
	return nil
}

func openSource(cfg config.Config, logger *logrus.Logger) (pipeline.Source, error) {
	if capture.IsStillImage(cfg.Source) {
		still, err := capture.OpenStill(cfg.Source, cfg.StillFPS, cfg.Sensor(), logger)
		if err != nil {
			return nil, err
		}
		return still, nil
	}

	camera, err := capture.OpenCamera(capture.CameraConfig{
		Source:      cfg.Source,
		Width:       cfg.CaptureWidth,
		Height:      cfg.CaptureHeight,
		Orientation: cfg.Sensor(),
	}, logger)
	if err != nil {
		return nil, err
	}
	return camera, nil
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
