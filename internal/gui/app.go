// Package gui presents pipeline output in a fyne window
package gui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"github.com/sirupsen/logrus"

	"eyebump/internal/core"
)

// Pipeline is the part of the processing pipeline the window drives
type Pipeline interface {
	Tick(surfaceWidth, surfaceHeight int) error
	SetDisplayOrientation(o core.Orientation)
	DisplayOrientation() core.Orientation
	Stop()
}

// WindowConfig sets the window title and initial size
type WindowConfig struct {
	Title  string
	Width  float32
	Height float32
}

// Application is the preview window
type Application struct {
	app      fyne.App
	window   fyne.Window
	surface  *Surface
	pipeline Pipeline
	refresh  *fyne.Animation
	title    string
	logger   *logrus.Logger
}

// NewApplication creates the window and binds surface refreshes to
// pipeline ticks
func NewApplication(app fyne.App, cfg WindowConfig, surface *Surface, p Pipeline, logger *logrus.Logger) *Application {
	window := app.NewWindow(cfg.Title)
	window.Resize(fyne.NewSize(cfg.Width, cfg.Height))
	window.CenterOnScreen()

	a := &Application{
		app:      app,
		window:   window,
		surface:  surface,
		pipeline: p,
		title:    cfg.Title,
		logger:   logger,
	}

	surface.SetRenderer(p.Tick)
	window.SetContent(surface.CanvasObject())

	// Animations tick once per display frame, which paces rendering to the
	// screen refresh.
	a.refresh = fyne.NewAnimation(time.Second, func(float32) {
		surface.Refresh()
	})
	a.refresh.RepeatCount = fyne.AnimationRepeatForever
	a.refresh.Curve = fyne.AnimationLinear

	window.Canvas().SetOnTypedKey(a.onKey)
	a.updateTitle()

	return a
}

// ShowAndRun blocks until the window is closed
func (a *Application) ShowAndRun() {
	a.logger.Info("Showing preview window")

	a.window.SetCloseIntercept(a.quit)

	a.refresh.Start()
	a.window.ShowAndRun()
}

// RotateDisplay turns the display orientation one quarter clockwise
func (a *Application) RotateDisplay() {
	next := a.pipeline.DisplayOrientation().Next()
	a.pipeline.SetDisplayOrientation(next)
	a.updateTitle()
}

func (a *Application) onKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyR:
		a.RotateDisplay()
	case fyne.KeyEscape, fyne.KeyQ:
		a.quit()
	}
}

func (a *Application) updateTitle() {
	a.window.SetTitle(fmt.Sprintf("%s [%s]", a.title, a.pipeline.DisplayOrientation()))
}

func (a *Application) quit() {
	a.logger.Info("Stopping pipeline")
	a.refresh.Stop()
	a.pipeline.Stop()
	a.app.Quit()
}
