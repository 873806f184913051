package main

import (
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"CSF/internal/geometry"
	"CSF/internal/input"
	"CSF/internal/raster"
	"CSF/internal/session"
)

// Game adapts a session runner to ebiten's update and draw loop.
type Game struct {
	runner   session.Runner
	renderer *stimulusRenderer
	bindings input.Bindings
	logger   *slog.Logger

	width, height int
	background    color.Gray

	apertures bool
	debug     bool

	lastTick time.Time
	keys     []ebiten.Key
	events   []input.Event
}

// newGame constructs the window state for runner.
func newGame(runner session.Runner, renderer *stimulusRenderer, bindings input.Bindings, disp geometry.Display, logger *slog.Logger) *Game {
	return &Game{
		runner:     runner,
		renderer:   renderer,
		bindings:   bindings,
		logger:     logger,
		width:      disp.WidthPx,
		height:     disp.HeightPx,
		background: color.Gray{Y: raster.MidGrey(renderer.gamma)},
	}
}

// Update feeds key presses to the runner and advances its clock by the wall
// time since the previous tick.
func (g *Game) Update() error {
	for _, ev := range g.pollEvents() {
		g.logger.Debug("input", "event", ev, "phase", g.runner.Phase())
		g.runner.Handle(ev)
	}
	if g.runner.Closed() {
		return ebiten.Termination
	}

	now := time.Now()
	if !g.lastTick.IsZero() {
		g.runner.Tick(now.Sub(g.lastTick))
	}
	g.lastTick = now
	return nil
}
