package main

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"CSF/internal/input"
	"CSF/internal/presentation"
	"CSF/internal/raster"
	"CSF/internal/report"
	"CSF/internal/session"
	"CSF/internal/trial"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full contrast sensitivity test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWindow(cmd, false)
		},
	}
	registerWindowFlags(cmd)
	return cmd
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Practise with clearly visible gratings and feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWindow(cmd, true)
		},
	}
	registerWindowFlags(cmd)
	return cmd
}

// runWindow opens the test window and blocks until the subject closes it.
// The thresholds of a completed test are printed afterwards.
func runWindow(cmd *cobra.Command, demo bool) error {
	st, err := loadStation(cmd)
	if err != nil {
		return err
	}
	defer st.close()
	format, err := reportFormat(os.Stdout)
	if err != nil {
		return err
	}

	cfg := st.cfg
	disp := cfg.Geometry()
	if err := disp.Validate(); err != nil {
		return err
	}

	rast := raster.New(cfg.Render.GPU, cfg.Render.Workers, st.logger)
	defer rast.Close()
	renderer, err := newStimulusRenderer(rast, cfg, disp, st.logger)
	if err != nil {
		return err
	}

	var cue presentation.Cue
	if cfg.Audio.Enabled {
		c, err := newToneCue(cfg.Audio)
		if err != nil {
			st.logger.Warn("presentation cue disabled", "error", err)
		} else {
			cue = c
		}
	}

	var (
		runner  session.Runner
		sess    *session.Session
		results trial.Results
	)
	if demo {
		runner, err = session.NewDemo(session.DemoConfig{
			Contrasts:    cfg.Demo.Contrasts,
			Frequencies:  cfg.Demo.Frequencies,
			PatchSizeDeg: cfg.Stimulus.PatchSizeDeg,
			PreStim:      cfg.Timing.PreStim,
			Visible:      cfg.Timing.Visible,
			Settle:       cfg.Timing.Settle,
			Renderer:     renderer,
			Cue:          cue,
			Rand:         st.rand(),
			Logger:       st.logger,
		})
	} else {
		sess, err = session.New(session.Config{
			Trial:           cfg.Trial(),
			ResolutionLimit: disp.Nyquist(),
			PreStim:         cfg.Timing.PreStim,
			Visible:         cfg.Timing.Visible,
			Settle:          cfg.Timing.Settle,
			Renderer:        renderer,
			Cue:             cue,
			Rand:            st.rand(),
			Logger:          st.logger,
			OnComplete:      func(r trial.Results) { results = r },
		})
		runner = sess
	}
	if err != nil {
		return err
	}

	g := newGame(runner, renderer, input.DefaultBindings(), disp, st.logger)
	g.apertures = cfg.Stimulus.Apertures
	g.debug = debugFlag

	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowSize(disp.WidthPx, disp.HeightPx)
	ebiten.SetFullscreen(cfg.Render.Fullscreen)
	ebiten.SetTPS(defaultTPS)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("running window: %w", err)
	}

	if sess == nil || results == nil {
		return nil
	}
	total, correct := sess.Responses()
	return writeResults(os.Stdout, format, results, report.Meta{
		SessionID: sess.ID().String(),
		Seed:      st.seed,
		Responses: total,
		Correct:   correct,
		Elapsed:   sess.Timer().Now(),
	})
}
