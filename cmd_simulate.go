package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"CSF/internal/observer"
	"CSF/internal/report"
	"CSF/internal/session"
	"CSF/internal/trial"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the test headless against a simulated observer",
		Long: "simulate runs every staircase of the configured test against an observer whose\n" +
			"thresholds follow a log-parabola CSF and prints the thresholds it measured.",
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}
	registerSimulateFlags(cmd)
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	st, err := loadStation(cmd)
	if err != nil {
		return err
	}
	defer st.close()
	format, err := reportFormat(os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	csf := observer.DefaultParabola
	csf.PeakSensitivity = peakSensFlag
	csf.PeakFrequency = peakFrequencyFlag

	rng := st.rand()
	var obs observer.Observer
	switch observerFlag {
	case "threshold":
		obs = observer.Threshold{Threshold: csf.Threshold}
	case "weibull":
		obs = observer.Weibull{Threshold: csf.Threshold, Slope: slopeFlag, Rand: rng}
	default:
		return fmt.Errorf("unknown observer %q", observerFlag)
	}

	cfg := st.cfg
	var results trial.Results
	s, err := session.New(session.Config{
		Trial:           cfg.Trial(),
		ResolutionLimit: cfg.Geometry().Nyquist(),
		PreStim:         cfg.Timing.PreStim,
		Visible:         cfg.Timing.Visible,
		Settle:          cfg.Timing.Settle,
		Renderer:        session.NopRenderer{},
		Rand:            rng,
		Logger:          st.logger,
		OnComplete:      func(r trial.Results) { results = r },
	})
	if err != nil {
		return err
	}

	stats, err := session.Simulate(ctx, s, obs, frameFlag)
	if err != nil {
		return fmt.Errorf("simulating session: %w", err)
	}
	st.logger.Info("simulation finished",
		"observer", observerFlag,
		"presentations", stats.Presentations,
		"correct", stats.Correct,
		"simulated", stats.Elapsed)

	return writeResults(os.Stdout, format, results, report.Meta{
		Title:     "Simulated contrast sensitivity (" + observerFlag + " observer)",
		SessionID: s.ID().String(),
		Seed:      st.seed,
		Responses: stats.Responses,
		Correct:   stats.Correct,
		Elapsed:   stats.Elapsed,
	})
}
