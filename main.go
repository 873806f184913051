package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"CSF/internal/config"
	"CSF/internal/logging"
	"CSF/internal/report"
	"CSF/internal/trial"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "csf",
		Short:        "Measure contrast sensitivity with interleaved staircases",
		SilenceUsage: true,
	}
	registerPersistentFlags(root)
	root.AddCommand(newRunCmd(), newDemoCmd(), newSimulateCmd(), newNyquistCmd())
	return root
}

// station is the loaded configuration shared by every subcommand.
type station struct {
	cfg         *config.Config
	logger      *slog.Logger
	seed        int64
	stopProfile func()
}

// loadStation reads the environment files, the configuration file and the
// CSF_* variables, applies explicit flags and starts the CPU profile.
func loadStation(cmd *cobra.Command) (*station, error) {
	if err := config.LoadEnv(envFilesFlag...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPathFlag)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("seed") {
		cfg.Seed = seedFlag
	}
	if flags.Changed("gpu") {
		cfg.Render.GPU = gpuFlag
	}
	if flags.Changed("fullscreen") {
		cfg.Render.Fullscreen = fullscreenFlag
	}
	if muteFlag {
		cfg.Audio.Enabled = false
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level, os.Stderr)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	stop, err := startCPUProfile(cpuProfileFlag)
	if err != nil {
		return nil, fmt.Errorf("starting CPU profile: %w", err)
	}
	if cpuProfileFlag != "" {
		logger.Info("recording CPU profile", "path", cpuProfileFlag)
	}
	logger.Debug("configuration loaded", "path", configPathFlag, "seed", seed)
	return &station{cfg: cfg, logger: logger, seed: seed, stopProfile: stop}, nil
}

func (s *station) rand() *rand.Rand { return rand.New(rand.NewSource(s.seed)) }

func (s *station) close() { s.stopProfile() }

// reportFormat resolves --format, choosing the table for a terminal.
func reportFormat(out *os.File) (report.Format, error) {
	switch formatFlag {
	case "table":
		return report.Table, nil
	case "tsv":
		return report.TSV, nil
	case "", "auto":
		fd := out.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return report.Table, nil
		}
		return report.TSV, nil
	}
	return 0, fmt.Errorf("unknown format %q", formatFlag)
}

func writeResults(w io.Writer, format report.Format, results trial.Results, meta report.Meta) error {
	if len(results) == 0 {
		return nil
	}
	return report.Write(w, results, meta, format)
}
