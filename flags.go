package main

import (
	"time"

	"github.com/spf13/cobra"

	"CSF/internal/observer"
)

// Command-line flags. Persistent flags override the matching configuration
// values only when they are given explicitly.
var (
	// configPathFlag points at an optional YAML station configuration.
	configPathFlag string

	// envFilesFlag lists KEY=VALUE files loaded before the CSF_* overrides.
	envFilesFlag []string

	logLevelFlag string

	// seedFlag fixes the random source; zero seeds from the clock.
	seedFlag int64

	// cpuProfileFlag writes a pprof CPU profile for the life of the command.
	cpuProfileFlag string

	// gpuFlag rasterizes gratings with OpenCL when a device is available.
	gpuFlag bool

	fullscreenFlag bool

	// muteFlag disables the presentation cue regardless of configuration.
	muteFlag bool

	// debugFlag enables the FPS and timer overlay.
	debugFlag bool

	// formatFlag selects the results layout: auto, table or tsv.
	formatFlag string

	observerFlag      string
	slopeFlag         float64
	frameFlag         time.Duration
	peakSensFlag      float64
	peakFrequencyFlag float64
)

func registerPersistentFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&configPathFlag, "config", "c", "", "YAML station configuration file")
	f.StringSliceVar(&envFilesFlag, "env-file", nil, "KEY=VALUE files to load into the environment (default .env)")
	f.StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn or error")
	f.Int64Var(&seedFlag, "seed", 0, "random seed (0 seeds from the clock)")
	f.StringVar(&cpuProfileFlag, "cpuprofile", "", "write a CPU profile to this file")
	f.StringVar(&formatFlag, "format", "auto", "results layout: auto, table or tsv")
}

func registerWindowFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&gpuFlag, "gpu", false, "rasterize gratings with OpenCL when available")
	f.BoolVar(&fullscreenFlag, "fullscreen", false, "open the test window full screen")
	f.BoolVar(&muteFlag, "mute", false, "disable the presentation cue")
	f.BoolVar(&debugFlag, "debug", false, "show FPS and presentation timer overlay")
}

func registerSimulateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&observerFlag, "observer", "weibull", "simulated observer: threshold or weibull")
	f.Float64Var(&slopeFlag, "slope", 3.5, "Weibull slope of the simulated observer")
	f.DurationVar(&frameFlag, "frame", time.Second/defaultTPS, "simulated frame length")
	f.Float64Var(&peakSensFlag, "peak-sensitivity", observer.DefaultParabola.PeakSensitivity, "peak sensitivity of the simulated CSF")
	f.Float64Var(&peakFrequencyFlag, "peak-frequency", observer.DefaultParabola.PeakFrequency, "peak frequency of the simulated CSF (c/deg)")
}
