package config

import "time"

// Default returns the configuration of the reference test station: a
// 600 mm wide 2560x1440 panel viewed from 2.5 m.
func Default() Config {
	return Config{
		Display: DisplayConfig{
			DistanceMM: 2500,
			WidthMM:    600,
			WidthPx:    2560,
			HeightPx:   1440,
		},
		Stimulus: StimulusConfig{
			PatchSizeDeg:    2,
			EccentricityDeg: 2,
			Gamma:           2.42,
			Envelope:        0.15,
			Apertures:       true,
		},
		// One presentation cycle is 1750 ms from an answer to the next
		// answer window: the pre-stimulus interval and the grating itself.
		Timing: TimingConfig{
			PreStim: 1500 * time.Millisecond,
			Visible: 250 * time.Millisecond,
			Settle:  0,
		},
		Staircase: StaircaseConfig{
			Count:       2,
			StartValues: []float64{0.005, 0.8},
			Scale:       "log",
			Reversals:   7,
		},
		Frequencies: FrequencyConfig{
			Min:    0.5,
			Max:    32,
			Trials: 13,
		},
		Demo: DemoConfig{
			Contrasts:   []float64{0.08, 0.16, 0.32, 0.64},
			Frequencies: []float64{2, 4, 6, 8, 16},
		},
		Audio: AudioConfig{
			Enabled: true,
			ToneHz:  880,
			Length:  120 * time.Millisecond,
			Volume:  0.4,
		},
		LogLevel: "info",
	}
}
