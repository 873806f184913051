package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CSF/internal/presentation"
	"CSF/internal/staircase"
	"CSF/internal/stim"
)

type nopRenderer struct{}

func (nopRenderer) Show(stim.Location, stim.Params) {}
func (nopRenderer) Hide(stim.Location)              {}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(EnvName(k.key), "")
		if k.alias != "" {
			t.Setenv(k.alias, "")
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(&cfg))
	assert.Greater(t, cfg.Geometry().Nyquist(), cfg.Frequencies.Max)
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	want := Default()
	assert.Equal(t, &want, cfg)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "station.yaml", `
display:
  distance_mm: 1000
  width_mm: 520
  width_px: 1920
  height_px: 1080
timing:
  visible: 500ms
  settle: 1s
staircase:
  count: 3
  start_values: [0.01, 0.2, 0.9]
  scale: linear
  reversals: 5
  escape:
    wrong_streak: 9
    above: 0.8
    result: 1
frequencies:
  list: [1, 2, 4]
seed: 42
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Display.DistanceMM)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.Visible)
	assert.Equal(t, time.Second, cfg.Timing.Settle)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timing.PreStim, "unset fields keep defaults")
	assert.Equal(t, int64(42), cfg.Seed)

	tc := cfg.Trial()
	assert.Equal(t, []float64{1, 2, 4}, tc.Frequencies)
	assert.Equal(t, staircase.Linear, tc.Scale)
	assert.Equal(t, 3, tc.Staircases)
	assert.Equal(t, 5, tc.Reversals)
	require.NotNil(t, tc.Escape)
	assert.Equal(t, staircase.DefaultEscape, *tc.Escape)
	assert.Equal(t, 2.0, tc.PatchSizeDeg)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDistanceMM, "1200")
	t.Setenv(EnvVisible, "300ms")
	t.Setenv(EnvSeed, "7")
	t.Setenv(EnvGPU, "true")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, cfg.Display.DistanceMM)
	assert.Equal(t, 300*time.Millisecond, cfg.Timing.Visible)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.True(t, cfg.Render.GPU)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv(EnvWidthPx, "wide")
	_, err = Load("")
	assert.ErrorContains(t, err, "width_px")
}

func TestLoadCanonicalEnvironmentNames(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, "CSF_TIMING_PRE_STIM", EnvName("timing.pre_stim"))

	t.Setenv(EnvName("timing.pre_stim"), "1s")
	t.Setenv(EnvName("stimulus.eccentricity_deg"), "3.5")
	t.Setenv(EnvName("render.workers"), "4")
	t.Setenv(EnvName("display.distance_mm"), "900")
	t.Setenv(EnvDistanceMM, "1100")

	cfg, err := Load(writeFile(t, "station.yaml", "display:\n  width_mm: 520\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Timing.PreStim)
	assert.Equal(t, 3.5, cfg.Stimulus.EccentricityDeg)
	assert.Equal(t, 4, cfg.Render.Workers)
	assert.Equal(t, 900.0, cfg.Display.DistanceMM, "the canonical name wins over the alias")
	assert.Equal(t, 520.0, cfg.Display.WidthMM, "file values survive an unrelated override")
	assert.Equal(t, 2560, cfg.Display.WidthPx)
	assert.Equal(t, Default().Staircase, cfg.Staircase)
}

func TestDefaultTimingAnswerCycle(t *testing.T) {
	cfg := Default()
	timer, err := presentation.NewTimer(presentation.Config{
		PreStim:  cfg.Timing.PreStim,
		Visible:  cfg.Timing.Visible,
		Settle:   cfg.Timing.Settle,
		Renderer: nopRenderer{},
		Rand:     rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	// An answer arms the next presentation straight away.
	require.NoError(t, timer.Show(stim.Params{Frequency: 4, Cycles: 8, Contrast: 0.5}))
	start := timer.Now()
	for !timer.AcceptingResponses() {
		timer.Advance(time.Millisecond)
	}
	assert.Equal(t, 1750*time.Millisecond, timer.Now()-start)
	assert.Equal(t, timer.LastTimeline().Hidden, timer.Now(), "answers open as the grating disappears")
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "display: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeFile(t, "neg.yaml", "display:\n  distance_mm: -5\n"))
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "display.distance_mm", verr.Field)

	_, err = Load(writeFile(t, "count.yaml", "staircase:\n  count: 3\n"))
	assert.ErrorIs(t, err, staircase.ErrStartValueCount)

	_, err = Load(writeFile(t, "scale.yaml", "staircase:\n  scale: cubic\n"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "staircase.scale", verr.Field)

	_, err = Load(writeFile(t, "zero.yaml", "staircase:\n  start_values: [0, 0.8]\n"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "staircase.start_values[0]", verr.Field)

	_, err = Load(writeFile(t, "zero-linear.yaml", "staircase:\n  start_values: [0, 0.8]\n  scale: linear\n"))
	assert.NoError(t, err)

	_, err = Load(writeFile(t, "range.yaml", "frequencies:\n  min: 8\n  max: 4\n"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "frequencies.max", verr.Field)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "CSF_CONFIG_TEST_VALUE"
	t.Setenv(key, "placeholder")
	require.NoError(t, os.Unsetenv(key))

	path := writeFile(t, "station.env", key+"=from-file\n")
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
}
