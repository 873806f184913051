package trial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CSF/internal/staircase"
	"CSF/internal/stim"
)

func testConfig() Config {
	return Config{
		Frequencies:  []float64{1, 2, 4},
		Staircases:   2,
		StartValues:  []float64{0.005, 0.8},
		Scale:        staircase.Log,
		Reversals:    3,
		PatchSizeDeg: 2,
	}
}

func newTestSequencer(t *testing.T, cfg Config, seed int64) *Sequencer {
	t.Helper()
	s, err := New(cfg, 60, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return s
}

// runTrial answers as an observer whose threshold is 0.1 until the current
// frequency finishes, returning the number of responses given.
func runTrial(t *testing.T, s *Sequencer) int {
	t.Helper()
	start := s.Trial()
	for n := 1; n < 10000; n++ {
		loc := stim.Locations[n%stim.NumLocations]
		_, err := s.NextStim(s.Params().Contrast > 0.1, loc)
		require.NoError(t, err)
		if s.TestOver() || s.Trial() != start {
			return n
		}
	}
	t.Fatal("trial never finished")
	return 0
}

func TestSequencerCollectsOneEntryPerFrequency(t *testing.T) {
	s := newTestSequencer(t, testConfig(), 1)
	assert.ElementsMatch(t, []float64{1, 2, 4}, s.Frequencies())

	for i := 0; i < 3; i++ {
		freq := s.Frequency()
		assert.False(t, s.TestOver())
		runTrial(t, s)

		results := s.Results()
		assert.Len(t, results, i+1)
		require.Contains(t, results, freq)
		assert.Len(t, results[freq], 2)

		if i < 2 {
			assert.True(t, s.TrialOver())
			assert.False(t, s.TestOver())
			assert.Equal(t, i+1, s.Trial())
			s.Resume()
			assert.False(t, s.TrialOver())
		}
	}

	assert.True(t, s.TestOver())
	assert.False(t, s.TrialOver())
	assert.ElementsMatch(t, []float64{1, 2, 4}, s.Results().Frequencies())

	_, err := s.NextStim(true, stim.Up)
	assert.ErrorIs(t, err, ErrTestOver)
	assert.Len(t, s.Results(), 3)
}

func TestSequencerTrialOverLastsOneRound(t *testing.T) {
	s := newTestSequencer(t, testConfig(), 2)
	runTrial(t, s)
	require.True(t, s.TrialOver())

	_, err := s.NextStim(true, stim.Left)
	require.NoError(t, err)
	assert.False(t, s.TrialOver())
}

func TestSequencerNewPoolPerFrequency(t *testing.T) {
	s := newTestSequencer(t, testConfig(), 3)
	runTrial(t, s)

	pool := s.Pool()
	assert.False(t, pool.Done())
	assert.False(t, pool.Started())
	assert.Equal(t, pool.Value(), s.Params().Contrast)
	assert.Contains(t, []float64{0.005, 0.8}, s.Params().Contrast)
	assert.Equal(t, s.Frequency(), s.Params().Frequency)
}

func TestSequencerStimulusParameters(t *testing.T) {
	s := newTestSequencer(t, testConfig(), 4)
	freq := s.Frequency()

	seen := map[float64]bool{}
	for i := 0; i < 40 && !s.Pool().Done(); i++ {
		loc := stim.Locations[i%stim.NumLocations]
		p, err := s.NextStim(i%3 != 0, loc)
		require.NoError(t, err)
		if s.TrialOver() {
			break
		}
		assert.Equal(t, freq, p.Frequency)
		assert.Equal(t, freq*2, p.Cycles)
		assert.Equal(t, stim.OrientationFor(loc), p.Orientation)
		assert.Contains(t, stim.Phases, p.Phase)
		assert.Equal(t, s.Pool().Value(), p.Contrast)
		seen[p.Phase] = true
	}
	assert.Greater(t, len(seen), 1, "phase should be re-drawn")

	up := s.Stimulus(stim.Up)
	right := s.Stimulus(stim.Right)
	assert.Equal(t, stim.OrientationVertical, up.Orientation)
	assert.Equal(t, stim.OrientationHorizontal, right.Orientation)
	assert.Equal(t, up.Contrast, right.Contrast)
}

func TestSequencerRejectsInvalidLocation(t *testing.T) {
	s := newTestSequencer(t, testConfig(), 5)
	before := s.Params()
	_, err := s.NextStim(true, stim.Location(9))
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.Equal(t, before, s.Params())
	assert.False(t, s.Pool().Started())
}

func TestSequencerGeometricFrequencies(t *testing.T) {
	cfg := testConfig()
	cfg.Frequencies = nil
	cfg.MinFrequency = 0.5
	cfg.MaxFrequency = 32
	cfg.Trials = 13
	s := newTestSequencer(t, cfg, 6)

	freqs := Results{}
	for _, f := range s.Frequencies() {
		freqs[f] = nil
	}
	sorted := freqs.Frequencies()
	require.Len(t, sorted, 13)
	assert.InDelta(t, 0.5, sorted[0], 1e-9)
	assert.InDelta(t, 32, sorted[12], 1e-9)
	ratio := sorted[1] / sorted[0]
	for i := 2; i < len(sorted); i++ {
		assert.InDelta(t, ratio, sorted[i]/sorted[i-1], 1e-9)
	}
	assert.InDelta(t, math.Pow(2, 0.5), ratio, 1e-9)
}

func TestNewSequencerConfigurationErrors(t *testing.T) {
	rng := func() *rand.Rand { return rand.New(rand.NewSource(1)) }

	cfg := testConfig()
	_, err := New(cfg, 3.9, rng())
	assert.ErrorIs(t, err, ErrResolutionLimit)

	_, err = New(cfg, 0, rng())
	assert.ErrorIs(t, err, ErrResolutionLimit)

	cfg = testConfig()
	cfg.StartValues = []float64{0.5}
	_, err = New(cfg, 60, rng())
	assert.ErrorIs(t, err, staircase.ErrStartValueCount)

	cfg = testConfig()
	cfg.Frequencies = []float64{1, 2, 1}
	_, err = New(cfg, 60, rng())
	assert.ErrorIs(t, err, ErrDuplicateFrequency)

	cfg = testConfig()
	cfg.Frequencies = nil
	cfg.Trials = 0
	_, err = New(cfg, 60, rng())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.PatchSizeDeg = 0
	_, err = New(cfg, 60, rng())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.Reversals = 1
	_, err = New(cfg, 60, rng())
	assert.ErrorIs(t, err, staircase.ErrInvalidConfig)

	_, err = New(testConfig(), 60, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResultsSummary(t *testing.T) {
	r := Results{
		4: {0.2, 0.1},
		1: {0.01, 0.03},
		2: {0, 0},
	}
	points := r.Summary()
	require.Len(t, points, 3)
	assert.Equal(t, []float64{1, 2, 4}, []float64{points[0].Frequency, points[1].Frequency, points[2].Frequency})
	assert.InDelta(t, 0.02, points[0].Mean, 1e-12)
	assert.InDelta(t, 50, points[0].Sensitivity, 1e-9)
	assert.InDelta(t, 0.01, points[0].Spread, 1e-12)
	assert.True(t, math.IsInf(points[1].Sensitivity, 1))
	assert.InDelta(t, 0.15, points[2].Mean, 1e-12)

	clone := r.Clone()
	clone[4][0] = 99
	assert.Equal(t, 0.2, r[4][0])
}
