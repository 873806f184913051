// Package trial walks a subject through the spatial frequencies of a contrast
// sensitivity test, running one interleaved staircase pool per frequency and
// collecting the thresholds each pool converges on.
package trial

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"

	"CSF/internal/staircase"
	"CSF/internal/stim"
)

var (
	// ErrResolutionLimit is returned when the highest requested spatial
	// frequency cannot be rendered on the display at the viewing distance.
	ErrResolutionLimit = errors.New("maximum spatial frequency exceeds the display resolution limit")
	// ErrDuplicateFrequency is returned when a frequency would be tested twice.
	ErrDuplicateFrequency = errors.New("duplicate spatial frequency")
	// ErrInvalidConfig is returned for settings that cannot describe a test.
	ErrInvalidConfig = errors.New("invalid trial configuration")
	// ErrTestOver is returned by NextStim once every frequency is finished.
	ErrTestOver = errors.New("test is over")
	// ErrInvalidLocation is returned for a displayed location outside the
	// fixed set.
	ErrInvalidLocation = errors.New("invalid stimulus location")
)

// Config describes the frequencies to test and the staircases used for each.
type Config struct {
	// Frequencies lists the spatial frequencies (c/deg) to test. When empty,
	// Trials frequencies are spaced geometrically from MinFrequency to
	// MaxFrequency.
	Frequencies  []float64
	MinFrequency float64
	MaxFrequency float64
	Trials       int

	// Staircases is the number of interleaved staircases per frequency and
	// StartValues holds one start contrast for each.
	Staircases  int
	StartValues []float64
	Scale       staircase.Scale
	// Steps defaults to staircase.StepsFor(Scale, Reversals).
	Steps     []float64
	Reversals int
	Escape    *staircase.Escape

	// PatchSizeDeg converts cycles per degree into cycles across the patch.
	PatchSizeDeg float64
	// Phases defaults to stim.Phases.
	Phases []float64

	Logger *slog.Logger
}

// Sequencer owns the randomized frequency order and the staircase pool of the
// frequency under test.
type Sequencer struct {
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand

	freqs   []float64
	trial   int
	pool    *staircase.Pool
	params  stim.Params
	results Results

	trialOver bool
	testOver  bool
}

// New builds the frequency sequence and the first staircase pool.
// resolutionLimit is the display's highest renderable frequency in c/deg.
func New(cfg Config, resolutionLimit float64, rng *rand.Rand) (*Sequencer, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	if cfg.Staircases != len(cfg.StartValues) {
		return nil, fmt.Errorf("%w: %d start values for %d staircases",
			staircase.ErrStartValueCount, len(cfg.StartValues), cfg.Staircases)
	}
	if cfg.PatchSizeDeg <= 0 {
		return nil, fmt.Errorf("%w: patch size %v deg", ErrInvalidConfig, cfg.PatchSizeDeg)
	}
	if len(cfg.Phases) == 0 {
		cfg.Phases = stim.Phases
	}
	if len(cfg.Steps) == 0 {
		cfg.Steps = staircase.StepsFor(cfg.Scale, cfg.Reversals)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	freqs, err := frequencies(cfg)
	if err != nil {
		return nil, err
	}
	if limit := slices.Max(freqs); resolutionLimit <= 0 || limit > resolutionLimit {
		return nil, fmt.Errorf("%w: %.2f c/deg requested, display resolves %.2f c/deg",
			ErrResolutionLimit, limit, resolutionLimit)
	}
	rng.Shuffle(len(freqs), func(i, j int) { freqs[i], freqs[j] = freqs[j], freqs[i] })

	template := staircase.Config{
		Scale:     cfg.Scale,
		Steps:     cfg.Steps,
		Reversals: cfg.Reversals,
		Escape:    cfg.Escape,
	}
	pool, err := staircase.NewPool(template, cfg.StartValues, rng)
	if err != nil {
		return nil, err
	}

	s := &Sequencer{
		cfg:     cfg,
		logger:  logger,
		rng:     rng,
		freqs:   freqs,
		pool:    pool,
		results: make(Results, len(freqs)),
	}
	s.params = s.build(stim.Up, pool.Value())
	logger.Debug("trial sequence ready", "frequencies", freqs, "staircases", cfg.Staircases)
	return s, nil
}

func frequencies(cfg Config) ([]float64, error) {
	var freqs []float64
	switch {
	case len(cfg.Frequencies) > 0:
		freqs = append(freqs, cfg.Frequencies...)
	case cfg.Trials <= 0:
		return nil, fmt.Errorf("%w: %d trials", ErrInvalidConfig, cfg.Trials)
	case cfg.MinFrequency <= 0 || cfg.MaxFrequency < cfg.MinFrequency:
		return nil, fmt.Errorf("%w: frequency range %v..%v", ErrInvalidConfig, cfg.MinFrequency, cfg.MaxFrequency)
	case cfg.Trials == 1:
		freqs = []float64{cfg.MinFrequency}
	default:
		freqs = floats.LogSpan(make([]float64, cfg.Trials), cfg.MinFrequency, cfg.MaxFrequency)
	}

	sorted := slices.Clone(freqs)
	slices.Sort(sorted)
	for i, f := range sorted {
		if f <= 0 {
			return nil, fmt.Errorf("%w: frequency %v", ErrInvalidConfig, f)
		}
		if i > 0 && f == sorted[i-1] {
			return nil, fmt.Errorf("%w: %v c/deg", ErrDuplicateFrequency, f)
		}
	}
	return freqs, nil
}

// NextStim records whether the subject located the last stimulus and returns
// the parameters of the next one, oriented for displayed.
//
// When the response finishes the current frequency its thresholds are stored
// and either TestOver is set or the next frequency begins with TrialOver set.
func (s *Sequencer) NextStim(correct bool, displayed stim.Location) (stim.Params, error) {
	if s.testOver {
		return s.params, ErrTestOver
	}
	if !displayed.Valid() {
		return s.params, fmt.Errorf("%w: %d", ErrInvalidLocation, int(displayed))
	}
	s.trialOver = false

	value, done := s.pool.Next(correct)
	if done {
		freq := s.Frequency()
		s.results[freq] = s.pool.Results()
		s.logger.Info("frequency finished",
			"trial", s.trial+1,
			"of", len(s.freqs),
			"frequency", freq,
			"thresholds", s.results[freq])

		if s.trial == len(s.freqs)-1 {
			s.testOver = true
			s.logger.Info("test finished", "frequencies", len(s.results))
			return s.params, nil
		}
		s.trial++
		if err := s.pool.Reset(s.cfg.StartValues); err != nil {
			return s.params, err
		}
		s.trialOver = true
		value = s.pool.Value()
	}

	s.params = s.build(displayed, value)
	return s.params, nil
}

func (s *Sequencer) build(loc stim.Location, contrast float64) stim.Params {
	freq := s.Frequency()
	return stim.Params{
		Frequency:   freq,
		Cycles:      freq * s.cfg.PatchSizeDeg,
		Orientation: stim.OrientationFor(loc),
		Phase:       s.cfg.Phases[s.rng.Intn(len(s.cfg.Phases))],
		Contrast:    contrast,
	}
}

// Stimulus returns the current parameters oriented for loc. It is used for
// the first presentation of each frequency, before any response exists.
func (s *Sequencer) Stimulus(loc stim.Location) stim.Params {
	return s.params.At(loc)
}

// Resume clears TrialOver after the break between frequencies.
func (s *Sequencer) Resume() { s.trialOver = false }

// TrialOver is true for the round in which a new frequency began.
func (s *Sequencer) TrialOver() bool { return s.trialOver }

// TestOver is true once every frequency has finished.
func (s *Sequencer) TestOver() bool { return s.testOver }

// Trial is the zero-based index of the frequency under test.
func (s *Sequencer) Trial() int { return s.trial }

// Trials is the number of frequencies in the test.
func (s *Sequencer) Trials() int { return len(s.freqs) }

// Frequency is the spatial frequency under test.
func (s *Sequencer) Frequency() float64 { return s.freqs[s.trial] }

// Frequencies returns the test order.
func (s *Sequencer) Frequencies() []float64 { return slices.Clone(s.freqs) }

// Params returns the parameters of the most recent stimulus.
func (s *Sequencer) Params() stim.Params { return s.params }

// Pool exposes the staircase pool of the current frequency.
func (s *Sequencer) Pool() *staircase.Pool { return s.pool }

// Results returns a copy of the thresholds collected so far.
func (s *Sequencer) Results() Results { return s.results.Clone() }
