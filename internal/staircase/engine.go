// Package staircase implements the adaptive one-up/one-down procedure that
// converges on a contrast detection threshold, and a pool that interleaves
// several such staircases at random.
package staircase

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidConfig is returned for staircase settings that can never
	// produce a threshold.
	ErrInvalidConfig = errors.New("invalid staircase configuration")
	// ErrStartValueCount is returned when the number of start values does not
	// match the number of staircases.
	ErrStartValueCount = errors.New("start value count does not match staircase count")
)

// discardedReversals is the number of leading reversal values treated as the
// startup transient and excluded from the threshold estimate.
const discardedReversals = 2

// Scale selects how a step is applied to the current value.
type Scale int

const (
	// Linear adds or subtracts the step.
	Linear Scale = iota
	// Log multiplies or divides by the step, which is a ratio >= 1.
	Log
)

func (s Scale) String() string {
	if s == Log {
		return "log"
	}
	return "linear"
}

// ParseScale accepts "linear", "lin", "log" or "logarithmic".
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "lin":
		return Linear, nil
	case "log", "logarithmic":
		return Log, nil
	}
	return Linear, fmt.Errorf("%w: unknown scale %q", ErrInvalidConfig, s)
}

// LinearSteps returns n step sizes spaced evenly from 0.5 down to 0.0015.
func LinearSteps(n int) []float64 {
	return span(n, 0.5, 0.0015, floats.Span)
}

// LogSteps returns n step ratios spaced geometrically from 10^0.3 down to
// 10^0.0075.
func LogSteps(n int) []float64 {
	return span(n, math.Pow(10, 0.3), math.Pow(10, 0.0075), floats.LogSpan)
}

// StepsFor returns the default step sequence for scale with n entries.
func StepsFor(scale Scale, n int) []float64 {
	if scale == Log {
		return LogSteps(n)
	}
	return LinearSteps(n)
}

func span(n int, first, last float64, fill func([]float64, float64, float64) []float64) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{first}
	}
	return fill(make([]float64, n), first, last)
}

// Escape ends a staircase early when the subject keeps failing at high
// contrast, which indicates the condition cannot be perceived at all.
type Escape struct {
	// WrongStreak is the number of consecutive incorrect responses that must
	// be exceeded.
	WrongStreak int
	// Above is the value the staircase must already exceed.
	Above float64
	// Result is reported as the threshold when the escape triggers.
	Result float64
}

// DefaultEscape mirrors the give-up rule used in earlier versions of the test.
var DefaultEscape = Escape{WrongStreak: 9, Above: 0.8, Result: 1.0}

// Config describes one staircase.
type Config struct {
	Start     float64
	Scale     Scale
	Steps     []float64
	Reversals int
	// Escape is optional; nil disables early termination.
	Escape *Escape
}

func (c Config) validate() error {
	if err := c.validStart(c.Start); err != nil {
		return err
	}
	if c.Reversals < discardedReversals {
		return fmt.Errorf("%w: need at least %d reversals, got %d", ErrInvalidConfig, discardedReversals, c.Reversals)
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("%w: empty step sequence", ErrInvalidConfig)
	}
	for i, s := range c.Steps {
		if c.Scale == Log && s < 1 {
			return fmt.Errorf("%w: log step %d is %v, must be >= 1", ErrInvalidConfig, i, s)
		}
		if c.Scale == Linear && s <= 0 {
			return fmt.Errorf("%w: linear step %d is %v, must be > 0", ErrInvalidConfig, i, s)
		}
	}
	if c.Escape != nil && c.Escape.WrongStreak < 1 {
		return fmt.Errorf("%w: escape wrong streak must be positive", ErrInvalidConfig)
	}
	return nil
}

// validStart rejects start values outside [0,1]. A log staircase cannot move
// away from zero, so it also needs a positive start.
func (c Config) validStart(start float64) error {
	if start < 0 || start > 1 || math.IsNaN(start) {
		return fmt.Errorf("%w: start value %v outside [0,1]", ErrInvalidConfig, start)
	}
	if c.Scale == Log && start == 0 {
		return fmt.Errorf("%w: log staircase cannot start at zero", ErrInvalidConfig)
	}
	return nil
}

// Engine is a single one-up/one-down staircase.
//
// A correct response lowers the value (harder), an incorrect one raises it.
// Each reversal of response direction records the value at which it happened
// and moves to the next, smaller step. The engine finishes on the call that
// produces reversal number Reversals+1.
type Engine struct {
	cfg Config

	value         float64
	stepIndex     int
	reversalCount int
	reversals     []float64
	previous      bool
	hasPrevious   bool
	wrongStreak   int

	finished bool
	result   float64
}

// NewEngine validates cfg and returns an engine positioned at cfg.Start.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Steps = append([]float64(nil), cfg.Steps...)
	if cfg.Escape != nil {
		esc := *cfg.Escape
		cfg.Escape = &esc
	}
	e := &Engine{cfg: cfg}
	e.restart(cfg.Start)
	return e, nil
}

// Reset restarts the staircase at start, keeping the step sequence and
// reversal target. An invalid start leaves the engine untouched.
func (e *Engine) Reset(start float64) error {
	if err := e.cfg.validStart(start); err != nil {
		return err
	}
	e.restart(start)
	return nil
}

func (e *Engine) restart(start float64) {
	e.cfg.Start = start
	e.value = start
	e.stepIndex = 0
	e.reversalCount = 0
	e.reversals = e.reversals[:0]
	e.previous = false
	e.hasPrevious = false
	e.wrongStreak = 0
	e.finished = false
	e.result = 0
}

// Next feeds one response into the staircase and returns the value to test
// next. done is true once the staircase has produced its result; further calls
// leave the engine untouched.
func (e *Engine) Next(correct bool) (value float64, done bool) {
	if e.finished {
		return e.value, true
	}

	if correct {
		e.wrongStreak = 0
	} else {
		e.wrongStreak++
	}
	if esc := e.cfg.Escape; esc != nil && e.wrongStreak > esc.WrongStreak && e.value > esc.Above {
		e.finish(esc.Result)
		return e.value, true
	}

	if e.hasPrevious && e.previous != correct {
		e.reversalCount++
		e.reversals = append(e.reversals, e.value)
		if e.stepIndex < len(e.cfg.Steps)-1 {
			e.stepIndex++
		}
	}
	e.previous = correct
	e.hasPrevious = true

	if e.reversalCount >= e.cfg.Reversals+1 {
		mean, err := stats.Mean(e.reversals[discardedReversals:])
		if err != nil {
			mean = e.value
		}
		e.finish(mean)
		return e.value, true
	}

	e.value = e.apply(correct)
	return e.value, false
}

func (e *Engine) apply(correct bool) float64 {
	step := e.cfg.Steps[e.stepIndex]
	v := e.value
	switch {
	case e.cfg.Scale == Log && correct:
		v /= step
	case e.cfg.Scale == Log:
		v *= step
	case correct:
		v -= step
	default:
		v += step
	}
	return clamp01(v)
}

func (e *Engine) finish(result float64) {
	e.finished = true
	e.result = result
}

// Value is the value to test next.
func (e *Engine) Value() float64 { return e.value }

// Start is the value the staircase began at.
func (e *Engine) Start() float64 { return e.cfg.Start }

// Finished reports whether the staircase has produced a result.
func (e *Engine) Finished() bool { return e.finished }

// Result returns the threshold estimate once the staircase has finished.
func (e *Engine) Result() (float64, bool) { return e.result, e.finished }

// StepIndex is the index of the step applied on the next update.
func (e *Engine) StepIndex() int { return e.stepIndex }

// ReversalCount is the number of reversals observed so far.
func (e *Engine) ReversalCount() int { return e.reversalCount }

// ReversalValues returns a copy of the recorded reversal values.
func (e *Engine) ReversalValues() []float64 {
	return append([]float64(nil), e.reversals...)
}

// WrongStreak is the number of consecutive incorrect responses.
func (e *Engine) WrongStreak() int { return e.wrongStreak }

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
