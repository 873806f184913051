// Package presentation sequences a single grating presentation: a blank
// pre-stimulus wait, the visible window and the hidden phase in which the
// subject answers. The timer runs on a simulated clock advanced by the host
// loop, so every transition happens at an exact deadline regardless of frame
// pacing.
package presentation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CSF/internal/stim"
)

var (
	// ErrBusy is returned when a presentation is requested while another one
	// is still in flight.
	ErrBusy = errors.New("presentation already in progress")
	// ErrAborted is returned by every call made after Abort.
	ErrAborted = errors.New("presentation timer aborted")
	// ErrInvalidConfig is returned by NewTimer for unusable settings.
	ErrInvalidConfig = errors.New("invalid presentation configuration")
)

// State is the phase of the current presentation.
type State int

const (
	Idle State = iota
	PreStim
	Visible
	Hidden
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PreStim:
		return "prestim"
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Renderer makes a grating appear or disappear at a location.
type Renderer interface {
	Show(loc stim.Location, p stim.Params)
	Hide(loc stim.Location)
}

// Cue signals the subject that a stimulus is on screen.
type Cue interface {
	Play()
}

// Rand picks locations. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Config holds the presentation durations and collaborators.
type Config struct {
	PreStim time.Duration
	Visible time.Duration
	// Settle is the delay after the stimulus disappears before answers are
	// accepted.
	Settle time.Duration

	Renderer Renderer
	// Cue is optional.
	Cue    Cue
	Rand   Rand
	Logger *slog.Logger
}

// Timeline records when the last presentation passed each transition, on the
// timer's clock.
type Timeline struct {
	Shown   time.Duration
	Visible time.Duration
	Hidden  time.Duration
}

// Timer is the presentation state machine. It is not safe for concurrent use;
// the host loop is its only caller.
type Timer struct {
	cfg    Config
	logger *slog.Logger

	state    State
	now      time.Duration
	deadline time.Duration
	settleAt time.Duration
	settled  bool
	answered bool
	aborted  bool

	loc      stim.Location
	chosen   bool
	params   stim.Params
	timeline Timeline
	count    int
}

// NewTimer returns an idle timer.
func NewTimer(cfg Config) (*Timer, error) {
	if cfg.PreStim < 0 || cfg.Visible <= 0 || cfg.Settle < 0 {
		return nil, fmt.Errorf("%w: prestim %v, visible %v, settle %v",
			ErrInvalidConfig, cfg.PreStim, cfg.Visible, cfg.Settle)
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("%w: nil renderer", ErrInvalidConfig)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Timer{cfg: cfg, logger: logger}, nil
}

func (t *Timer) ready() error {
	if t.aborted {
		return ErrAborted
	}
	if t.state != Idle && t.state != Hidden {
		return fmt.Errorf("%w: timer is %s", ErrBusy, t.state)
	}
	return nil
}

// Choose draws the location of the next presentation. The stimulus for it can
// then be oriented before Show is called.
func (t *Timer) Choose() (stim.Location, error) {
	if err := t.ready(); err != nil {
		return t.loc, err
	}
	t.loc = stim.Locations[t.cfg.Rand.Intn(stim.NumLocations)]
	t.chosen = true
	return t.loc, nil
}

// Show starts a presentation of p at the chosen location, drawing one if
// Choose was not called. p is oriented for that location.
func (t *Timer) Show(p stim.Params) error {
	if err := t.ready(); err != nil {
		t.logger.Warn("presentation rejected", "error", err)
		return err
	}
	if !t.chosen {
		if _, err := t.Choose(); err != nil {
			return err
		}
	}
	t.chosen = false
	t.params = p.At(t.loc)
	t.answered = false
	t.settled = false
	t.state = PreStim
	t.deadline = t.now + t.cfg.PreStim
	t.timeline = Timeline{Shown: t.now}
	t.count++
	t.logger.Debug("presentation armed",
		"n", t.count, "location", t.loc, "contrast", t.params.Contrast, "frequency", t.params.Frequency)
	t.advanceTo(t.now)
	return nil
}

// Advance moves the clock forward by dt and performs every transition that
// falls due, each at its own deadline.
func (t *Timer) Advance(dt time.Duration) {
	if t.aborted || dt < 0 {
		return
	}
	t.advanceTo(t.now + dt)
}

func (t *Timer) advanceTo(target time.Duration) {
	for {
		switch {
		case t.state == PreStim && t.deadline <= target:
			t.now = t.deadline
			t.enterVisible()
		case t.state == Visible && t.deadline <= target:
			t.now = t.deadline
			t.enterHidden()
		case t.state == Hidden && !t.settled && t.settleAt <= target:
			t.now = t.settleAt
			t.settled = true
			t.logger.Debug("accepting responses", "n", t.count, "at", t.now)
		default:
			t.now = target
			return
		}
	}
}

func (t *Timer) enterVisible() {
	t.state = Visible
	t.deadline = t.now + t.cfg.Visible
	t.timeline.Visible = t.now
	t.cfg.Renderer.Show(t.loc, t.params)
	if t.cfg.Cue != nil {
		t.cfg.Cue.Play()
	}
	t.logger.Debug("stimulus visible", "n", t.count, "location", t.loc, "at", t.now)
}

func (t *Timer) enterHidden() {
	t.state = Hidden
	t.settleAt = t.now + t.cfg.Settle
	t.timeline.Hidden = t.now
	t.cfg.Renderer.Hide(t.loc)
	t.logger.Debug("stimulus hidden", "n", t.count, "location", t.loc, "at", t.now)
}

// Abort discards the pending deadlines and hides a visible stimulus. Every
// later call is a no-op or returns ErrAborted.
func (t *Timer) Abort() {
	if t.aborted {
		return
	}
	if t.state == Visible {
		t.cfg.Renderer.Hide(t.loc)
	}
	t.aborted = true
	t.state = Idle
	t.chosen = false
	t.logger.Debug("presentation timer aborted", "n", t.count, "at", t.now)
}

// Visible returns the location of the stimulus currently on screen.
func (t *Timer) Visible() (stim.Location, bool) {
	if t.state != Visible {
		return 0, false
	}
	return t.loc, true
}

// AcceptingResponses reports whether an answer to the last presentation may
// be taken now.
func (t *Timer) AcceptingResponses() bool {
	return !t.aborted && t.state == Hidden && t.settled && !t.answered
}

// MarkResponded closes the answer window of the current presentation.
func (t *Timer) MarkResponded() { t.answered = true }

// Location is the location of the last presentation, or the chosen location
// of the next one.
func (t *Timer) Location() stim.Location { return t.loc }

// Params returns the parameters of the last presentation.
func (t *Timer) Params() stim.Params { return t.params }

// State is the current presentation state.
func (t *Timer) State() State { return t.state }

// Now is the timer's clock, advanced only by Advance.
func (t *Timer) Now() time.Duration { return t.now }

// Aborted reports whether Abort has been called.
func (t *Timer) Aborted() bool { return t.aborted }

// Presentations counts the calls to Show that started a presentation.
func (t *Timer) Presentations() int { return t.count }

// LastTimeline returns the transition times of the last presentation.
func (t *Timer) LastTimeline() Timeline { return t.timeline }

// Answered reports whether the last presentation has been responded to.
func (t *Timer) Answered() bool { return t.answered }
