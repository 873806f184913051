// Package session drives a contrast sensitivity test from the subject's point
// of view: the instruction page, the presentations of every frequency, the
// breaks between them and the final page. It owns the trial sequencer, the
// presentation timer and the response arbiter and is advanced by the host
// loop through Handle and Tick.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"CSF/internal/input"
	"CSF/internal/presentation"
	"CSF/internal/response"
	"CSF/internal/stim"
	"CSF/internal/trial"
)

// Phase is the page the subject is looking at.
type Phase int

const (
	Instructions Phase = iota
	Running
	Break
	Feedback
	Finished
	Aborted
)

var phaseNames = [...]string{"instructions", "running", "break", "feedback", "finished", "aborted"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Runner is the surface the window shell drives. Session and Demo implement
// it.
type Runner interface {
	Handle(ev input.Event)
	Tick(dt time.Duration)
	Phase() Phase
	Closed() bool
	Fixation() bool
	Timer() *presentation.Timer
}

// ErrInvalidConfig is returned for a session that cannot be started.
var ErrInvalidConfig = errors.New("invalid session configuration")

// Config assembles a test session.
type Config struct {
	Trial trial.Config
	// ResolutionLimit is the display's highest renderable frequency (c/deg).
	ResolutionLimit float64

	PreStim time.Duration
	Visible time.Duration
	Settle  time.Duration

	Renderer presentation.Renderer
	Cue      presentation.Cue
	Rand     *rand.Rand
	Logger   *slog.Logger

	// OnComplete receives the thresholds once, when the last frequency
	// finishes.
	OnComplete func(trial.Results)
}

// Session is one subject's run through every frequency.
type Session struct {
	id      uuid.UUID
	logger  *slog.Logger
	seq     *trial.Sequencer
	timer   *presentation.Timer
	arbiter *response.Arbiter

	onComplete func(trial.Results)
	phase      Phase
	closed     bool
	completed  bool

	responses int
	correct   int
}

// New builds the sequencer, timer and arbiter for a session. Configuration
// errors, including a frequency above the resolution limit, are returned
// before anything is shown.
func New(cfg Config) (*Session, error) {
	if cfg.Rand == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	id := uuid.New()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("session_id", id.String())

	tc := cfg.Trial
	tc.Logger = logger
	seq, err := trial.New(tc, cfg.ResolutionLimit, cfg.Rand)
	if err != nil {
		return nil, fmt.Errorf("creating trial sequence: %w", err)
	}
	timer, err := presentation.NewTimer(presentation.Config{
		PreStim:  cfg.PreStim,
		Visible:  cfg.Visible,
		Settle:   cfg.Settle,
		Renderer: cfg.Renderer,
		Cue:      cfg.Cue,
		Rand:     cfg.Rand,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating presentation timer: %w", err)
	}

	logger.Info("session created", "frequencies", seq.Frequencies(), "resolution_limit", cfg.ResolutionLimit)
	return &Session{
		id:         id,
		logger:     logger,
		seq:        seq,
		timer:      timer,
		arbiter:    response.NewArbiter(timer, logger),
		onComplete: cfg.OnComplete,
	}, nil
}

// Handle applies one subject event. Events that mean nothing in the current
// phase are ignored.
func (s *Session) Handle(ev input.Event) {
	if s.closed {
		return
	}
	if ev.Kind == input.Abort {
		s.abort()
		return
	}
	switch s.phase {
	case Instructions:
		if ev.Kind == input.Continue {
			s.phase = Running
			s.presentFirst()
		}
	case Running:
		if ev.Kind == input.Guess {
			s.answer(ev.Direction)
		}
	case Break:
		if ev.Kind == input.Continue {
			s.seq.Resume()
			s.phase = Running
			s.show(s.seq.Params())
		}
	case Finished:
		if ev.Kind == input.Continue {
			s.closed = true
		}
	}
}

// Tick advances the presentation clock while presentations are running.
func (s *Session) Tick(dt time.Duration) {
	if s.phase == Running {
		s.timer.Advance(dt)
	}
}

func (s *Session) presentFirst() {
	loc, err := s.timer.Choose()
	if err != nil {
		s.logger.Error("choosing location", "error", err)
		return
	}
	s.show(s.seq.Stimulus(loc))
}

func (s *Session) answer(g response.Guess) {
	displayed := s.timer.Location()
	correct, ok := s.arbiter.Resolve(g, displayed)
	if !ok {
		return
	}
	s.responses++
	if correct {
		s.correct++
	}

	next, err := s.timer.Choose()
	if err != nil {
		s.logger.Error("choosing location", "error", err)
		return
	}
	params, err := s.seq.NextStim(correct, next)
	if err != nil {
		s.logger.Error("advancing trial", "error", err)
		return
	}

	switch {
	case s.seq.TestOver():
		s.finish()
	case s.seq.TrialOver():
		s.phase = Break
		s.logger.Info("break", "completed", s.seq.Trial(), "of", s.seq.Trials())
	default:
		s.show(params)
	}
}

func (s *Session) show(p stim.Params) {
	if err := s.timer.Show(p); err != nil {
		s.logger.Error("starting presentation", "error", err)
	}
}

func (s *Session) finish() {
	s.phase = Finished
	if s.completed {
		return
	}
	s.completed = true
	results := s.seq.Results()
	s.logger.Info("session complete",
		"frequencies", len(results),
		"responses", s.responses,
		"correct", s.correct)
	if s.onComplete != nil {
		s.onComplete(results)
	}
}

func (s *Session) abort() {
	if s.phase == Finished {
		s.closed = true
		return
	}
	s.logger.Warn("session aborted",
		"phase", s.phase,
		"trial", s.seq.Trial()+1,
		"responses", s.responses)
	s.timer.Abort()
	s.phase = Aborted
	s.closed = true
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Phase is the current page.
func (s *Session) Phase() Phase { return s.phase }

// Closed reports whether the window may close.
func (s *Session) Closed() bool { return s.closed }

// Fixation reports whether the fixation cross is on screen.
func (s *Session) Fixation() bool { return s.phase == Running }

// Timer exposes the presentation timer.
func (s *Session) Timer() *presentation.Timer { return s.timer }

// Sequencer exposes the trial sequencer.
func (s *Session) Sequencer() *trial.Sequencer { return s.seq }

// Progress returns the one-based frequency number and the frequency count.
func (s *Session) Progress() (n, of int) { return s.seq.Trial() + 1, s.seq.Trials() }

// Responses returns the number of accepted answers and how many were right.
func (s *Session) Responses() (total, correct int) { return s.responses, s.correct }

var (
	_ Runner = (*Session)(nil)
	_ Runner = (*Demo)(nil)
)
