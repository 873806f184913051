package session

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"CSF/internal/input"
	"CSF/internal/presentation"
	"CSF/internal/response"
	"CSF/internal/stim"
)

// DemoConfig assembles a practice session.
type DemoConfig struct {
	// Contrasts and Frequencies are drawn from at random for each practice
	// presentation.
	Contrasts    []float64
	Frequencies  []float64
	PatchSizeDeg float64

	PreStim time.Duration
	Visible time.Duration
	Settle  time.Duration

	Renderer presentation.Renderer
	Cue      presentation.Cue
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// Outcome is the result of one practice presentation.
type Outcome struct {
	Params    stim.Params
	Displayed stim.Location
	Guess     response.Guess
	Correct   bool
}

// Demo lets a subject practise with clearly visible gratings and tells them
// after every answer whether it was right.
type Demo struct {
	cfg     DemoConfig
	logger  *slog.Logger
	timer   *presentation.Timer
	arbiter *response.Arbiter

	phase  Phase
	closed bool
	last   Outcome
	rounds int
	right  int
}

// NewDemo validates cfg and returns a demo on its instruction page.
func NewDemo(cfg DemoConfig) (*Demo, error) {
	if cfg.Rand == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	if len(cfg.Contrasts) == 0 || len(cfg.Frequencies) == 0 {
		return nil, fmt.Errorf("%w: demo needs contrasts and frequencies", ErrInvalidConfig)
	}
	for _, c := range cfg.Contrasts {
		if c <= 0 || c > 1 {
			return nil, fmt.Errorf("%w: demo contrast %v", ErrInvalidConfig, c)
		}
	}
	if cfg.PatchSizeDeg <= 0 {
		return nil, fmt.Errorf("%w: patch size %v deg", ErrInvalidConfig, cfg.PatchSizeDeg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("mode", "demo")
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
	return &Demo{
		cfg:     cfg,
		logger:  logger,
		timer:   timer,
		arbiter: response.NewArbiter(timer, logger),
	}, nil
}

// Handle applies one subject event.
func (d *Demo) Handle(ev input.Event) {
	if d.closed {
		return
	}
	if ev.Kind == input.Abort {
		d.timer.Abort()
		d.phase = Aborted
		d.closed = true
		return
	}
	switch d.phase {
	case Instructions:
		if ev.Kind == input.Continue {
			d.present()
		}
	case Running:
		if ev.Kind == input.Guess {
			d.answer(ev.Direction)
		}
	case Feedback:
		switch ev.Kind {
		case input.Yes, input.Continue:
			d.present()
		case input.No:
			d.phase = Finished
			d.logger.Info("demo finished", "rounds", d.rounds, "correct", d.right)
		}
	case Finished:
		if ev.Kind == input.Continue {
			d.closed = true
		}
	}
}

func (d *Demo) present() {
	loc, err := d.timer.Choose()
	if err != nil {
		d.logger.Error("choosing location", "error", err)
		return
	}
	rng := d.cfg.Rand
	freq := d.cfg.Frequencies[rng.Intn(len(d.cfg.Frequencies))]
	p := stim.Params{
		Frequency:   freq,
		Cycles:      freq * d.cfg.PatchSizeDeg,
		Orientation: stim.OrientationFor(loc),
		Phase:       stim.Phases[rng.Intn(len(stim.Phases))],
		Contrast:    d.cfg.Contrasts[rng.Intn(len(d.cfg.Contrasts))],
	}
	if err := d.timer.Show(p); err != nil {
		d.logger.Error("starting presentation", "error", err)
		return
	}
	d.phase = Running
	d.rounds++
}

func (d *Demo) answer(g response.Guess) {
	displayed := d.timer.Location()
	correct, ok := d.arbiter.Resolve(g, displayed)
	if !ok {
		return
	}
	if correct {
		d.right++
	}
	d.last = Outcome{Params: d.timer.Params(), Displayed: displayed, Guess: g, Correct: correct}
	d.phase = Feedback
}

// Tick advances the presentation clock during a practice presentation.
func (d *Demo) Tick(dt time.Duration) {
	if d.phase == Running {
		d.timer.Advance(dt)
	}
}

// Phase is the demo's current page.
func (d *Demo) Phase() Phase { return d.phase }

// Closed reports whether the subject has left the demo.
func (d *Demo) Closed() bool { return d.closed }

// Fixation reports whether the fixation cross should be drawn.
func (d *Demo) Fixation() bool { return d.phase == Running }

// Timer exposes the presentation timer for drawing.
func (d *Demo) Timer() *presentation.Timer { return d.timer }

// Last is the outcome of the most recent answered presentation.
func (d *Demo) Last() Outcome { return d.last }

// Rounds returns the number of presentations and correct answers so far.
func (d *Demo) Rounds() (total, correct int) { return d.rounds, d.right }
