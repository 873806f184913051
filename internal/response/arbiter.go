// Package response scores the subject's location guesses against the
// presentation they answer.
package response

import (
	"fmt"
	"log/slog"

	"CSF/internal/stim"
)

// Guess is a location guess. The first values coincide with stim.Location.
type Guess int

// Unsure is the "did not see it" answer. It is always scored as wrong.
const Unsure Guess = stim.NumLocations

// GuessAt returns the guess naming loc.
func GuessAt(loc stim.Location) Guess { return Guess(loc) }

// Location returns the location named by g, or false for Unsure.
func (g Guess) Location() (stim.Location, bool) {
	loc := stim.Location(g)
	return loc, loc.Valid()
}

// Valid reports whether g is a location or Unsure.
func (g Guess) Valid() bool {
	_, ok := g.Location()
	return ok || g == Unsure
}

func (g Guess) String() string {
	if g == Unsure {
		return "unsure"
	}
	if loc, ok := g.Location(); ok {
		return loc.String()
	}
	return fmt.Sprintf("guess(%d)", int(g))
}

// Gate tells the arbiter when an answer may be taken. presentation.Timer
// implements it.
type Gate interface {
	AcceptingResponses() bool
	MarkResponded()
}

// Arbiter accepts at most one guess per presentation and scores it.
type Arbiter struct {
	gate   Gate
	logger *slog.Logger

	accepted int
	dropped  int
}

// NewArbiter returns an arbiter guarded by gate. logger may be nil.
func NewArbiter(gate Gate, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Arbiter{gate: gate, logger: logger}
}

// Resolve scores guess against displayed. Guesses that arrive while the gate
// is closed are dropped with accepted=false and have no effect.
func (a *Arbiter) Resolve(guess Guess, displayed stim.Location) (correct, accepted bool) {
	if !guess.Valid() || !a.gate.AcceptingResponses() {
		a.dropped++
		a.logger.Debug("guess dropped", "guess", guess)
		return false, false
	}
	a.gate.MarkResponded()
	a.accepted++
	loc, ok := guess.Location()
	correct = ok && loc == displayed
	a.logger.Debug("guess scored", "guess", guess, "displayed", displayed, "correct", correct)
	return correct, true
}

// Accepted is the number of guesses scored so far.
func (a *Arbiter) Accepted() int { return a.accepted }

// Dropped is the number of guesses ignored so far.
func (a *Arbiter) Dropped() int { return a.dropped }
