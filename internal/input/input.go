// Package input defines the discrete events the experiment reacts to and the
// default key bindings that produce them.
package input

import (
	"fmt"

	"CSF/internal/response"
	"CSF/internal/stim"
)

// Kind classifies an event.
type Kind int

const (
	Continue Kind = iota + 1
	Abort
	Guess
	Yes
	No
)

var kindNames = map[Kind]string{
	Continue: "continue",
	Abort:    "abort",
	Guess:    "guess",
	Yes:      "yes",
	No:       "no",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one discrete subject action. Direction is set for Guess events.
type Event struct {
	Kind      Kind
	Direction response.Guess
}

// GuessOf returns a guess event naming loc.
func GuessOf(loc stim.Location) Event {
	return Event{Kind: Guess, Direction: response.GuessAt(loc)}
}

// UnsureGuess is the guess event for a stimulus the subject did not see.
func UnsureGuess() Event {
	return Event{Kind: Guess, Direction: response.Unsure}
}

func (e Event) String() string {
	if e.Kind == Guess {
		return "guess:" + e.Direction.String()
	}
	return e.Kind.String()
}

// Bindings maps key names to events.
type Bindings map[string]Event

// DefaultBindings returns the arrow and numpad layout used by the test
// station. Z answers "not seen".
func DefaultBindings() Bindings {
	return Bindings{
		"Space":       {Kind: Continue},
		"Enter":       {Kind: Continue},
		"Escape":      {Kind: Abort},
		"Y":           {Kind: Yes},
		"N":           {Kind: No},
		"ArrowUp":     GuessOf(stim.Up),
		"ArrowRight":  GuessOf(stim.Right),
		"ArrowDown":   GuessOf(stim.Down),
		"ArrowLeft":   GuessOf(stim.Left),
		"Numpad8":     GuessOf(stim.Up),
		"Numpad6":     GuessOf(stim.Right),
		"Numpad2":     GuessOf(stim.Down),
		"Numpad4":     GuessOf(stim.Left),
		"Z":           UnsureGuess(),
		"Numpad5":     UnsureGuess(),
		"NumpadEnter": {Kind: Continue},
	}
}

// Lookup returns the event bound to the key name.
func (b Bindings) Lookup(key string) (Event, bool) {
	ev, ok := b[key]
	return ev, ok
}

// Keys returns the bound key names.
func (b Bindings) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	return keys
}
