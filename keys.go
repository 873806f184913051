package main

import (
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"CSF/internal/input"
)

// pollEvents returns the bound events for keys pressed since the last tick,
// in the order ebiten reports them.
func (g *Game) pollEvents() []input.Event {
	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	g.events = g.events[:0]
	for _, k := range g.keys {
		if ev, ok := g.bindings.Lookup(k.String()); ok {
			g.events = append(g.events, ev)
		}
	}
	return g.events
}
