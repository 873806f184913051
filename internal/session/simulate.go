package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CSF/internal/input"
	"CSF/internal/observer"
	"CSF/internal/stim"
)

// ErrStalled is returned by Simulate when the session stops making progress.
var ErrStalled = errors.New("simulated session stalled")

// NopRenderer is a presentation.Renderer that draws nothing, for headless
// runs.
type NopRenderer struct{}

// Show does nothing.
func (NopRenderer) Show(stim.Location, stim.Params) {}

// Hide does nothing.
func (NopRenderer) Hide(stim.Location) {}

// SimulationStats summarises a headless run.
type SimulationStats struct {
	Presentations int
	Responses     int
	Correct       int
	// Elapsed is the simulated time spent presenting.
	Elapsed time.Duration
}

// maxIdleFrames bounds the frames spent waiting for one presentation.
const maxIdleFrames = 1 << 20

// Simulate runs s to completion against obs, advancing the clock by frame per
// step and pressing continue at every break.
func Simulate(ctx context.Context, s *Session, obs observer.Observer, frame time.Duration) (SimulationStats, error) {
	if frame <= 0 {
		return SimulationStats{}, fmt.Errorf("%w: frame %v", ErrInvalidConfig, frame)
	}
	var stats SimulationStats
	s.Handle(input.Event{Kind: input.Continue})

	idle := 0
	for s.Phase() != Finished && s.Phase() != Aborted {
		if err := ctx.Err(); err != nil {
			s.Handle(input.Event{Kind: input.Abort})
			return stats, err
		}
		switch s.Phase() {
		case Break:
			s.Handle(input.Event{Kind: input.Continue})
			continue
		case Running:
		default:
			return stats, fmt.Errorf("%w: unexpected phase %s", ErrStalled, s.Phase())
		}

		s.Tick(frame)
		stats.Elapsed += frame
		idle++
		timer := s.Timer()
		if timer.AcceptingResponses() {
			guess := obs.Answer(timer.Params(), timer.Location())
			s.Handle(input.Event{Kind: input.Guess, Direction: guess})
			idle = 0
		}
		if idle > maxIdleFrames {
			return stats, fmt.Errorf("%w after %d frames in %s", ErrStalled, idle, timer.State())
		}
	}

	stats.Presentations = s.Timer().Presentations()
	stats.Responses, stats.Correct = s.Responses()
	return stats, nil
}
