package session

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CSF/internal/input"
	"CSF/internal/observer"
	"CSF/internal/presentation"
	"CSF/internal/staircase"
	"CSF/internal/stim"
	"CSF/internal/trial"
)

const (
	preStim = 1500 * time.Millisecond
	visible = 250 * time.Millisecond
	settle  = 1750 * time.Millisecond
	frame   = 16 * time.Millisecond
)

type spyRenderer struct {
	shows, hides int
	lit          int
}

func (r *spyRenderer) Show(stim.Location, stim.Params) { r.shows++; r.lit++ }
func (r *spyRenderer) Hide(stim.Location)              { r.hides++; r.lit-- }

func testConfig(seed int64, r presentation.Renderer) Config {
	return Config{
		Trial: trial.Config{
			Frequencies:  []float64{1, 4, 16},
			Staircases:   2,
			StartValues:  []float64{0.005, 0.8},
			Scale:        staircase.Log,
			Reversals:    3,
			PatchSizeDeg: 2,
		},
		ResolutionLimit: 60,
		PreStim:         preStim,
		Visible:         visible,
		Settle:          settle,
		Renderer:        r,
		Rand:            rand.New(rand.NewSource(seed)),
	}
}

// waitForAnswerWindow ticks until the session accepts a guess.
func waitForAnswerWindow(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if s.Timer().AcceptingResponses() {
			return
		}
		s.Tick(frame)
	}
	t.Fatal("answer window never opened")
}

func TestSimulateDeliversResultsOnce(t *testing.T) {
	calls := 0
	var got trial.Results
	cfg := testConfig(1, NopRenderer{})
	cfg.OnComplete = func(r trial.Results) {
		calls++
		got = r
	}
	s, err := New(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID())

	stats, err := Simulate(context.Background(), s, observer.Threshold{Threshold: observer.Fixed(0.1)}, frame)
	require.NoError(t, err)

	assert.Equal(t, Finished, s.Phase())
	assert.Equal(t, 1, calls)
	assert.ElementsMatch(t, []float64{1, 4, 16}, got.Frequencies())
	for f, th := range got {
		assert.Len(t, th, 2, "frequency %v", f)
	}
	assert.Equal(t, stats.Responses, stats.Presentations)
	assert.Greater(t, stats.Responses, 0)
	assert.LessOrEqual(t, stats.Correct, stats.Responses)
	assert.Greater(t, stats.Elapsed, time.Duration(stats.Presentations)*(preStim+visible))

	assert.False(t, s.Closed(), "finished page waits for continue")
	s.Handle(input.Event{Kind: input.Continue})
	assert.True(t, s.Closed())
	s.Handle(input.Event{Kind: input.Continue})
	assert.Equal(t, 1, calls)
}

func TestSimulateWithParabolaObserver(t *testing.T) {
	cfg := testConfig(2, NopRenderer{})
	var got trial.Results
	cfg.OnComplete = func(r trial.Results) { got = r }
	s, err := New(cfg)
	require.NoError(t, err)

	obs := observer.Threshold{Threshold: observer.DefaultParabola.Threshold}
	_, err = Simulate(context.Background(), s, obs, 100*time.Millisecond)
	require.NoError(t, err)

	points := got.Summary()
	require.Len(t, points, 3)
	// The modelled CSF peaks near 3.5 c/deg, so 4 c/deg needs the least contrast.
	assert.Less(t, points[1].Mean, points[0].Mean)
	assert.Less(t, points[1].Mean, points[2].Mean)
}

func TestGuessesOutsideWindowAreDropped(t *testing.T) {
	r := &spyRenderer{}
	s, err := New(testConfig(3, r))
	require.NoError(t, err)

	s.Handle(input.GuessOf(stim.Up))
	assert.Equal(t, Instructions, s.Phase())

	s.Handle(input.Event{Kind: input.Continue})
	require.Equal(t, Running, s.Phase())
	assert.True(t, s.Fixation())

	s.Handle(input.GuessOf(stim.Up))
	s.Tick(preStim + visible)
	s.Handle(input.GuessOf(stim.Up))
	total, _ := s.Responses()
	assert.Zero(t, total)
	assert.False(t, s.Sequencer().Pool().Started())

	s.Tick(settle)
	s.Handle(input.GuessOf(s.Timer().Location()))
	total, correct := s.Responses()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, correct)
	assert.True(t, s.Sequencer().Pool().Started())
	assert.Equal(t, presentation.PreStim, s.Timer().State(), "next presentation armed")
}

func TestBreakBetweenFrequencies(t *testing.T) {
	r := &spyRenderer{}
	s, err := New(testConfig(4, r))
	require.NoError(t, err)
	s.Handle(input.Event{Kind: input.Continue})

	obs := observer.Threshold{Threshold: observer.Fixed(0.05)}
	first := s.Sequencer().Frequency()
	for s.Phase() == Running {
		waitForAnswerWindow(t, s)
		tm := s.Timer()
		s.Handle(input.Event{Kind: input.Guess, Direction: obs.Answer(tm.Params(), tm.Location())})
	}
	require.Equal(t, Break, s.Phase())
	assert.False(t, s.Fixation())
	assert.True(t, s.Sequencer().TrialOver())
	assert.NotEqual(t, first, s.Sequencer().Frequency())
	n, of := s.Progress()
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, of)

	shows := r.shows
	s.Tick(time.Hour)
	assert.Equal(t, shows, r.shows, "clock is frozen during the break")
	s.Handle(input.GuessOf(stim.Up))
	assert.Equal(t, Break, s.Phase())

	s.Handle(input.Event{Kind: input.Continue})
	assert.Equal(t, Running, s.Phase())
	assert.False(t, s.Sequencer().TrialOver())
	s.Tick(preStim)
	loc, ok := s.Timer().Visible()
	require.True(t, ok)
	assert.Equal(t, stim.OrientationFor(loc), s.Timer().Params().Orientation)
	assert.Equal(t, s.Sequencer().Frequency(), s.Timer().Params().Frequency)
}

func TestAbortDiscardsPresentation(t *testing.T) {
	r := &spyRenderer{}
	calls := 0
	cfg := testConfig(5, r)
	cfg.OnComplete = func(trial.Results) { calls++ }
	s, err := New(cfg)
	require.NoError(t, err)
	s.Handle(input.Event{Kind: input.Continue})
	s.Tick(preStim)
	require.Equal(t, 1, r.lit)

	s.Handle(input.Event{Kind: input.Abort})
	assert.Equal(t, Aborted, s.Phase())
	assert.True(t, s.Closed())
	assert.Zero(t, r.lit)
	assert.True(t, s.Timer().Aborted())

	shows := r.shows
	s.Tick(time.Hour)
	s.Handle(input.Event{Kind: input.Continue})
	assert.Equal(t, shows, r.shows)
	assert.Zero(t, calls)
}

func TestSimulateHonoursContext(t *testing.T) {
	s, err := New(testConfig(6, NopRenderer{}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Simulate(ctx, s, observer.Threshold{Threshold: observer.Fixed(0.1)}, frame)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, s.Phase())
}

func TestNewRejectsUnrenderableFrequency(t *testing.T) {
	cfg := testConfig(7, NopRenderer{})
	cfg.ResolutionLimit = 10
	_, err := New(cfg)
	assert.ErrorIs(t, err, trial.ErrResolutionLimit)

	cfg = testConfig(7, nil)
	_, err = New(cfg)
	assert.ErrorIs(t, err, presentation.ErrInvalidConfig)

	cfg = testConfig(7, NopRenderer{})
	cfg.Rand = nil
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogsCarrySessionID(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(8, NopRenderer{})
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	s, err := New(cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "session_id="+s.ID().String())
}
