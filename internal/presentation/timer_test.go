package presentation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CSF/internal/stim"
)

type renderCall struct {
	show   bool
	loc    stim.Location
	params stim.Params
}

// recorder is a Renderer that logs calls and tracks which locations are lit.
type recorder struct {
	calls []renderCall
	lit   [stim.NumLocations]bool
}

func (r *recorder) Show(loc stim.Location, p stim.Params) {
	r.calls = append(r.calls, renderCall{show: true, loc: loc, params: p})
	r.lit[loc] = true
}

func (r *recorder) Hide(loc stim.Location) {
	r.calls = append(r.calls, renderCall{loc: loc})
	r.lit[loc] = false
}

func (r *recorder) litCount() int {
	n := 0
	for _, on := range r.lit {
		if on {
			n++
		}
	}
	return n
}

type countingCue struct{ n int }

func (c *countingCue) Play() { c.n++ }

const (
	preStim = 1500 * time.Millisecond
	visible = 250 * time.Millisecond
	settle  = 1750 * time.Millisecond
)

func newTestTimer(t *testing.T, seed int64) (*Timer, *recorder, *countingCue) {
	t.Helper()
	r := &recorder{}
	c := &countingCue{}
	tm, err := NewTimer(Config{
		PreStim:  preStim,
		Visible:  visible,
		Settle:   settle,
		Renderer: r,
		Cue:      c,
		Rand:     rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return tm, r, c
}

func TestTimerTransitions(t *testing.T) {
	tm, r, cue := newTestTimer(t, 1)
	assert.Equal(t, Idle, tm.State())

	require.NoError(t, tm.Show(stim.Params{Contrast: 0.3}))
	assert.Equal(t, PreStim, tm.State())
	assert.Empty(t, r.calls)
	assert.Zero(t, cue.n, "cue fires at the visible transition")

	tm.Advance(preStim - time.Millisecond)
	assert.Equal(t, PreStim, tm.State())
	_, ok := tm.Visible()
	assert.False(t, ok)

	tm.Advance(time.Millisecond)
	assert.Equal(t, Visible, tm.State())
	loc, ok := tm.Visible()
	require.True(t, ok)
	assert.Equal(t, tm.Location(), loc)
	assert.Equal(t, 1, cue.n)
	require.Len(t, r.calls, 1)
	assert.True(t, r.calls[0].show)
	assert.Equal(t, stim.OrientationFor(loc), r.calls[0].params.Orientation)
	assert.False(t, tm.AcceptingResponses())

	tm.Advance(visible)
	assert.Equal(t, Hidden, tm.State())
	require.Len(t, r.calls, 2)
	assert.False(t, r.calls[1].show)
	assert.Equal(t, loc, r.calls[1].loc)
	assert.False(t, tm.AcceptingResponses(), "settle delay still running")

	tm.Advance(settle)
	assert.True(t, tm.AcceptingResponses())

	tm.MarkResponded()
	assert.False(t, tm.AcceptingResponses())
	assert.True(t, tm.Answered())
}

func TestTimerLargeStepHitsEveryDeadline(t *testing.T) {
	tm, r, cue := newTestTimer(t, 2)
	tm.Advance(3 * time.Second)
	require.NoError(t, tm.Show(stim.Params{}))

	tm.Advance(time.Hour)
	assert.Equal(t, Hidden, tm.State())
	assert.True(t, tm.AcceptingResponses())
	assert.Equal(t, 1, cue.n)
	assert.Len(t, r.calls, 2)

	tl := tm.LastTimeline()
	assert.Equal(t, 3*time.Second, tl.Shown)
	assert.Equal(t, tl.Shown+preStim, tl.Visible)
	assert.Equal(t, tl.Visible+visible, tl.Hidden)
	assert.Equal(t, 3*time.Second+time.Hour, tm.Now())
}

func TestTimerExclusivity(t *testing.T) {
	tm, r, _ := newTestTimer(t, 3)
	frame := 16 * time.Millisecond

	for n := 0; n < 25; n++ {
		require.NoError(t, tm.Show(stim.Params{Contrast: 0.1}))
		shown := tm.Now()
		for tm.State() != Hidden {
			tm.Advance(frame)
			assert.LessOrEqual(t, r.litCount(), 1)
			if tm.State() == Visible {
				assert.Equal(t, 1, r.litCount())
			}
		}
		assert.Zero(t, r.litCount())
		assert.GreaterOrEqual(t, tm.LastTimeline().Hidden-shown, preStim+visible)
		assert.GreaterOrEqual(t, tm.Now()-shown, preStim+visible)
	}
	assert.Equal(t, 25, tm.Presentations())
}

func TestTimerRejectsDoubleArm(t *testing.T) {
	tm, r, _ := newTestTimer(t, 4)
	require.NoError(t, tm.Show(stim.Params{Contrast: 0.5}))
	loc := tm.Location()

	assert.ErrorIs(t, tm.Show(stim.Params{Contrast: 0.9}), ErrBusy)
	_, err := tm.Choose()
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, loc, tm.Location())

	tm.Advance(preStim)
	assert.ErrorIs(t, tm.Show(stim.Params{}), ErrBusy)
	assert.Equal(t, 0.5, r.calls[0].params.Contrast)
	assert.Equal(t, 1, tm.Presentations())

	tm.Advance(visible)
	assert.NoError(t, tm.Show(stim.Params{}), "hidden may start the next presentation")
}

func TestTimerChooseThenShow(t *testing.T) {
	tm, r, _ := newTestTimer(t, 5)
	seen := map[stim.Location]int{}
	for n := 0; n < 200; n++ {
		loc, err := tm.Choose()
		require.NoError(t, err)
		require.NoError(t, tm.Show(stim.Params{Orientation: 45}.At(loc)))
		assert.Equal(t, loc, tm.Location())
		tm.Advance(preStim + visible)
		require.NotEmpty(t, r.calls)
		assert.Equal(t, loc, r.calls[len(r.calls)-1].loc)
		seen[loc]++
	}
	assert.Len(t, seen, stim.NumLocations)
}

func TestTimerZeroPreStimIsImmediatelyVisible(t *testing.T) {
	r := &recorder{}
	tm, err := NewTimer(Config{Visible: visible, Renderer: r, Rand: rand.New(rand.NewSource(6))})
	require.NoError(t, err)
	require.NoError(t, tm.Show(stim.Params{}))
	assert.Equal(t, Visible, tm.State())

	tm.Advance(visible)
	assert.True(t, tm.AcceptingResponses(), "no settle delay configured")
}

func TestTimerAbort(t *testing.T) {
	tm, r, cue := newTestTimer(t, 7)
	require.NoError(t, tm.Show(stim.Params{}))
	tm.Advance(preStim)
	require.Equal(t, 1, r.litCount())

	tm.Abort()
	assert.True(t, tm.Aborted())
	assert.Zero(t, r.litCount())
	calls := len(r.calls)

	tm.Advance(time.Hour)
	assert.Len(t, r.calls, calls)
	assert.Equal(t, 1, cue.n)
	assert.False(t, tm.AcceptingResponses())
	assert.ErrorIs(t, tm.Show(stim.Params{}), ErrAborted)
	_, err := tm.Choose()
	assert.ErrorIs(t, err, ErrAborted)

	tm.Abort()
	assert.Len(t, r.calls, calls)
}

func TestTimerAbortDuringPreStim(t *testing.T) {
	tm, r, cue := newTestTimer(t, 8)
	require.NoError(t, tm.Show(stim.Params{}))
	tm.Abort()
	tm.Advance(time.Hour)
	assert.Empty(t, r.calls)
	assert.Zero(t, cue.n)
}

func TestNewTimerValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bad := []Config{
		{PreStim: -1, Visible: visible, Renderer: &recorder{}, Rand: rng},
		{Visible: 0, Renderer: &recorder{}, Rand: rng},
		{Visible: visible, Settle: -1, Renderer: &recorder{}, Rand: rng},
		{Visible: visible, Rand: rng},
		{Visible: visible, Renderer: &recorder{}},
	}
	for _, cfg := range bad {
		_, err := NewTimer(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}
