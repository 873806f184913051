package staircase

import "fmt"

// Rand is the random source used to pick staircases. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Pool interleaves several staircases for one measurement condition. Every
// round the response goes to the staircase that produced the tested value,
// then the next staircase is drawn uniformly at random from those still
// running.
type Pool struct {
	engines []*Engine
	rng     Rand

	first   int
	current int
	started bool
	done    bool
	results []float64
}

// NewPool creates one staircase per start value, all sharing template's
// scale, steps, reversal target and escape rule.
func NewPool(template Config, starts []float64, rng Rand) (*Pool, error) {
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: pool needs at least one staircase", ErrInvalidConfig)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	p := &Pool{rng: rng, engines: make([]*Engine, 0, len(starts))}
	for i, start := range starts {
		cfg := template
		cfg.Start = start
		e, err := NewEngine(cfg)
		if err != nil {
			return nil, fmt.Errorf("staircase %d: %w", i, err)
		}
		p.engines = append(p.engines, e)
	}
	p.restart()
	return p, nil
}

// Reset restarts every staircase with a fresh start value, reusing the
// engines. Start values are checked before any engine is touched.
func (p *Pool) Reset(starts []float64) error {
	if len(starts) != len(p.engines) {
		return fmt.Errorf("%w: got %d, want %d", ErrStartValueCount, len(starts), len(p.engines))
	}
	for i, e := range p.engines {
		if err := e.cfg.validStart(starts[i]); err != nil {
			return fmt.Errorf("staircase %d: %w", i, err)
		}
	}
	for i, e := range p.engines {
		e.restart(starts[i])
	}
	p.restart()
	return nil
}

func (p *Pool) restart() {
	p.done = false
	p.started = false
	p.results = nil
	active := p.Active()
	p.first = active[p.rng.Intn(len(active))]
	p.current = p.first
}

// Next routes the response to the staircase that produced the current value
// and selects the staircase for the following round. The returned value is
// the selected staircase's next value. done is true once every staircase has
// finished.
func (p *Pool) Next(correct bool) (value float64, done bool) {
	if p.done {
		return p.engines[p.current].Value(), true
	}
	p.started = true
	p.engines[p.current].Next(correct)

	active := p.Active()
	if len(active) == 0 {
		p.done = true
		p.results = p.collect()
		return p.engines[p.current].Value(), true
	}
	p.current = active[p.rng.Intn(len(active))]
	return p.engines[p.current].Value(), false
}

// Active returns the indices of staircases that have not finished.
func (p *Pool) Active() []int {
	active := make([]int, 0, len(p.engines))
	for i, e := range p.engines {
		if !e.Finished() {
			active = append(active, i)
		}
	}
	return active
}

func (p *Pool) collect() []float64 {
	out := make([]float64, len(p.engines))
	for i, e := range p.engines {
		out[i], _ = e.Result()
	}
	return out
}

// Value is the value the selected staircase wants tested next.
func (p *Pool) Value() float64 { return p.engines[p.current].Value() }

// Current is the index of the staircase that will receive the next response.
func (p *Pool) Current() int { return p.current }

// First is the staircase designated to receive the first response.
func (p *Pool) First() int { return p.first }

// Started reports whether any response has been routed since the last reset.
func (p *Pool) Started() bool { return p.started }

// Done reports whether every staircase has finished.
func (p *Pool) Done() bool { return p.done }

// Len is the number of staircases in the pool.
func (p *Pool) Len() int { return len(p.engines) }

// Engine returns the i-th staircase.
func (p *Pool) Engine(i int) *Engine { return p.engines[i] }

// Results returns one threshold per staircase in creation order, or nil while
// any staircase is still running.
func (p *Pool) Results() []float64 {
	if !p.done {
		return nil
	}
	return append([]float64(nil), p.results...)
}
