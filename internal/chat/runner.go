package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Runner drives State without a terminal UI. Detect calls run on their own
// goroutines; every transition is serialized and reported to OnChange.
type Runner struct {
	detector Detector
	logger   zerolog.Logger

	// OnChange is called with the new state after each transition, under the runner lock
	OnChange func(State)

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

// NewRunner creates a runner with an empty log
func NewRunner(d Detector, logger zerolog.Logger, ordered bool) *Runner {
	return &Runner{
		detector: d,
		logger:   logger,
		state:    NewState(ordered),
	}
}

// State returns the current state
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetInput replaces the input buffer
func (r *Runner) SetInput(input string) {
	r.apply(func(s State) State { return s.SetInput(input) })
}

// Submit submits the current input and starts its detect call.
// It reports false when the input was blank.
func (r *Runner) Submit(ctx context.Context) bool {
	var (
		sub Submission
		ok  bool
	)

	r.mu.Lock()
	r.state, sub, ok = r.state.Submit()
	if ok {
		r.notify()
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		reply := Exchange(ctx, r.detector, r.logger, sub)
		r.apply(func(s State) State { return s.Resolve(reply) })
	}()

	return true
}

// Ask sets the input, submits it and waits for every pending reply
func (r *Runner) Ask(ctx context.Context, prompt string) (State, bool) {
	r.SetInput(prompt)
	ok := r.Submit(ctx)
	r.Wait()
	return r.State(), ok
}

// Wait blocks until all submitted calls have resolved
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) apply(fn func(State) State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = fn(r.state)
	r.notify()
}

func (r *Runner) notify() {
	if r.OnChange != nil {
		r.OnChange(r.state)
	}
}
