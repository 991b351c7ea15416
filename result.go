package teardown

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// TaskResult records how a single task ended.
type TaskResult struct {
	Name     string
	Duration time.Duration
	Err      error
	// Completed is false for a task abandoned at the phase timeout.
	Completed bool
}

// PhaseResult records how a single phase ended.
type PhaseResult struct {
	Name     string
	Declared bool
	Timeout  time.Duration
	Recover  bool
	Duration time.Duration
	Tasks    []TaskResult
	// Err is a *PhaseTimeoutError, a *TaskFailureError, or nil.
	Err error
}

// Failed reports whether the phase timed out or had a failing task.
func (p PhaseResult) Failed() bool {
	return p.Err != nil
}

// Recovered reports whether the phase failed and the run carried on past it.
func (p PhaseResult) Recovered() bool {
	return p.Err != nil && p.Recover
}

// Result is the immutable outcome of a shutdown run.
type Result struct {
	RunID  string
	Reason Reason
	// Order is the phase order the run followed; nil when ordering failed.
	Order    []string
	Phases   []PhaseResult
	Duration time.Duration
	// Err is nil on success, the *phase.ConfigurationError when ordering failed, or the
	// error of the first phase with recover disabled that failed.
	Err error
}

// Phase returns the result of the named phase, if the run reached it.
func (r *Result) Phase(name string) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

// RecoveredErrors combines the errors of the phases the run recovered from.
func (r *Result) RecoveredErrors() error {
	var errs error
	for _, p := range r.Phases {
		if p.Recovered() {
			errs = multierr.Append(errs, p.Err)
		}
	}
	return errs
}

// Outcome is the shared handle of the single shutdown run of a Coordinator.
// Every call to Run returns the same Outcome.
type Outcome struct {
	done   chan struct{}
	result *Result
}

func newOutcome() *Outcome {
	return &Outcome{done: make(chan struct{})}
}

// Done is closed when the run completes.
func (o *Outcome) Done() <-chan struct{} {
	return o.done
}

// Err returns the run outcome, or nil while the run is still in progress.
func (o *Outcome) Err() error {
	select {
	case <-o.done:
		return o.result.Err
	default:
		return nil
	}
}

// Result returns the run result, or nil while the run is still in progress.
func (o *Outcome) Result() *Result {
	select {
	case <-o.done:
		return o.result
	default:
		return nil
	}
}

// Wait blocks until the run completes and returns its outcome. If ctx ends first,
// Wait returns ctx.Err() and the run carries on.
func (o *Outcome) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.result.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// complete publishes r and releases every waiter.
func (o *Outcome) complete(r *Result) {
	o.result = r
	close(o.done)
}
