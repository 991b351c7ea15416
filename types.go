package teardown

import (
	"context"

	"github.com/cleitonmarx/teardown/introspection"
)

// TaskFunc is the body of a shutdown task. Returning nil signals success; an error
// or a panic marks the task, and therefore its phase, as failed.
//
// The context expires at the phase deadline. Tasks that outlive the deadline are
// abandoned: the coordinator stops waiting for them but never interrupts them, so a
// task must be safe to leave running (or must watch ctx and return on its own).
type TaskFunc func(ctx context.Context) error

// Introspector receives the shutdown plan once the phase order is known and before
// the first phase starts.
type Introspector interface {
	Introspect(context.Context, introspection.Report) error
}

// Reason tells why a shutdown run was started.
type Reason string

const (
	ReasonUnknown     Reason = "unknown"
	ReasonRequested   Reason = "requested"
	ReasonSignal      Reason = "signal"
	ReasonContextDone Reason = "context-done"
)

// RunState is the lifecycle state of a Coordinator.
type RunState int32

const (
	StateNotStarted RunState = iota
	StateRunning
	StateCompleted
)

func (s RunState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
