package teardown

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrPhaseTimeout is matched by every *PhaseTimeoutError.
	ErrPhaseTimeout = errors.New("phase timed out")
	// ErrTaskFailed is matched by every *TaskFailureError.
	ErrTaskFailed = errors.New("task failed")
	// ErrNilTask is reported when a registration carries no task function.
	ErrNilTask = errors.New("task function is nil")
	// ErrRegistrationRefused is wrapped by the error of a registration that arrived
	// after its phase was sealed.
	ErrRegistrationRefused = errors.New("task registration refused")
)

// PhaseTimeoutError reports a phase whose tasks did not all finish within its timeout.
type PhaseTimeoutError struct {
	Phase   string
	Timeout time.Duration
	// Pending lists the tasks still running when the timeout elapsed.
	Pending []string
}

func (e *PhaseTimeoutError) Error() string {
	return fmt.Sprintf("teardown: phase %q timed out after %s waiting for [%s]",
		e.Phase, e.Timeout, strings.Join(e.Pending, ", "))
}

// Is reports ErrPhaseTimeout as a match.
func (e *PhaseTimeoutError) Is(target error) bool {
	return target == ErrPhaseTimeout
}

// TaskFailureError reports a task that returned an error or panicked.
type TaskFailureError struct {
	Phase string
	Task  string
	// Function and Location identify the task function ("pkg.Func", "dir/file.go:line").
	Function string
	Location string
	Err      error
}

// newTaskFailure wraps err with the task's phase, name and source location.
func newTaskFailure(phaseName string, t *task, err error) *TaskFailureError {
	e := &TaskFailureError{Phase: phaseName, Task: t.name, Err: err}
	e.Function, e.Location = t.function, t.location
	return e
}

func (e *TaskFailureError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("teardown: task %q in phase %q failed: %v", e.Task, e.Phase, e.Err)
	}
	return fmt.Sprintf("teardown: task %q in phase %q failed: %v, function: %s, location: %s",
		e.Task, e.Phase, e.Err, e.Function, e.Location)
}

// Unwrap returns the task's own error.
func (e *TaskFailureError) Unwrap() error {
	return e.Err
}

// Is reports ErrTaskFailed as a match.
func (e *TaskFailureError) Is(target error) bool {
	return target == ErrTaskFailed
}
