package teardown

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cleitonmarx/teardown/internal/reflectx"
)

// task is a single registered shutdown task.
type task struct {
	id       uint64
	name     string
	fn       TaskFunc
	function string
	location string
}

// taskRegistry holds the tasks of every phase. A phase is sealed when its tasks are
// handed to the executor; once the run has planned its order, tasks for phases
// outside the plan are refused, and once it completes everything is refused.
type taskRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	tasks   map[string][]*task
	sealed  map[string]bool
	planned map[string]bool
	closed  bool
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{
		tasks:  make(map[string][]*task),
		sealed: make(map[string]bool),
	}
}

// add appends a task to phaseName. It returns an error when the phase no longer accepts tasks.
func (r *taskRegistry) add(phaseName, name string, fn TaskFunc) (*task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return nil, fmt.Errorf("%w: shutdown already completed", ErrRegistrationRefused)
	case r.sealed[phaseName]:
		return nil, fmt.Errorf("%w: phase %q already started", ErrRegistrationRefused, phaseName)
	case r.planned != nil && !r.planned[phaseName]:
		return nil, fmt.Errorf("%w: phase %q is not part of the running shutdown", ErrRegistrationRefused, phaseName)
	}

	r.nextID++
	if name == "" {
		name = fmt.Sprintf("task-%d", r.nextID)
	}
	t := &task{id: r.nextID, name: name, fn: fn}
	t.function, t.location, _ = reflectx.FuncLocation(fn)
	r.tasks[phaseName] = append(r.tasks[phaseName], t)
	return t, nil
}

// remove drops t from phaseName unless the phase was already sealed.
func (r *taskRegistry) remove(phaseName string, t *task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.sealed[phaseName] {
		return false
	}
	list := r.tasks[phaseName]
	for i, candidate := range list {
		if candidate == t {
			r.tasks[phaseName] = append(list[:i:i], list[i+1:]...)
			if len(r.tasks[phaseName]) == 0 {
				delete(r.tasks, phaseName)
			}
			return true
		}
	}
	return false
}

// plan calls compute with the phases that currently hold tasks and, on success,
// restricts further registrations to the returned order. The lock is held for the
// whole call so no task can slip in between the snapshot and the restriction.
func (r *taskRegistry) plan(compute func(taskPhases []string) ([]string, error)) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := compute(r.phasesLocked())
	if err != nil {
		return nil, err
	}
	r.planned = make(map[string]bool, len(order))
	for _, name := range order {
		r.planned[name] = true
	}
	return order, nil
}

// seal snapshots the tasks of phaseName and refuses any later registration for it.
func (r *taskRegistry) seal(phaseName string) []*task {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed[phaseName] = true
	list := r.tasks[phaseName]
	snapshot := make([]*task, len(list))
	copy(snapshot, list)
	return snapshot
}

// close refuses every later registration.
func (r *taskRegistry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// phases returns the sorted names of the phases holding at least one task.
func (r *taskRegistry) phases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phasesLocked()
}

func (r *taskRegistry) phasesLocked() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// names returns the task names of phaseName in registration order.
func (r *taskRegistry) names(phaseName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.tasks[phaseName]
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.name)
	}
	return names
}

// Registration is the handle returned by Coordinator.AddTask.
type Registration struct {
	Phase string
	Task  string

	registry *taskRegistry
	task     *task
	err      error
}

// Accepted reports whether the task was registered. A registration is refused when
// its function is nil or when its phase has already been sealed by a running shutdown.
func (r *Registration) Accepted() bool {
	return r.task != nil
}

// Err returns the reason a registration was refused, or nil.
func (r *Registration) Err() error {
	return r.err
}

// Cancel removes the task from its phase. It returns false if the task was never
// accepted, was already cancelled, or its phase has already been sealed.
func (r *Registration) Cancel() bool {
	if r.task == nil {
		return false
	}
	return r.registry.remove(r.Phase, r.task)
}
