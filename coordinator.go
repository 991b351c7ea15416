// Package teardown coordinates the orderly shutdown of a process made of many subsystems.
//
// Phases are declared up front with their dependencies, timeouts and recovery policy.
// Subsystems register tasks against phases, and a single shutdown run executes the
// phases one at a time in dependency order, running the tasks of each phase concurrently.
package teardown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cleitonmarx/teardown/internal/reflectx"
	"github.com/cleitonmarx/teardown/phase"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Coordinator runs a single phased shutdown. It is safe for concurrent use.
type Coordinator struct {
	phases         phase.Set
	defaultTimeout time.Duration
	log            logr.Logger
	progress       []func(PhaseResult)
	runID          string

	introspectorsMu sync.Mutex
	introspectors   []Introspector

	registry *taskRegistry
	state    atomic.Int32
	reason   atomic.Value
	outcome  *Outcome
}

// New creates a coordinator for the given phase declarations. The set is copied, so
// later changes to phases have no effect. A cyclic set is accepted here and reported
// as the outcome of the run.
func New(phases phase.Set, opts ...Option) *Coordinator {
	c := &Coordinator{
		phases:         phases.Clone(),
		defaultTimeout: phase.DefaultTimeout,
		log:            logr.Discard(),
		runID:          uuid.NewString(),
		registry:       newTaskRegistry(),
		outcome:        newOutcome(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddTask registers fn to run during phaseName. The phase does not need to be declared:
// an undeclared phase holding tasks runs with no dependencies, the default timeout and
// recovery enabled. An empty taskName is replaced by a generated one.
//
// Registering against a phase that already started, or after the run completed, is
// a no-op; the returned Registration then reports Accepted() == false.
func (c *Coordinator) AddTask(phaseName, taskName string, fn TaskFunc) *Registration {
	reg := &Registration{Phase: phaseName, Task: taskName, registry: c.registry}
	if fn == nil {
		reg.err = ErrNilTask
		c.log.Error(ErrNilTask, "task registration ignored", "phase", phaseName, "task", taskName)
		return reg
	}

	t, err := c.registry.add(phaseName, taskName, fn)
	if err != nil {
		reg.err = err
		c.log.Error(err, "task registration ignored", "phase", phaseName, "task", taskName)
		return reg
	}
	reg.Task = t.name
	reg.task = t
	return reg
}

// Introspect registers an introspector. Introspectors are called, in registration
// order, once the run has computed its phase order and before the first phase starts.
// An introspector registered after the run started is never called; it is logged and ignored.
func (c *Coordinator) Introspect(i Introspector) *Coordinator {
	if i == nil {
		return c
	}
	c.introspectorsMu.Lock()
	defer c.introspectorsMu.Unlock()
	if c.State() != StateNotStarted {
		c.log.Error(fmt.Errorf("%w: shutdown already started", ErrRegistrationRefused),
			"introspector registration ignored", "introspector", reflectx.TypeNameOf(i))
		return c
	}
	c.introspectors = append(c.introspectors, i)
	return c
}

// Run starts the shutdown, or attaches to the one already started, and returns its
// shared outcome handle. It never blocks. Only the first call's reason is kept.
func (c *Coordinator) Run(reason Reason) *Outcome {
	if c.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		if reason == "" {
			reason = ReasonUnknown
		}
		c.reason.Store(reason)
		go c.execute(reason)
	}
	return c.outcome
}

// Shutdown runs the shutdown and waits for its outcome. If ctx ends first it returns
// ctx.Err() while the run carries on in the background.
func (c *Coordinator) Shutdown(ctx context.Context, reason Reason) error {
	return c.Run(reason).Wait(ctx)
}

// ListenForSignals blocks until one of signals arrives (SIGINT and SIGTERM when none
// are given) or ctx ends, then runs the shutdown and waits for its outcome. If the
// shutdown is started elsewhere first, it returns that run's outcome instead.
func (c *Coordinator) ListenForSignals(ctx context.Context, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{
			// Interrupt signal sent from terminal
			os.Interrupt,
			// Termination signal sent from Kubernetes or other orchestrators
			syscall.SIGTERM,
		}
	}
	sigCtx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()

	select {
	case <-sigCtx.Done():
	case <-c.outcome.Done():
		return c.outcome.Err()
	}

	reason := ReasonSignal
	if ctx.Err() != nil {
		reason = ReasonContextDone
	}
	return c.Run(reason).Wait(context.Background())
}

// State returns the current run state.
func (c *Coordinator) State() RunState {
	return RunState(c.state.Load())
}

// Reason returns the reason of the run, once it has started.
func (c *Coordinator) Reason() (Reason, bool) {
	r, ok := c.reason.Load().(Reason)
	return r, ok
}

// RunID returns the identifier attached to the run's logs and result.
func (c *Coordinator) RunID() string {
	return c.runID
}

// Order returns the phase order a run would follow now, including phases that are
// only referenced as dependencies or by registered tasks.
func (c *Coordinator) Order() ([]string, error) {
	return phase.TopologicalSort(c.effectivePhases(c.registry.phases()))
}

// Timeout returns the timeout applied to phaseName.
func (c *Coordinator) Timeout(phaseName string) time.Duration {
	p, _ := c.phases.Lookup(phaseName, c.defaultTimeout)
	return p.Timeout
}

// TotalTimeout returns the sum of the timeouts of every phase a run would visit,
// an upper bound on how long the run waits on tasks.
func (c *Coordinator) TotalTimeout() time.Duration {
	var total time.Duration
	for _, name := range c.effectivePhases(c.registry.phases()).Names() {
		total += c.Timeout(name)
	}
	return total
}

// effectivePhases returns the declared phases plus an undeclared entry for every
// phase in taskPhases that was not declared.
func (c *Coordinator) effectivePhases(taskPhases []string) phase.Set {
	set := c.phases.Clone()
	for _, name := range taskPhases {
		if _, ok := set[name]; !ok {
			set[name] = phase.Undeclared(name, c.defaultTimeout)
		}
	}
	return set
}

// execute is the body of the run. It is called exactly once.
func (c *Coordinator) execute(reason Reason) {
	start := time.Now()
	log := c.log.WithValues("runID", c.runID, "reason", string(reason))
	result := &Result{RunID: c.runID, Reason: reason}
	defer func() {
		c.registry.close()
		result.Duration = time.Since(start)
		c.state.Store(int32(StateCompleted))
		c.outcome.complete(result)
	}()

	log.Info("shutdown started")

	var set phase.Set
	order, err := c.registry.plan(func(taskPhases []string) ([]string, error) {
		set = c.effectivePhases(taskPhases)
		return phase.TopologicalSort(set)
	})
	if err != nil {
		log.Error(err, "shutdown aborted before running any phase")
		result.Err = err
		return
	}
	result.Order = order

	c.runIntrospectors(log, set, order)

	for _, name := range order {
		p, _ := set.Lookup(name, c.defaultTimeout)
		_, declared := c.phases[name]

		pr := c.runPhase(log.WithValues("phase", name), p, declared)
		result.Phases = append(result.Phases, pr)
		for _, fn := range c.progress {
			fn(pr)
		}

		if pr.Err == nil {
			continue
		}
		if p.Recover {
			log.Error(pr.Err, "phase failed, continuing shutdown", "phase", name)
			continue
		}
		log.Error(pr.Err, "phase failed, aborting shutdown", "phase", name)
		result.Err = pr.Err
		return
	}

	log.Info("shutdown completed", "duration", time.Since(start), "phases", len(order))
}

// runPhase runs every task of p concurrently and waits until all of them return or
// the phase timeout elapses, whichever comes first.
func (c *Coordinator) runPhase(log logr.Logger, p phase.Phase, declared bool) PhaseResult {
	tasks := c.registry.seal(p.Name)
	pr := PhaseResult{
		Name:     p.Name,
		Declared: declared,
		Timeout:  p.Timeout,
		Recover:  p.Recover,
		Tasks:    make([]TaskResult, len(tasks)),
	}
	if len(tasks) == 0 {
		log.V(1).Info("phase has no tasks")
		return pr
	}

	start := time.Now()
	log.V(1).Info("phase started", "tasks", len(tasks), "timeout", p.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([]TaskResult, len(tasks))
		group   errgroup.Group
	)
	for i, t := range tasks {
		results[i].Name = t.name
		group.Go(func() error {
			began := time.Now()
			err := runSafe(ctx, p.Name, t)
			elapsed := time.Since(began)

			mu.Lock()
			results[i].Duration = elapsed
			results[i].Err = err
			results[i].Completed = true
			mu.Unlock()

			if err != nil {
				log.V(1).Info("task failed", "task", t.name, "duration", elapsed, "error", err.Error())
			} else {
				log.V(1).Info("task completed", "task", t.name, "duration", elapsed)
			}
			return err
		})
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- group.Wait()
	}()

	var (
		err      error
		finished bool
	)
	select {
	case err = <-waitCh:
		finished = true
	case <-ctx.Done():
	}

	mu.Lock()
	copy(pr.Tasks, results)
	mu.Unlock()
	pr.Duration = time.Since(start)

	if !finished {
		if allCompleted(pr.Tasks) {
			// every task returned right at the deadline
			err = <-waitCh
		} else {
			err = &PhaseTimeoutError{Phase: p.Name, Timeout: p.Timeout, Pending: pendingTasks(pr.Tasks)}
		}
	}
	pr.Err = err

	log.V(1).Info("phase finished", "duration", pr.Duration, "failed", err != nil)
	return pr
}

// runSafe calls the task function with panic recovery.
// Both panics and errors are wrapped in a *TaskFailureError.
func runSafe(ctx context.Context, phaseName string, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newTaskFailure(phaseName, t, fmt.Errorf("panic in task func: %v", r))
		}
	}()
	if err = t.fn(ctx); err != nil {
		err = newTaskFailure(phaseName, t, err)
	}
	return err
}

func allCompleted(tasks []TaskResult) bool {
	for _, t := range tasks {
		if !t.Completed {
			return false
		}
	}
	return true
}

func pendingTasks(tasks []TaskResult) []string {
	var pending []string
	for _, t := range tasks {
		if !t.Completed {
			pending = append(pending, t.Name)
		}
	}
	return pending
}
