package teardown

import (
	"context"
	"fmt"

	"github.com/cleitonmarx/teardown/config"
	"github.com/cleitonmarx/teardown/internal/reflectx"
	"github.com/cleitonmarx/teardown/introspection"
	"github.com/cleitonmarx/teardown/phase"
	"github.com/go-logr/logr"
)

// Report describes the plan a run would follow now. It fails only when the phase
// dependencies contain a cycle.
func (c *Coordinator) Report() (introspection.Report, error) {
	set := c.effectivePhases(c.registry.phases())
	order, err := phase.TopologicalSort(set)
	if err != nil {
		return introspection.Report{}, err
	}
	return c.report(set, order), nil
}

func (c *Coordinator) report(set phase.Set, order []string) introspection.Report {
	infos := make([]introspection.PhaseInfo, 0, len(order))
	for _, name := range order {
		p, _ := set.Lookup(name, c.defaultTimeout)
		_, declared := c.phases[name]
		infos = append(infos, introspection.PhaseInfo{
			Name:      name,
			DependsOn: set.Dependencies(name),
			Timeout:   p.Timeout,
			Recover:   p.Recover,
			Declared:  declared,
			Tasks:     c.registry.names(name),
		})
	}
	return introspection.Report{
		RunID:   c.runID,
		Order:   order,
		Phases:  infos,
		Configs: config.IntrospectConfigAccesses(),
	}
}

// runIntrospectors hands the plan to every registered introspector. Each one gets
// the default timeout; one that is still running at its deadline is abandoned.
// Failures are logged and never change the run outcome.
func (c *Coordinator) runIntrospectors(log logr.Logger, set phase.Set, order []string) {
	c.introspectorsMu.Lock()
	introspectors := append([]Introspector(nil), c.introspectors...)
	c.introspectorsMu.Unlock()
	if len(introspectors) == 0 {
		return
	}

	report := c.report(set, order)
	for _, i := range introspectors {
		if err := c.introspectWithTimeout(i, report); err != nil {
			log.Error(err, "introspector failed", "introspector", reflectx.TypeNameOf(i))
		}
	}
}

// introspectWithTimeout runs i in its own goroutine and stops waiting for it at the
// default timeout.
func (c *Coordinator) introspectWithTimeout(i Introspector, report introspection.Report) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.defaultTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- introspectSafe(ctx, i, report)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		select {
		case err := <-errCh:
			return err
		default:
			return fmt.Errorf("introspector abandoned after %s: %w", c.defaultTimeout, ctx.Err())
		}
	}
}

// introspectSafe calls the introspector with panic recovery.
func introspectSafe(ctx context.Context, i Introspector, r introspection.Report) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Introspect func: %v", rec)
		}
	}()
	return i.Introspect(ctx, r)
}
