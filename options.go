package teardown

import (
	"time"

	"github.com/go-logr/logr"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for run and phase events. Defaults to logr.Discard().
func WithLogger(log logr.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithDefaultTimeout sets the timeout of phases that declare none. Non-positive values are ignored.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithProgress registers fn to be called, from the run goroutine, after each phase completes.
func WithProgress(fn func(PhaseResult)) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.progress = append(c.progress, fn)
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(c *Coordinator) {
		if id != "" {
			c.runID = id
		}
	}
}
