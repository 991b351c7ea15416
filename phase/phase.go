// Package phase describes shutdown phases and the dependency graph between them.
// A Set maps phase names to their definitions; TopologicalSort turns a Set into an
// execution order in which every phase comes after all of its dependencies.
package phase

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
)

// DefaultTimeout is applied to phases that declare no timeout of their own.
const DefaultTimeout = 5 * time.Second

// Phase is a named stage of the shutdown sequence.
type Phase struct {
	// Name identifies the phase. It matches the key under which the phase is stored in a Set.
	Name string `json:"name"`
	// DependsOn lists the phases that must finish before this one starts.
	// Duplicates are ignored and the order is irrelevant.
	DependsOn []string `json:"dependsOn,omitempty"`
	// Timeout bounds the time all tasks of the phase may take. Zero means the default timeout.
	Timeout time.Duration `json:"timeout"`
	// Recover tolerates a timeout or task failure and lets the following phases run.
	// When false such a failure aborts the remainder of the run.
	Recover bool `json:"recover"`
}

// Undeclared returns the definition used for a phase that is referenced
// (as a dependency or by registered tasks) but was never declared.
func Undeclared(name string, defaultTimeout time.Duration) Phase {
	return Phase{Name: name, Timeout: defaultTimeout, Recover: true}
}

// Set maps phase names to their definitions.
type Set map[string]Phase

// Lookup returns the phase registered under name. Undeclared names resolve to
// Undeclared(name, defaultTimeout), and a declared phase with a zero timeout
// inherits defaultTimeout. The boolean reports whether the phase was declared.
func (s Set) Lookup(name string, defaultTimeout time.Duration) (Phase, bool) {
	p, ok := s[name]
	if !ok {
		return Undeclared(name, defaultTimeout), false
	}
	p.Name = name
	if p.Timeout == 0 {
		p.Timeout = defaultTimeout
	}
	return p, true
}

// Names returns every name known to the set: its keys plus every name that
// appears in a DependsOn list, sorted and without duplicates.
func (s Set) Names() []string {
	seen := make(map[string]struct{}, len(s))
	for name, p := range s {
		seen[name] = struct{}{}
		for _, dep := range p.DependsOn {
			seen[dep] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the sorted, de-duplicated dependencies of the named phase.
// Undeclared phases have none.
func (s Set) Dependencies(name string) []string {
	p, ok := s[name]
	if !ok || len(p.DependsOn) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(p.DependsOn))
	deps := make([]string, 0, len(p.DependsOn))
	for _, dep := range p.DependsOn {
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for name, p := range s {
		p.DependsOn = append([]string(nil), p.DependsOn...)
		out[name] = p
	}
	return out
}

// Merge returns a copy of s with the phases of other added.
// Phases present in both are taken from other.
func (s Set) Merge(other Set) Set {
	out := s.Clone()
	for name, p := range other.Clone() {
		out[name] = p
	}
	return out
}

// Validate checks the set for problems that would prevent a run: empty names,
// negative timeouts, and dependency cycles. All problems found are returned combined.
func (s Set) Validate() error {
	var errs error
	for _, name := range s.Names() {
		if name == "" {
			errs = multierr.Append(errs, &ConfigurationError{Reason: "phase name cannot be blank"})
			continue
		}
		if p, ok := s[name]; ok && p.Timeout < 0 {
			errs = multierr.Append(errs, &ConfigurationError{
				Phase:  name,
				Reason: fmt.Sprintf("timeout %s cannot be negative", p.Timeout),
			})
		}
	}
	if _, err := TopologicalSort(s); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
