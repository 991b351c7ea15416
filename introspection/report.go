// Package introspection describes a coordinator's shutdown plan in a form suitable
// for rendering and serialization.
package introspection

import (
	"encoding/json"
	"time"
)

// Report aggregates the shutdown plan of a coordinator and the configuration keys read while building it.
type Report struct {
	RunID   string         `json:"runId,omitempty"`
	Order   []string       `json:"order"`
	Phases  []PhaseInfo    `json:"phases"`
	Configs []ConfigAccess `json:"configs"`
}

// PhaseInfo describes one phase of the plan.
type PhaseInfo struct {
	Name      string        `json:"name"`
	DependsOn []string      `json:"dependsOn"`
	Timeout   time.Duration `json:"-"`
	Recover   bool          `json:"recover"`
	// Declared is false for phases only referenced as a dependency or by tasks.
	Declared bool     `json:"declared"`
	Tasks    []string `json:"tasks"`
}

// MarshalJSON renders the timeout as a duration string.
func (p PhaseInfo) MarshalJSON() ([]byte, error) {
	type plain PhaseInfo
	return json.Marshal(struct {
		plain
		Timeout string `json:"timeout"`
	}{
		plain:   plain(p),
		Timeout: p.Timeout.String(),
	})
}

// Phase returns the info of the named phase.
func (r Report) Phase(name string) (PhaseInfo, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseInfo{}, false
}

// ConfigAccess captures a single configuration key access.
type ConfigAccess struct {
	Key         string `json:"key"`
	Provider    string `json:"provider"`
	UsedDefault bool   `json:"usedDefault"`
	Caller      Caller `json:"caller"`
	Component   string `json:"component"`
	Order       int    `json:"order"`
}

// Caller identifies the code location that produced an access.
type Caller struct {
	Func string `json:"func"`
	File string `json:"file"`
	Line int    `json:"line"`
}
