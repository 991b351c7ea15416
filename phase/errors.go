package phase

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is matched by every *ConfigurationError through errors.Is.
var ErrConfiguration = errors.New("invalid phase configuration")

// ConfigurationError reports a phase set that cannot be run.
// Cycle is set when the dependency graph contains a cycle; it lists the phases
// along the cycle, starting and ending with the same phase.
type ConfigurationError struct {
	Cycle  []string
	Phase  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Cycle) > 0:
		return fmt.Sprintf("phase: dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
	case e.Phase != "":
		return fmt.Sprintf("phase: %q: %s", e.Phase, e.Reason)
	default:
		return fmt.Sprintf("phase: %s", e.Reason)
	}
}

// Is reports ErrConfiguration as a match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
