package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// FlagProvider reads configuration values from command line flags.
// Only flags the user set explicitly are reported, so defaults further down a
// CompositeProvider chain still apply. Keys are matched case-insensitively with
// underscores standing for dashes: LOG_LEVEL finds --log-level.
type FlagProvider struct {
	flags  *pflag.FlagSet
	prefix string
}

// NewFlagProvider creates a provider backed by fs. When prefix is not empty it is
// stripped from keys before the lookup, so with prefix TEARDOWN the key
// TEARDOWN_LOG_LEVEL finds --log-level.
func NewFlagProvider(fs *pflag.FlagSet, prefix string) FlagProvider {
	return FlagProvider{flags: fs, prefix: strings.TrimSuffix(prefix, "_")}
}

// Get returns the value of the flag matching name.
func (p FlagProvider) Get(_ context.Context, name string) (string, error) {
	flagName := strings.ToLower(name)
	if p.prefix != "" {
		flagName = strings.TrimPrefix(flagName, strings.ToLower(p.prefix)+"_")
	}
	flagName = strings.ReplaceAll(flagName, "_", "-")

	f := p.flags.Lookup(flagName)
	if f == nil {
		return "", fmt.Errorf("flag '--%s' is not defined", flagName)
	}
	if !f.Changed {
		return "", fmt.Errorf("flag '--%s' is not set", flagName)
	}
	return f.Value.String(), nil
}
