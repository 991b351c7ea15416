package config

import (
	"context"
	"fmt"

	"github.com/cleitonmarx/teardown/internal/reflectx"
	"go.uber.org/multierr"
)

type namedProvider struct {
	provider Provider
	name     string
}

// CompositeProvider asks a list of providers in order and returns the first value found.
// A typical chain puts command line flags ahead of environment variables.
type CompositeProvider struct {
	providers []namedProvider
}

// NewCompositeProvider creates a provider that tries each provider in order until one succeeds.
func NewCompositeProvider(providers ...Provider) CompositeProvider {
	named := make([]namedProvider, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		named = append(named, namedProvider{provider: p, name: reflectx.TypeNameOf(p)})
	}
	return CompositeProvider{providers: named}
}

// Get returns the value from the first provider that has it.
func (p CompositeProvider) Get(ctx context.Context, name string) (string, error) {
	value, _, err := p.GetWithSource(ctx, name)
	return value, err
}

// GetWithSource returns the value and the type name of the provider that supplied it.
// When no provider has the key, the error lists every provider's failure.
func (p CompositeProvider) GetWithSource(ctx context.Context, name string) (string, string, error) {
	var errs error
	for _, np := range p.providers {
		value, err := np.provider.Get(ctx, name)
		if err == nil {
			return value, np.name, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", np.name, err))
	}
	if errs == nil {
		errs = fmt.Errorf("no provider configured for '%s'", name)
	}
	return "", "", errs
}
