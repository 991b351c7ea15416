package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvVarProvider reads configuration values from environment variables.
// It is the default global provider.
type EnvVarProvider struct {
	prefix string
}

// NewEnvVarProvider creates a provider that looks keys up verbatim.
func NewEnvVarProvider() EnvVarProvider {
	return EnvVarProvider{}
}

// NewPrefixedEnvVarProvider creates a provider that looks keys up as PREFIX_KEY.
func NewPrefixedEnvVarProvider(prefix string) EnvVarProvider {
	return EnvVarProvider{prefix: strings.TrimSuffix(prefix, "_")}
}

// Get returns the value of the environment variable for name.
func (p EnvVarProvider) Get(_ context.Context, name string) (string, error) {
	if p.prefix != "" {
		name = p.prefix + "_" + name
	}
	value, exists := os.LookupEnv(name)
	if !exists {
		return "", fmt.Errorf("environment variable '%s' is not set", name)
	}
	return value, nil
}
