// Package config loads host settings and shutdown phase documents.
//
// Settings are read through a pluggable Provider (environment variables, command
// line flags, or a composite of both) and injected into structs tagged with
// config:"KEY" and an optional default:"value". Phase documents in TOML, YAML or
// JSON are decoded into a phase.Set by DecodePhases and LoadPhasesFile.
package config

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/cleitonmarx/teardown/internal/reflectx"
	"github.com/cleitonmarx/teardown/introspection"
)

const (
	tagName        = "config"
	defaultTagName = "default"
)

var (
	providerMu     sync.RWMutex
	globalProvider *providerInspector

	parsersMu      sync.RWMutex
	parserRegistry map[reflect.Type]func(value string) (any, error)
)

// Provider retrieves configuration values by key.
type Provider interface {
	Get(ctx context.Context, name string) (string, error)
}

// SetGlobalProvider sets the provider used by Get, GetWithDefault and LoadStruct.
// Set it while wiring the host, before settings are read.
func SetGlobalProvider(provider Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = newProviderInspector(provider)
}

// ResetGlobalProvider restores the environment variable provider and forgets recorded accesses.
func ResetGlobalProvider() {
	SetGlobalProvider(NewEnvVarProvider())
}

func currentProvider() *providerInspector {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// ParseFunc parses a string value into T.
type ParseFunc[T any] func(value string) (T, error)

// RegisterParser registers a parser for T. Parsers for string, bool, int, int64,
// float64 and time.Duration are built in.
func RegisterParser[T any](parser ParseFunc[T]) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parserRegistry[reflect.TypeFor[T]()] = func(value string) (any, error) {
		return parser(value)
	}
}

func parserFor(t reflect.Type) (func(string) (any, error), bool) {
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	p, ok := parserRegistry[t]
	return p, ok
}

func getParsed[T any](ctx context.Context, name string, useDefault bool) (T, error) {
	var zero T
	typeOfT := reflect.TypeFor[T]()
	parser, ok := parserFor(typeOfT)
	if !ok {
		return zero, fmt.Errorf("parser for type '%s' does not exist", reflectx.GetTypeName(typeOfT))
	}
	raw, err := currentProvider().get(ctx, name, useDefault, nil, 4)
	if err != nil {
		return zero, err
	}
	value, err := parser(raw)
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// Get retrieves and parses the value of a key.
func Get[T any](ctx context.Context, name string) (T, error) {
	value, err := getParsed[T](ctx, name, false)
	if err != nil {
		return value, fmt.Errorf("config: %w", err)
	}
	return value, nil
}

// GetWithDefault retrieves a value, falling back to defaultValue when the key is
// missing or cannot be parsed.
func GetWithDefault[T any](ctx context.Context, name string, defaultValue T) T {
	value, err := getParsed[T](ctx, name, true)
	if err != nil {
		return defaultValue
	}
	return value
}

// LoadStruct fills every field of target tagged with config:"KEY".
// A field without a default:"..." tag is required.
func LoadStruct[T any](ctx context.Context, target *T) error {
	return reflectx.IterateStructFields(target, loadStructFieldValue(ctx))
}

func loadStructFieldValue(ctx context.Context) reflectx.StructFieldIteratorFunc {
	return func(fieldValue reflect.Value, structField reflect.StructField, targetType reflect.Type) error {
		key, ok := structField.Tag.Lookup(tagName)
		if !ok {
			return nil
		}

		parser, ok := parserFor(structField.Type)
		if !ok {
			return fmt.Errorf("config: parser for type '%s' does not exist", reflectx.GetTypeName(structField.Type))
		}

		provider := currentProvider()
		defaultValue, hasDefault := structField.Tag.Lookup(defaultTagName)
		raw, err := provider.get(ctx, key, hasDefault, targetType, 5)
		switch {
		case err != nil && hasDefault:
			raw = defaultValue
		case err != nil:
			return fmt.Errorf("config: error getting value for field '%s': %w", structField.Name, err)
		}

		value, err := parser(raw)
		if err != nil {
			return fmt.Errorf("config: error parsing value for field '%s': %w", structField.Name, err)
		}
		if err := reflectx.SetFieldValue(fieldValue, structField, value); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		return nil
	}
}

// IntrospectConfigAccesses returns every key read through the global provider,
// sorted by key, file and line.
func IntrospectConfigAccesses() []introspection.ConfigAccess {
	return currentProvider().accesses()
}

func init() {
	parserRegistry = map[reflect.Type]func(value string) (any, error){
		reflect.TypeFor[string]():        func(value string) (any, error) { return value, nil },
		reflect.TypeFor[bool]():          func(value string) (any, error) { return strconv.ParseBool(value) },
		reflect.TypeFor[int]():           func(value string) (any, error) { return strconv.Atoi(value) },
		reflect.TypeFor[int64]():         func(value string) (any, error) { return strconv.ParseInt(value, 10, 64) },
		reflect.TypeFor[float64]():       func(value string) (any, error) { return strconv.ParseFloat(value, 64) },
		reflect.TypeFor[time.Duration](): func(value string) (any, error) { return time.ParseDuration(value) },
	}
	globalProvider = newProviderInspector(NewEnvVarProvider())
}
