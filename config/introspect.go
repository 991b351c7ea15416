package config

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/cleitonmarx/teardown/internal/reflectx"
	"github.com/cleitonmarx/teardown/introspection"
)

// ProviderWithSource is implemented by providers that can report which source supplied a value.
type ProviderWithSource interface {
	GetWithSource(ctx context.Context, key string) (string, string, error)
}

type cachedValue struct {
	value    string
	provider string
}

// providerInspector caches the values of a Provider and records every key access.
type providerInspector struct {
	provider     Provider
	providerName string

	mu       sync.Mutex
	cache    map[string]cachedValue
	accessed []introspection.ConfigAccess
}

func newProviderInspector(p Provider) *providerInspector {
	return &providerInspector{
		provider:     p,
		providerName: reflectx.TypeNameOf(p),
		cache:        make(map[string]cachedValue),
	}
}

func (i *providerInspector) record(key, provider string, usedDefault bool, componentType reflect.Type, level int) {
	callerFunc, file, line := reflectx.GetCallerName(level + 1)
	caller := reflectx.FormatFunctionName(callerFunc)
	if strings.Contains(caller, "teardown.(*Coordinator).") {
		caller = ""
	}
	component := ""
	if componentType != nil {
		component = reflectx.GetTypeName(componentType)
	}
	if usedDefault {
		provider = ""
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.accessed = append(i.accessed, introspection.ConfigAccess{
		Key:         key,
		Provider:    provider,
		UsedDefault: usedDefault,
		Caller: introspection.Caller{
			Func: caller,
			File: reflectx.FormatFileName(file),
			Line: line,
		},
		Component: component,
		Order:     len(i.accessed) + 1,
	})
}

// get returns the value of key, from the cache when it was read before.
// Failed lookups are never cached; they are recorded only when a default is used.
func (i *providerInspector) get(ctx context.Context, key string, useDefault bool, componentType reflect.Type, level int) (string, error) {
	i.mu.Lock()
	cached, ok := i.cache[key]
	i.mu.Unlock()
	if ok {
		i.record(key, cached.provider, false, componentType, level)
		return cached.value, nil
	}

	var (
		value        string
		providerName string
		err          error
	)
	if sp, ok := i.provider.(ProviderWithSource); ok {
		value, providerName, err = sp.GetWithSource(ctx, key)
	} else {
		value, err = i.provider.Get(ctx, key)
		providerName = i.providerName
	}

	if err != nil {
		if useDefault {
			i.record(key, providerName, true, componentType, level)
		}
		return "", err
	}

	i.mu.Lock()
	i.cache[key] = cachedValue{value: value, provider: providerName}
	i.mu.Unlock()
	i.record(key, providerName, false, componentType, level)
	return value, nil
}

func (i *providerInspector) accesses() []introspection.ConfigAccess {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]introspection.ConfigAccess, len(i.accessed))
	copy(out, i.accessed)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Key != out[b].Key {
			return out[a].Key < out[b].Key
		}
		if out[a].Caller.File != out[b].Caller.File {
			return out[a].Caller.File < out[b].Caller.File
		}
		return out[a].Caller.Line < out[b].Caller.Line
	})
	return out
}
