package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds an adapter from its dependencies.
type Constructor func(deps Deps) Adapter

var (
	mu       sync.RWMutex
	registry = make(map[string]Constructor)
)

// Register adds a constructor to the global registry. Called from provider
// package init functions.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// New builds the adapter registered under name.
func New(name string, deps Deps) (Adapter, error) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source: %s (known: %v)", name, List())
	}
	return ctor(deps), nil
}

// List returns all registered source names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
