package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Global registry for compiled unions, so transport and storage layers can
// resolve a union by name.
var (
	unionRegistry      = make(map[string]*Union)
	unionRegistryMutex sync.RWMutex
)

// Register adds a compiled union to the process-wide registry. Registering
// two different unions under one name is an error; re-registering the same
// compiled union is a no-op.
func Register(u *Union) error {
	unionRegistryMutex.Lock()
	defer unionRegistryMutex.Unlock()

	if prev, ok := unionRegistry[u.name]; ok {
		if prev == u {
			return nil
		}
		return fmt.Errorf("schema: union %q already registered", u.name)
	}
	unionRegistry[u.name] = u
	return nil
}

// RegisterConfig compiles every union in the configuration and registers it.
func RegisterConfig(c *Config) ([]*Union, error) {
	unions, err := c.Compile()
	if err != nil {
		return nil, err
	}
	for _, u := range unions {
		if err := Register(u); err != nil {
			return nil, err
		}
	}
	return unions, nil
}

// Lookup resolves a registered union by name.
func Lookup(name string) (*Union, bool) {
	unionRegistryMutex.RLock()
	defer unionRegistryMutex.RUnlock()

	u, ok := unionRegistry[name]
	return u, ok
}

// Names returns the registered union names, sorted.
func Names() []string {
	unionRegistryMutex.RLock()
	defer unionRegistryMutex.RUnlock()

	out := make([]string, 0, len(unionRegistry))
	for name := range unionRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
