package modules

import (
	"sort"
	"sync"

	"github.com/kbukum/mobilekit/di"
)

// ServiceModuleName is the name of the service module.
const ServiceModuleName = "service"

// NewServiceModule binds the services shared by step definitions within a
// scenario. It needs a scenario scope bound by another module.
func NewServiceModule() di.Module {
	return di.NewModule(ServiceModuleName, func(b *di.Binder) error {
		di.Provide[*ScenarioContext](b, di.Scenario, NewScenarioContext)
		return nil
	})
}

// ScenarioContext is a key/value store that lives for one scenario. Step
// definition types receiving it share state without package variables.
type ScenarioContext struct {
	id     string
	mu     sync.RWMutex
	values map[string]any
}

// NewScenarioContext creates the store of the scenario scope currently
// entered.
func NewScenarioContext(scope *di.ScenarioScope) *ScenarioContext {
	return &ScenarioContext{id: scope.ID(), values: make(map[string]any)}
}

// ID returns the id of the scenario scope the store belongs to.
func (c *ScenarioContext) ID() string { return c.id }

// Set stores value under key.
func (c *ScenarioContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *ScenarioContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the stored keys in sorted order.
func (c *ScenarioContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close drops the stored values when the scenario ends.
func (c *ScenarioContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.values)
	return nil
}

// Value returns the value stored under key as T.
func Value[T any](c *ScenarioContext, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
