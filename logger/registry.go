package logger

import (
	"slices"
	"sync"
)

// Component names of the loggers used during a test run.
const (
	ComponentAppium        = "appium"
	ComponentApplication   = "application"
	ComponentLocalService  = "appium-server"
	ComponentHooks         = "application-hooks"
	ComponentObjectFactory = "object-factory"
	ComponentRunner        = "runner"
	ComponentLocator       = "services"
)

// DefaultComponents are seeded by RegisterDefaults when no names are given.
var DefaultComponents = []string{
	ComponentAppium,
	ComponentApplication,
	ComponentLocalService,
	ComponentHooks,
	ComponentObjectFactory,
	ComponentRunner,
	ComponentLocator,
}

var registry = struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register stores the logger used for the named component.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get returns the logger of a component. Unregistered components get the
// global logger tagged with the name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults tags the current global logger with each name and
// registers the result. Without names it seeds DefaultComponents.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = DefaultComponents
	}
	global := GetGlobalLogger()
	for _, name := range names {
		Register(name, global.WithComponent(name))
	}
}

// Registered returns the registered component names, sorted.
func Registered() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.loggers))
	for name := range registry.loggers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resetRegistry drops every registered logger. Init calls it because the
// registered loggers write through the global logger they were built from.
func resetRegistry() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	clear(registry.loggers)
}
