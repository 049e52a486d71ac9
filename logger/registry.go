package logger

import (
	"sync"
)

// Component names used across cloudbatch.
const (
	ComponentBatch       = "batch"
	ComponentMultiplexer = "multiplexer"
	ComponentTransport   = "transport"
	ComponentObjectStore = "objectstore"
)

var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger in the registry.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get retrieves a named logger. If the name is not registered it returns the
// global logger tagged with the requested component name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults seeds the registry with a component logger for every
// cloudbatch component. Call it after Init.
func RegisterDefaults() {
	for _, name := range []string{ComponentBatch, ComponentMultiplexer, ComponentTransport, ComponentObjectStore} {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}

// reset drops every registered logger.
func reset() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers = make(map[string]*Logger)
}
