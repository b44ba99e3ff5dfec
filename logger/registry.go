package logger

import "sync"

// components holds component loggers by name (map[string]*Logger).
var components sync.Map

// Register installs l as the logger returned by Get(name).
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger of a component. An unregistered name gets the
// global logger tagged with the component; it is not cached, so a later
// Init still takes effect.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults binds the named components to the current global logger.
// Call it after Init: loggers registered earlier keep the old configuration.
func RegisterDefaults(names ...string) {
	base := GetGlobalLogger()
	for _, name := range names {
		components.Store(name, base.WithComponent(name))
	}
}
