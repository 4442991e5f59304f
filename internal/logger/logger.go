// Package logger provides component-scoped structured logging for the whole
// application on top of charmbracelet/log.
package logger

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is a component-scoped structured logger.
type Logger = log.Logger

var root = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.TimeOnly,
})

// New creates a logger for a specific component. Messages carry the component
// name as a key-value pair.
func New(component string) *Logger {
	return root.With("component", component)
}

// SetDebug switches the global log level between info and debug.
func SetDebug(enabled bool) {
	if enabled {
		root.SetLevel(log.DebugLevel)
	} else {
		root.SetLevel(log.InfoLevel)
	}
}
