package compat

import (
	"fmt"
	"os"

	"github.com/laminarlog/laminar"
)

// GnetAdapter wraps a laminar facade to implement the gnet
// logging.Logger interface
type GnetAdapter struct {
	logger       laminar.Facade
	layer        string
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(logger laminar.Facade, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// WithGnetLayer routes adapter output to the named layer
func WithGnetLayer(layer string) GnetOption {
	return func(a *GnetAdapter) {
		a.layer = layer
	}
}

// Debugf logs at debug level with printf-style formatting
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.logger.Log(laminar.LevelDebug, a.layer, fmt.Sprintf(format, args...), laminar.F("source", "gnet"))
}

// Infof logs at info level with printf-style formatting
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.logger.Log(laminar.LevelInfo, a.layer, fmt.Sprintf(format, args...), laminar.F("source", "gnet"))
}

// Warnf logs at warn level with printf-style formatting
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.logger.Log(laminar.LevelWarn, a.layer, fmt.Sprintf(format, args...), laminar.F("source", "gnet"))
}

// Errorf logs at error level with printf-style formatting
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.logger.Log(laminar.LevelError, a.layer, fmt.Sprintf(format, args...), laminar.F("source", "gnet"))
}

// Fatalf logs at error level and triggers the fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Log(laminar.LevelError, a.layer, msg,
		laminar.F("source", "gnet"), laminar.F("fatal", true))

	// Push buffered records out before the handler runs
	if flusher, ok := a.logger.(interface{ Flush() }); ok {
		flusher.Flush()
	}

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
