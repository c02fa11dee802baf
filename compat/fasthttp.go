package compat

import (
	"fmt"
	"strings"

	"github.com/laminarlog/laminar"
)

// FastHTTPAdapter wraps a laminar facade to implement the fasthttp
// Logger interface
type FastHTTPAdapter struct {
	logger        laminar.Facade
	layer         string
	defaultLevel  laminar.Level
	levelDetector func(string) (laminar.Level, bool) // Detects log level from message content
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger laminar.Facade, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  laminar.LevelInfo,
		levelDetector: DetectLogLevel, // Default level detection
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the default log level for Printf calls
func WithDefaultLevel(level laminar.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content
func WithLevelDetector(detector func(string) (laminar.Level, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// WithFastHTTPLayer routes adapter output to the named layer
func WithFastHTTPLayer(layer string) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.layer = layer
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			level = detected
		}
	}

	a.logger.Log(level, a.layer, msg, laminar.F("source", "fasthttp"))
}

// DetectLogLevel attempts to detect log level from message content
func DetectLogLevel(msg string) (laminar.Level, bool) {
	msgLower := strings.ToLower(msg)

	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return laminar.LevelError, true
	}

	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "warning") ||
		strings.Contains(msgLower, "deprecated") {
		return laminar.LevelWarn, true
	}

	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return laminar.LevelDebug, true
	}

	return laminar.LevelInfo, true
}
