package compat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laminarlog/laminar"
)

// captureWriter collects delivered lines
type captureWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *captureWriter) Write(batch []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, batch...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func (w *captureWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([]string, len(w.lines))
	copy(cp, w.lines)
	return cp
}

// levelMessageFormatter renders "LEVEL message" for easy assertions
type levelMessageFormatter struct{}

func (levelMessageFormatter) Format(r *laminar.Record) (string, error) {
	return r.Level.String() + " " + r.Message, nil
}

// createTestCompatLogger creates a sync logger delivering every record
// immediately to an in-memory writer
func createTestCompatLogger(t *testing.T) (*laminar.Logger, *captureWriter) {
	t.Helper()
	w := &captureWriter{}

	logger, err := laminar.NewBuilder().
		Name("compat").
		Layer("default", laminar.LevelDebug, laminar.SinkConfig{
			MaxBufferSize: 1,
			Formatter:     levelMessageFormatter{},
			Writer:        w,
		}).
		Build()
	require.NoError(t, err)
	return logger, w
}

func TestGnetAdapterLevels(t *testing.T) {
	logger, w := createTestCompatLogger(t)
	defer logger.Close()

	adapter := NewGnetAdapter(logger)
	adapter.Debugf("debug %d", 1)
	adapter.Infof("info %d", 2)
	adapter.Warnf("warn %d", 3)
	adapter.Errorf("error %d", 4)

	assert.Equal(t, []string{
		"DEBUG debug 1",
		"INFO info 2",
		"WARN warn 3",
		"ERROR error 4",
	}, w.Lines())
}

func TestGnetAdapterFatal(t *testing.T) {
	logger, w := createTestCompatLogger(t)
	defer logger.Close()

	var fatalMsg string
	adapter := NewGnetAdapter(logger, WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))

	adapter.Fatalf("boom: %s", "cause")

	assert.Equal(t, "boom: cause", fatalMsg)
	require.Len(t, w.Lines(), 1)
	assert.Equal(t, "ERROR boom: cause", w.Lines()[0])
}

func TestGnetAdapterLayerOption(t *testing.T) {
	w := &captureWriter{}
	logger, err := laminar.NewBuilder().
		Name("compat").
		Layer("default", laminar.LevelDebug, laminar.SinkConfig{
			MaxBufferSize: 1,
			Formatter:     levelMessageFormatter{},
			Writer:        &captureWriter{},
		}).
		Layer("net", laminar.LevelDebug, laminar.SinkConfig{
			MaxBufferSize: 1,
			Formatter:     levelMessageFormatter{},
			Writer:        w,
		}).
		Build()
	require.NoError(t, err)
	defer logger.Close()

	adapter := NewGnetAdapter(logger, WithGnetLayer("net"))
	adapter.Infof("routed")

	assert.Equal(t, []string{"INFO routed"}, w.Lines())
}

func TestFastHTTPAdapterDetection(t *testing.T) {
	logger, w := createTestCompatLogger(t)
	defer logger.Close()

	adapter := NewFastHTTPAdapter(logger)
	adapter.Printf("request served in %dms", 12)
	adapter.Printf("error when reading request")
	adapter.Printf("warning: slow handler")
	adapter.Printf("debug dump follows")

	assert.Equal(t, []string{
		"INFO request served in 12ms",
		"ERROR error when reading request",
		"WARN warning: slow handler",
		"DEBUG debug dump follows",
	}, w.Lines())
}

func TestFastHTTPAdapterCustomDetector(t *testing.T) {
	logger, w := createTestCompatLogger(t)
	defer logger.Close()

	adapter := NewFastHTTPAdapter(logger,
		WithDefaultLevel(laminar.LevelWarn),
		WithLevelDetector(func(string) (laminar.Level, bool) {
			return 0, false
		}),
	)
	adapter.Printf("anything")

	assert.Equal(t, []string{"WARN anything"}, w.Lines())
}

func TestDetectLogLevel(t *testing.T) {
	tests := []struct {
		msg  string
		want laminar.Level
	}{
		{"connection failed", laminar.LevelError},
		{"PANIC in handler", laminar.LevelError},
		{"deprecated option used", laminar.LevelWarn},
		{"trace output", laminar.LevelDebug},
		{"listening on :8080", laminar.LevelInfo},
	}
	for _, tt := range tests {
		got, ok := DetectLogLevel(tt.msg)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, tt.msg)
	}
}
