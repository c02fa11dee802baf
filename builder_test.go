package laminar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuild(t *testing.T) {
	w := &memWriter{}

	logger, err := NewBuilder().
		Name("built").
		DefaultLayer("app").
		Layer("app", LevelInfo, SinkConfig{
			MaxBufferSize: 1,
			Formatter:     echoFormatter{},
			Writer:        w,
		}).
		Context("env", "test").
		Build()
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "built", logger.Name())

	logger.Info("hello")
	assert.Equal(t, []string{"hello"}, w.Lines())
}

func TestBuilderConfig(t *testing.T) {
	cfg, err := NewBuilder().
		Name("cfg").
		Async(true).
		Workers(3).
		PrimaryQueueSize(512).
		OverflowQueueSize(1024).
		FlushIntervalMs(50).
		ShutdownGraceMs(500).
		MaxLogRate(100).
		CaptureCaller(true).
		InternalErrorsToStderr(true).
		Config()
	require.NoError(t, err)

	assert.Equal(t, "cfg", cfg.Name)
	assert.True(t, cfg.Async)
	assert.Equal(t, int64(3), cfg.Workers)
	assert.Equal(t, int64(512), cfg.PrimaryQueueSize)
	assert.Equal(t, int64(1024), cfg.OverflowQueueSize)
	assert.Equal(t, int64(50), cfg.FlushIntervalMs)
	assert.Equal(t, int64(500), cfg.ShutdownGraceMs)
	assert.Equal(t, int64(100), cfg.MaxLogRate)
	assert.True(t, cfg.CaptureCaller)
	assert.True(t, cfg.InternalErrorsToStderr)
}

func TestBuilderAccumulatesErrors(t *testing.T) {
	_, err := NewBuilder().
		Name("").
		Workers(-1).
		PrimaryQueueSize(0).
		Build()
	require.Error(t, err)

	// Every invalid call is reported, not just the first
	assert.Contains(t, err.Error(), "name cannot be empty")
	assert.Contains(t, err.Error(), "workers cannot be negative")
	assert.Contains(t, err.Error(), "primary queue size must be positive")
}

func TestBuilderInvalidLayer(t *testing.T) {
	_, err := NewBuilder().
		Layer("", LevelInfo, SinkConfig{Writer: &memWriter{}}).
		Build()
	assert.Error(t, err)
}

func TestBuilderRedactorAndConcurrency(t *testing.T) {
	cfg, err := NewBuilder().
		Redactor(upperRedactor{}).
		Concurrency(FixedWorkers(2)).
		Config()
	require.NoError(t, err)

	assert.NotNil(t, cfg.Redactor)
	require.NotNil(t, cfg.Concurrency)
	assert.Equal(t, 2, cfg.Concurrency())
}
