package laminar

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWriter captures flushed batches in memory
type memWriter struct {
	mu      sync.Mutex
	batches [][]string
	closed  bool
	failing bool
}

func (w *memWriter) Write(batch []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failing {
		return errors.New("write failed")
	}
	cp := make([]string, len(batch))
	copy(cp, batch)
	w.batches = append(w.batches, cp)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) Batches() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([][]string, len(w.batches))
	copy(cp, w.batches)
	return cp
}

func (w *memWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var lines []string
	for _, b := range w.batches {
		lines = append(lines, b...)
	}
	return lines
}

func (w *memWriter) SetFailing(failing bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failing = failing
}

// echoFormatter renders just the message, keeping assertions simple
type echoFormatter struct{}

func (echoFormatter) Format(r *Record) (string, error) {
	return r.Message, nil
}

// createTestLogger creates a sync logger with one in-memory sink on
// the default layer
func createTestLogger(t *testing.T, mutate ...func(*Config)) (*Logger, *memWriter) {
	t.Helper()
	w := &memWriter{}

	cfg := DefaultConfig()
	cfg.Layers = map[string]LayerSpec{
		"default": {
			Threshold: LevelDebug,
			Destinations: []SinkConfig{{
				MaxBufferSize: 3,
				Formatter:     echoFormatter{},
				Writer:        w,
			}},
		},
	}
	for _, m := range mutate {
		m(cfg)
	}

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	return logger, w
}

func TestNewLoggerDefaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "laminar", logger.Name())
	assert.Equal(t, PhaseInitialized, logger.state.Phase())
}

func TestNewLoggerInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Name = ""
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestLoggerBufferedDelivery(t *testing.T) {
	logger, w := createTestLogger(t)
	defer logger.Close()

	logger.Info("A")
	logger.Info("B")
	assert.Empty(t, w.Batches(), "buffer below size trigger should not flush")

	logger.Info("C")
	batches := w.Batches()
	require.Len(t, batches, 1, "size trigger should produce exactly one batched write")
	assert.Equal(t, []string{"A", "B", "C"}, batches[0])
}

func TestLoggerLevelThreshold(t *testing.T) {
	logger, w := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Threshold = LevelWarn
		cfg.Layers["default"] = spec
	})

	logger.Debug("skipped")
	logger.Info("skipped")
	logger.Warn("kept")
	logger.Error("kept too")

	require.NoError(t, logger.Close())
	assert.Equal(t, []string{"kept", "kept too"}, w.Lines())
	assert.Equal(t, uint64(2), logger.Stats().Processed)
}

func TestLoggerExplicitLayerFallsBack(t *testing.T) {
	logger, w := createTestLogger(t)

	// Unknown layer falls back to the default layer
	logger.Log(LevelInfo, "nonexistent", "routed")
	require.NoError(t, logger.Close())
	assert.Equal(t, []string{"routed"}, w.Lines())
}

func TestLoggerNoLayersIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("goes nowhere")
	assert.Zero(t, logger.Stats().Processed)
	require.NoError(t, logger.Close())
}

func TestLoggerScope(t *testing.T) {
	w := &memWriter{}
	auditW := &memWriter{}

	cfg := DefaultConfig()
	cfg.Layers = map[string]LayerSpec{
		"default": {
			Threshold:    LevelDebug,
			Destinations: []SinkConfig{{MaxBufferSize: 1, Formatter: echoFormatter{}, Writer: w}},
		},
		"audit": {
			Threshold:    LevelInfo,
			Destinations: []SinkConfig{{MaxBufferSize: 1, Formatter: echoFormatter{}, Writer: auditW}},
		},
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	defer logger.Close()

	audit := logger.Layer("audit")
	audit.Info("login")
	audit.Debug("below audit threshold")
	logger.Info("app event")

	assert.Equal(t, []string{"login"}, auditW.Lines())
	assert.Equal(t, []string{"app event"}, w.Lines())
}

func TestLoggerLogBatch(t *testing.T) {
	logger, w := createTestLogger(t)

	logger.LogBatch(LevelInfo, "", []string{"one", "two", "three", "four"})
	require.NoError(t, logger.Close())

	assert.Equal(t, []string{"one", "two", "three", "four"}, w.Lines())
	assert.Equal(t, uint64(4), logger.Stats().Processed)
}

func TestLoggerFlush(t *testing.T) {
	logger, w := createTestLogger(t)
	defer logger.Close()

	logger.Info("pending")
	assert.Empty(t, w.Batches())

	logger.Flush()
	assert.Equal(t, []string{"pending"}, w.Lines())
}

func TestLoggerCloseFlushesAndIsIdempotent(t *testing.T) {
	logger, w := createTestLogger(t)

	logger.Info("last words")
	require.NoError(t, logger.Close())

	assert.Equal(t, []string{"last words"}, w.Lines())
	assert.True(t, w.closed)

	// Second close is a no-op
	require.NoError(t, logger.Close())

	// Logging after close is silently ignored
	logger.Info("ignored")
	assert.Equal(t, []string{"last words"}, w.Lines())
	assert.Equal(t, PhaseClosed, logger.state.Phase())
}

type upperRedactor struct{}

func (upperRedactor) Process(message string) (string, error) {
	return strings.ToUpper(message), nil
}

type failingRedactor struct{}

func (failingRedactor) Process(string) (string, error) {
	return "", errors.New("redact failed")
}

type panickyRedactor struct{}

func (panickyRedactor) Process(string) (string, error) {
	panic("redactor bug")
}

func TestLoggerRedaction(t *testing.T) {
	logger, w := createTestLogger(t, func(cfg *Config) {
		cfg.Redactor = upperRedactor{}
	})

	logger.Info("secret")
	require.NoError(t, logger.Close())
	assert.Equal(t, []string{"SECRET"}, w.Lines())
}

func TestLoggerRedactionFailOpen(t *testing.T) {
	logger, w := createTestLogger(t, func(cfg *Config) {
		cfg.Redactor = failingRedactor{}
	})

	logger.Info("original kept")
	require.NoError(t, logger.Close())
	assert.Equal(t, []string{"original kept"}, w.Lines())
}

func TestLoggerRedactionPanicFailOpen(t *testing.T) {
	logger, w := createTestLogger(t, func(cfg *Config) {
		cfg.Redactor = panickyRedactor{}
	})

	logger.Info("still delivered")
	require.NoError(t, logger.Close())
	assert.Equal(t, []string{"still delivered"}, w.Lines())
}

func TestLoggerRateLimit(t *testing.T) {
	logger, _ := createTestLogger(t, func(cfg *Config) {
		cfg.MaxLogRate = 5
	})
	defer logger.Close()

	for i := 0; i < 50; i++ {
		logger.Info("burst")
	}

	st := logger.Stats()
	assert.Positive(t, st.RateLimited)
	assert.Equal(t, uint64(50), st.Processed+st.RateLimited)
}

func TestLoggerContextStamped(t *testing.T) {
	var got map[string]string
	capture := formatterFunc(func(r *Record) (string, error) {
		got = r.Context
		return r.Message, nil
	})

	cfg := DefaultConfig()
	cfg.Context = map[string]string{"service": "checkout"}
	cfg.Layers = map[string]LayerSpec{
		"default": {
			Threshold:    LevelDebug,
			Destinations: []SinkConfig{{MaxBufferSize: 1, Formatter: capture, Writer: &memWriter{}}},
		},
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("hello")
	assert.Equal(t, map[string]string{"service": "checkout"}, got)
}

func TestLoggerCallerCapture(t *testing.T) {
	var file string
	var line int
	capture := formatterFunc(func(r *Record) (string, error) {
		file, line = r.File, r.Line
		return r.Message, nil
	})

	cfg := DefaultConfig()
	cfg.CaptureCaller = true
	cfg.Layers = map[string]LayerSpec{
		"default": {
			Threshold:    LevelDebug,
			Destinations: []SinkConfig{{MaxBufferSize: 1, Formatter: capture, Writer: &memWriter{}}},
		},
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("where am I")
	assert.Equal(t, "logger_test.go", file)
	assert.Positive(t, line)
}

func TestLoggerAgedFlush(t *testing.T) {
	w := &memWriter{}
	cfg := DefaultConfig()
	cfg.FlushIntervalMs = 10
	cfg.Layers = map[string]LayerSpec{
		"default": {
			Threshold: LevelDebug,
			Destinations: []SinkConfig{{
				MaxBufferSize: 1000,
				MaxBufferAge:  20 * time.Millisecond,
				Formatter:     echoFormatter{},
				Writer:        w,
			}},
		},
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("lonely record")

	assert.Eventually(t, func() bool {
		return len(w.Lines()) == 1
	}, time.Second, 5*time.Millisecond, "flusher should push the record out by age")
}

func TestLoggerConcurrentProducers(t *testing.T) {
	logger, w := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 10000
		cfg.Layers["default"] = spec
	})

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				logger.Info("msg")
			}
		}()
	}
	wg.Wait()

	require.NoError(t, logger.Close())
	assert.Len(t, w.Lines(), producers*perProducer)
	assert.Equal(t, uint64(producers*perProducer), logger.Stats().Processed)
}

func TestLoggerSyncDeliveryContainsSinkPanic(t *testing.T) {
	logger, w := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 1
		spec.Destinations[0].Formatter = panickyFormatter{}
		cfg.Layers["default"] = spec
	})
	defer logger.Close()

	assert.NotPanics(t, func() {
		logger.Info("first")
		logger.Error("second")
	})
	assert.Empty(t, w.Lines())

	st := logger.Stats()
	assert.Equal(t, uint64(2), st.Processed)
	assert.Equal(t, uint64(2), st.WorkerPanics)
}

// formatterFunc adapts a function to the Formatter interface
type formatterFunc func(r *Record) (string, error)

func (f formatterFunc) Format(r *Record) (string, error) {
	return f(r)
}
