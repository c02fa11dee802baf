package laminar

import (
	"time"

	"golang.org/x/time/rate"
)

// Logger is the delivery-engine façade. It validates lifecycle state,
// builds records and routes them to sinks: inline on the caller's
// goroutine for sync loggers, or through an AsyncDispatcher when the
// configuration enables the queue-backed pipeline.
//
// A Logger is safe for concurrent use without external locking. Once
// Close has been called, every log method is a silent no-op.
type Logger struct {
	name          string
	defaultLayer  string
	router        *LayerRouter
	dispatcher    *AsyncDispatcher // nil for sync loggers
	redactor      Redactor
	limiter       *rate.Limiter
	captureCaller bool
	context       map[string]string
	diagnostics   bool
	shutdownGrace time.Duration

	state     State
	flushStop chan struct{}
	flushDone chan struct{}
}

// NewLogger creates a logger from a validated configuration and starts
// its delivery machinery. A nil config uses defaults (no layers, so
// every log call is a routed no-op).
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	layers := make(map[string]LayerConfig, len(cfg.Layers))
	for name, spec := range cfg.Layers {
		lc := LayerConfig{Threshold: spec.Threshold}
		for _, dest := range spec.Destinations {
			lc.Sinks = append(lc.Sinks, NewSink(dest))
		}
		layers[name] = lc
	}

	l := &Logger{
		name:          cfg.Name,
		defaultLayer:  cfg.DefaultLayer,
		router:        NewLayerRouter(layers, cfg.DefaultLayer),
		redactor:      cfg.Redactor,
		captureCaller: cfg.CaptureCaller,
		context:       cfg.Context,
		diagnostics:   cfg.InternalErrorsToStderr,
		shutdownGrace: time.Duration(cfg.ShutdownGraceMs) * time.Millisecond,
		flushStop:     make(chan struct{}),
		flushDone:     make(chan struct{}),
	}

	if cfg.MaxLogRate > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.MaxLogRate), int(cfg.MaxLogRate))
	}

	if cfg.Async {
		policy := cfg.Concurrency
		if policy == nil && cfg.Workers > 0 {
			policy = FixedWorkers(int(cfg.Workers))
		}
		l.dispatcher = NewAsyncDispatcher(l.router, DispatcherConfig{
			PrimaryCapacity:     int(cfg.PrimaryQueueSize),
			OverflowCapacity:    int(cfg.OverflowQueueSize),
			Concurrency:         policy,
			DiagnosticsToStderr: cfg.InternalErrorsToStderr,
		})
		if err := l.dispatcher.Start(); err != nil {
			return nil, err
		}
	}

	l.state.phase.Store(PhaseInitialized)
	go l.runFlusher(time.Duration(cfg.FlushIntervalMs) * time.Millisecond)

	return l, nil
}

// NewAsyncLogger is shorthand for NewLogger with Async enabled.
func NewAsyncLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.Clone()
	cfg.Async = true
	return NewLogger(cfg)
}

// Name returns the logger name stamped on records.
func (l *Logger) Name() string {
	return l.name
}

// Log emits a record at the given level on the given layer. An empty
// layer targets the default layer.
func (l *Logger) Log(level Level, layer, message string, extra ...Field) {
	l.log(level, layer, message, extra)
}

// Debug logs a message at debug level on the default layer.
func (l *Logger) Debug(message string, extra ...Field) {
	l.log(LevelDebug, "", message, extra)
}

// Info logs a message at info level on the default layer.
func (l *Logger) Info(message string, extra ...Field) {
	l.log(LevelInfo, "", message, extra)
}

// Warn logs a message at warning level on the default layer.
func (l *Logger) Warn(message string, extra ...Field) {
	l.log(LevelWarn, "", message, extra)
}

// Error logs a message at error level on the default layer.
func (l *Logger) Error(message string, extra ...Field) {
	l.log(LevelError, "", message, extra)
}

// Scope is a layer-bound view of a Logger.
type Scope struct {
	l     *Logger
	layer string
}

// Layer returns a view of the logger bound to the named layer.
func (l *Logger) Layer(name string) *Scope {
	return &Scope{l: l, layer: name}
}

// Debug logs at debug level on the scoped layer.
func (s *Scope) Debug(message string, extra ...Field) {
	s.l.log(LevelDebug, s.layer, message, extra)
}

// Info logs at info level on the scoped layer.
func (s *Scope) Info(message string, extra ...Field) {
	s.l.log(LevelInfo, s.layer, message, extra)
}

// Warn logs at warning level on the scoped layer.
func (s *Scope) Warn(message string, extra ...Field) {
	s.l.log(LevelWarn, s.layer, message, extra)
}

// Error logs at error level on the scoped layer.
func (s *Scope) Error(message string, extra ...Field) {
	s.l.log(LevelError, s.layer, message, extra)
}

// log is the core delivery path: state check, fast reject, record
// build, redaction, dispatch. Nothing here may propagate a failure to
// the caller.
func (l *Logger) log(level Level, layer, message string, extra []Field) {
	if l.state.Phase() != PhaseInitialized {
		return
	}
	if layer == "" {
		layer = l.defaultLayer
	}
	if !l.router.Enabled(layer, level) {
		return
	}
	if l.limiter != nil && !l.limiter.Allow() {
		l.state.RateLimited.Add(1)
		return
	}

	r := newRecord()
	r.Time = time.Now()
	r.Level = level
	r.Layer = layer
	r.Logger = l.name
	r.Message = l.redact(message)
	r.Extra = append(r.Extra, extra...)
	r.Context = l.context
	if l.captureCaller {
		r.File, r.Function, r.Line = captureCaller(3)
	}

	l.deliver(r, layer)
}

// LogBatch is the multi-record intake: one lifecycle and routing check
// for a whole batch of messages sharing level and layer. Composite
// loggers use it for higher throughput fan-out.
func (l *Logger) LogBatch(level Level, layer string, messages []string) {
	if l.state.Phase() != PhaseInitialized {
		return
	}
	if layer == "" {
		layer = l.defaultLayer
	}
	if !l.router.Enabled(layer, level) {
		return
	}

	now := time.Now()
	for _, message := range messages {
		if l.limiter != nil && !l.limiter.Allow() {
			l.state.RateLimited.Add(1)
			continue
		}
		r := newRecord()
		r.Time = now
		r.Level = level
		r.Layer = layer
		r.Logger = l.name
		r.Message = l.redact(message)
		r.Context = l.context
		l.deliver(r, layer)
	}
}

// deliver hands one record to the async queues or routes it inline.
func (l *Logger) deliver(r *Record, layer string) {
	l.state.Processed.Add(1)

	if l.dispatcher != nil {
		if !l.dispatcher.Enqueue(r) {
			l.state.Rejected.Add(1)
		}
		return
	}

	l.deliverInline(r, layer)
}

// deliverInline routes the record on the caller's goroutine. A panic
// from a formatter or writer is contained here, counted and reported
// to the diagnostics sink; it never reaches the application through a
// log call.
func (l *Logger) deliverInline(r *Record, layer string) {
	defer func() {
		if rec := recover(); rec != nil {
			l.state.DeliveryPanics.Add(1)
			internalLogf(l.diagnostics, "delivery recovered from panic: %v\n", rec)
		}
		releaseRecord(r)
	}()

	for _, s := range l.router.Resolve(layer) {
		s.Accept(r)
	}
}

// redact applies the optional message hook, fail-open: on error or
// panic the original message is used.
func (l *Logger) redact(message string) (out string) {
	if l.redactor == nil {
		return message
	}
	out = message
	defer func() {
		if rec := recover(); rec != nil {
			out = message
			internalLogf(l.diagnostics, "redaction hook panicked: %v\n", rec)
		}
	}()
	processed, err := l.redactor.Process(message)
	if err != nil {
		internalLogf(l.diagnostics, "redaction hook failed: %v\n", err)
		return message
	}
	return processed
}

// UpdateLayers replaces the layer topology at runtime. The routing
// table is swapped wholesale; records in flight keep the table they
// resolved against. Sinks from the previous topology are flushed and
// closed after the swap.
func (l *Logger) UpdateLayers(layers map[string]LayerSpec) error {
	if l.state.Phase() != PhaseInitialized {
		return fmtErrorf("logger is not running")
	}

	next := make(map[string]LayerConfig, len(layers))
	for name, spec := range layers {
		if name == "" {
			return fmtErrorf("layer name cannot be empty")
		}
		lc := LayerConfig{Threshold: spec.Threshold}
		for i, dest := range spec.Destinations {
			if dest.Writer == nil {
				return fmtErrorf("layer '%s' destination %d has no writer", name, i)
			}
			lc.Sinks = append(lc.Sinks, NewSink(dest))
		}
		next[name] = lc
	}

	old := l.router.Sinks()
	l.router.Reload(next, l.defaultLayer)

	var err error
	for _, s := range old {
		err = combineErrors(err, s.Close())
	}
	return err
}

// Flush forces every sink to write out its buffered records. Queued
// async records are not waited for; Close drains those.
func (l *Logger) Flush() {
	if l.state.Phase() != PhaseInitialized {
		return
	}
	for _, s := range l.router.Sinks() {
		s.Flush()
	}
}

// Close shuts the logger down: the flusher stops, async loggers drain
// within the configured grace period, and every sink is flushed and
// closed exactly once. Idempotent; a second call returns nil.
func (l *Logger) Close() error {
	if !l.state.transition(PhaseInitialized, PhaseClosing) {
		return nil
	}

	close(l.flushStop)
	<-l.flushDone

	var err error
	if l.dispatcher != nil {
		err = l.dispatcher.Drain(l.shutdownGrace)
	} else {
		for _, s := range l.router.Sinks() {
			err = combineErrors(err, s.Close())
		}
	}

	l.state.phase.Store(PhaseClosed)
	return err
}

// runFlusher periodically fires the age-based flush trigger on every
// sink, so partially filled buffers do not sit past MaxBufferAge.
func (l *Logger) runFlusher(interval time.Duration) {
	defer close(l.flushDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, s := range l.router.Sinks() {
				s.FlushAged(now)
			}
		case <-l.flushStop:
			return
		}
	}
}
