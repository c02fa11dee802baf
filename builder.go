package laminar

// Builder provides fluent construction of a Logger. Invalid values
// are recorded and reported once at Build, so call sites can chain
// without per-step error handling.
type Builder struct {
	cfg *Config
	err error
}

// NewBuilder creates a builder seeded with defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// Name sets the logger name stamped on records.
func (b *Builder) Name(name string) *Builder {
	if name == "" {
		b.err = combineErrors(b.err, fmtErrorf("name cannot be empty"))
		return b
	}
	b.cfg.Name = name
	return b
}

// DefaultLayer sets the layer targeted by an empty layer argument.
func (b *Builder) DefaultLayer(layer string) *Builder {
	if layer == "" {
		b.err = combineErrors(b.err, fmtErrorf("default layer cannot be empty"))
		return b
	}
	b.cfg.DefaultLayer = layer
	return b
}

// Async enables the queue-backed asynchronous delivery pipeline.
func (b *Builder) Async(enabled bool) *Builder {
	b.cfg.Async = enabled
	return b
}

// Workers sets the fixed async worker count. Zero keeps the default
// single worker, which preserves per-queue delivery order.
func (b *Builder) Workers(n int64) *Builder {
	if n < 0 {
		b.err = combineErrors(b.err, fmtErrorf("workers cannot be negative: %d", n))
		return b
	}
	b.cfg.Workers = n
	return b
}

// Concurrency installs a worker sizing policy, overriding Workers.
func (b *Builder) Concurrency(policy ConcurrencyPolicy) *Builder {
	b.cfg.Concurrency = policy
	return b
}

// PrimaryQueueSize sets the primary async queue capacity.
func (b *Builder) PrimaryQueueSize(n int64) *Builder {
	if n <= 0 {
		b.err = combineErrors(b.err, fmtErrorf("primary queue size must be positive: %d", n))
		return b
	}
	b.cfg.PrimaryQueueSize = n
	return b
}

// OverflowQueueSize sets the overflow async queue capacity.
func (b *Builder) OverflowQueueSize(n int64) *Builder {
	if n <= 0 {
		b.err = combineErrors(b.err, fmtErrorf("overflow queue size must be positive: %d", n))
		return b
	}
	b.cfg.OverflowQueueSize = n
	return b
}

// FlushIntervalMs sets the period of the age-based flush trigger.
func (b *Builder) FlushIntervalMs(ms int64) *Builder {
	if ms <= 0 {
		b.err = combineErrors(b.err, fmtErrorf("flush interval must be positive: %d", ms))
		return b
	}
	b.cfg.FlushIntervalMs = ms
	return b
}

// ShutdownGraceMs sets the drain deadline applied on Close.
func (b *Builder) ShutdownGraceMs(ms int64) *Builder {
	if ms <= 0 {
		b.err = combineErrors(b.err, fmtErrorf("shutdown grace must be positive: %d", ms))
		return b
	}
	b.cfg.ShutdownGraceMs = ms
	return b
}

// MaxLogRate caps accepted records per second. Zero disables the cap.
func (b *Builder) MaxLogRate(perSecond int64) *Builder {
	if perSecond < 0 {
		b.err = combineErrors(b.err, fmtErrorf("max log rate cannot be negative: %d", perSecond))
		return b
	}
	b.cfg.MaxLogRate = perSecond
	return b
}

// CaptureCaller enables file, function and line capture on records.
func (b *Builder) CaptureCaller(enabled bool) *Builder {
	b.cfg.CaptureCaller = enabled
	return b
}

// Redactor installs the message processing hook.
func (b *Builder) Redactor(r Redactor) *Builder {
	b.cfg.Redactor = r
	return b
}

// InternalErrorsToStderr enables engine diagnostics on stderr.
func (b *Builder) InternalErrorsToStderr(enabled bool) *Builder {
	b.cfg.InternalErrorsToStderr = enabled
	return b
}

// Context sets a static key-value pair stamped on every record.
func (b *Builder) Context(key, value string) *Builder {
	if key == "" {
		b.err = combineErrors(b.err, fmtErrorf("context key cannot be empty"))
		return b
	}
	if b.cfg.Context == nil {
		b.cfg.Context = make(map[string]string)
	}
	b.cfg.Context[key] = value
	return b
}

// Layer declares a layer with its threshold and destinations.
func (b *Builder) Layer(name string, threshold Level, destinations ...SinkConfig) *Builder {
	if name == "" {
		b.err = combineErrors(b.err, fmtErrorf("layer name cannot be empty"))
		return b
	}
	if b.cfg.Layers == nil {
		b.cfg.Layers = make(map[string]LayerSpec)
	}
	b.cfg.Layers[name] = LayerSpec{
		Threshold:    threshold,
		Destinations: destinations,
	}
	return b
}

// Config returns the accumulated configuration without building a
// logger, along with any accumulated errors.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg.Clone(), nil
}

// Build validates the accumulated configuration and creates the
// logger.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewLogger(b.cfg)
}
