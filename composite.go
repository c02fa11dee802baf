package laminar

// Facade is the minimal surface shared by single and composite
// loggers. Adapters under compat/ are written against it.
type Facade interface {
	Log(level Level, layer, message string, extra ...Field)
	Close() error
}

// BatchFacade extends Facade with multi-record intake.
type BatchFacade interface {
	Facade
	LogBatch(level Level, layer string, messages []string)
}

// CompositeLogger fans every call out to a set of component facades.
// A failing or panicking component never interferes with its
// siblings; delivery order across components is unspecified.
type CompositeLogger struct {
	components []Facade
}

// NewCompositeLogger builds a composite over the given components.
// Nil components are skipped.
func NewCompositeLogger(components ...Facade) *CompositeLogger {
	c := &CompositeLogger{}
	for _, comp := range components {
		if comp != nil {
			c.components = append(c.components, comp)
		}
	}
	return c
}

// Log fans the record out to every component.
func (c *CompositeLogger) Log(level Level, layer, message string, extra ...Field) {
	for _, comp := range c.components {
		c.call(func() { comp.Log(level, layer, message, extra...) })
	}
}

// LogBatch fans a batch out to every component, using the component's
// own batch path when it has one.
func (c *CompositeLogger) LogBatch(level Level, layer string, messages []string) {
	for _, comp := range c.components {
		if bf, ok := comp.(*Logger); ok {
			c.call(func() { bf.LogBatch(level, layer, messages) })
			continue
		}
		if bf, ok := comp.(BatchFacade); ok {
			c.call(func() { bf.LogBatch(level, layer, messages) })
			continue
		}
		c.call(func() {
			for _, m := range messages {
				comp.Log(level, layer, m)
			}
		})
	}
}

// Debug logs at debug level on every component's default layer.
func (c *CompositeLogger) Debug(message string, extra ...Field) {
	c.Log(LevelDebug, "", message, extra...)
}

// Info logs at info level on every component's default layer.
func (c *CompositeLogger) Info(message string, extra ...Field) {
	c.Log(LevelInfo, "", message, extra...)
}

// Warn logs at warning level on every component's default layer.
func (c *CompositeLogger) Warn(message string, extra ...Field) {
	c.Log(LevelWarn, "", message, extra...)
}

// Error logs at error level on every component's default layer.
func (c *CompositeLogger) Error(message string, extra ...Field) {
	c.Log(LevelError, "", message, extra...)
}

// Close closes every component and aggregates their errors. All
// components are closed even when earlier ones fail.
func (c *CompositeLogger) Close() error {
	var err error
	for _, comp := range c.components {
		c.call(func() {
			err = combineErrors(err, comp.Close())
		})
	}
	return err
}

// call runs one component operation with panic isolation.
func (c *CompositeLogger) call(fn func()) {
	defer func() {
		recover()
	}()
	fn()
}
