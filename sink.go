package laminar

import (
	"sync"
	"sync/atomic"
	"time"
)

// Formatter turns a record into one output line. It is treated as a
// pure function by the engine; a format failure is isolated to the
// sink that hit it. A formatter instance is owned by exactly one sink
// and is only invoked under that sink's lock, so implementations may
// keep internal scratch buffers.
type Formatter interface {
	Format(r *Record) (string, error)
}

// Default buffer tuning. Console-class sinks favor latency, file-class
// sinks favor throughput.
const (
	DefaultConsoleBufferSize = 5000
	DefaultConsoleBufferAge  = 500 * time.Millisecond
	DefaultFileBufferSize    = 50000
	DefaultFileBufferAge     = 5 * time.Second
)

// SinkConfig describes one destination of a layer.
type SinkConfig struct {
	// Threshold filters records below this level.
	Threshold Level
	// MaxBufferSize triggers a flush when the buffer reaches this
	// many records. Defaults to DefaultConsoleBufferSize.
	MaxBufferSize int
	// MaxBufferAge triggers a flush when the oldest buffered record
	// has waited this long. Defaults to DefaultConsoleBufferAge.
	MaxBufferAge time.Duration
	// Formatter renders records; nil selects a minimal built-in.
	Formatter Formatter
	// Writer receives flushed batches. Required.
	Writer BatchWriter
	// Backup, when set, receives batches whose write failed.
	Backup Backup
}

// Sink is a buffered batching consumer of records. Records passing the
// level threshold are formatted and appended to the buffer; the buffer
// is flushed as one batched write when it reaches MaxBufferSize or
// when MaxBufferAge elapses. All buffer access happens under the
// sink's own mutex, callers need no external locking.
type Sink struct {
	threshold Level
	maxSize   int
	maxAge    time.Duration
	formatter Formatter
	writer    BatchWriter
	backup    Backup

	mu        sync.Mutex
	buf       []string
	lastFlush time.Time

	writeErrors  atomic.Uint64
	formatErrors atomic.Uint64
	flushes      atomic.Uint64
	closed       atomic.Bool
}

// NewSink creates a sink from the destination spec. The sink owns the
// writer for its entire lifetime and releases it exactly once, in
// Close.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = DefaultConsoleBufferSize
	}
	if cfg.MaxBufferAge <= 0 {
		cfg.MaxBufferAge = DefaultConsoleBufferAge
	}
	if cfg.Formatter == nil {
		cfg.Formatter = basicFormatter{}
	}
	return &Sink{
		threshold: cfg.Threshold,
		maxSize:   cfg.MaxBufferSize,
		maxAge:    cfg.MaxBufferAge,
		formatter: cfg.Formatter,
		writer:    cfg.Writer,
		backup:    cfg.Backup,
		buf:       make([]string, 0, cfg.MaxBufferSize),
		lastFlush: time.Now(),
	}
}

// Threshold returns the sink's level filter.
func (s *Sink) Threshold() Level {
	return s.threshold
}

// Accept filters, formats and buffers a record, flushing if either
// trigger fires. Safe under concurrent callers; records from a single
// producer reach the buffer in submission order.
func (s *Sink) Accept(r *Record) {
	if s.closed.Load() || r.Level < s.threshold {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}

	line, err := s.formatter.Format(r)
	if err != nil {
		// The record is lost for this sink only
		s.formatErrors.Add(1)
		return
	}
	s.buf = append(s.buf, line)

	if len(s.buf) >= s.maxSize || time.Since(s.lastFlush) >= s.maxAge {
		s.flushLocked()
	}
}

// Flush writes out any buffered records immediately.
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// FlushAged flushes only if the age trigger has fired. Called by the
// owning façade's periodic flusher.
func (s *Sink) FlushAged(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) > 0 && now.Sub(s.lastFlush) >= s.maxAge {
		s.flushLocked()
	}
}

// flushLocked issues one batched write and clears the buffer. A failed
// write is absorbed: the error counter is incremented and the batch is
// handed to the backup spool when one is configured. The caller must
// hold s.mu.
func (s *Sink) flushLocked() {
	s.lastFlush = time.Now()
	if len(s.buf) == 0 {
		return
	}

	batch := s.buf
	s.buf = make([]string, 0, s.maxSize)

	if err := s.writer.Write(batch); err != nil {
		s.writeErrors.Add(1)
		if s.backup != nil {
			_ = s.backup.Backup(batch)
		}
		return
	}
	s.flushes.Add(1)
}

// Close performs a final flush and releases the writer. Idempotent; a
// second call is a no-op.
func (s *Sink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	s.flushLocked()
	s.mu.Unlock()
	return s.writer.Close()
}

// WriteErrors returns the count of failed batch writes.
func (s *Sink) WriteErrors() uint64 {
	return s.writeErrors.Load()
}

// FormatErrors returns the count of records lost to format failures.
func (s *Sink) FormatErrors() uint64 {
	return s.formatErrors.Load()
}

// basicFormatter is the fallback when a destination spec carries no
// formatter: timestamp, level and message, space separated.
type basicFormatter struct{}

func (basicFormatter) Format(r *Record) (string, error) {
	return r.Time.Format(time.RFC3339Nano) + " " + r.Level.String() + " " + r.Message, nil
}
