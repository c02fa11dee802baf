package laminar

import (
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// BatchWriter receives an ordered batch of already-formatted lines and
// persists them. Implementations own their underlying resource (file
// handle, socket) and release it in Close. The engine never retries a
// failed Write; the owning sink counts the error and, when configured,
// hands the batch to its backup spool.
type BatchWriter interface {
	Write(batch []string) error
	Close() error
}

// joinBatch concatenates formatted lines into a single payload,
// appending a newline to any line that lacks one, so a batch is one
// write call on the underlying destination.
func joinBatch(batch []string) []byte {
	size := 0
	for _, line := range batch {
		size += len(line) + 1
	}
	buf := make([]byte, 0, size)
	for _, line := range batch {
		buf = append(buf, line...)
		if !strings.HasSuffix(line, "\n") {
			buf = append(buf, '\n')
		}
	}
	return buf
}

// ConsoleWriter writes batches to stdout or stderr.
type ConsoleWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleWriter creates a console writer for the given target
// ("stdout" or "stderr", anything else defaults to stdout).
func NewConsoleWriter(target string) *ConsoleWriter {
	var w io.Writer
	if target == "stderr" {
		w = os.Stderr
	} else {
		w = os.Stdout
	}
	return &ConsoleWriter{w: w}
}

func (c *ConsoleWriter) Write(batch []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write(joinBatch(batch))
	return err
}

// Close is a no-op; the process owns stdout/stderr.
func (c *ConsoleWriter) Close() error {
	return nil
}

// FileWriter writes batches to a rotating log file. Rotation,
// retention and compression are delegated to lumberjack.
type FileWriter struct {
	mu sync.Mutex
	lj *lumberjack.Logger
}

// FileWriterConfig controls rotation of the destination file. Zero
// values fall back to lumberjack defaults.
type FileWriterConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileWriter creates a rotating file writer. The file is created
// lazily on the first write.
func NewFileWriter(cfg FileWriterConfig) *FileWriter {
	return &FileWriter{
		lj: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}
}

func (f *FileWriter) Write(batch []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.lj.Write(joinBatch(batch))
	return err
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lj.Close()
}

// TCPWriter ships batches over a TCP connection, dialing lazily and
// redialing after a failed write. A batch is not split across
// connections.
type TCPWriter struct {
	mu          sync.Mutex
	addr        string
	dialTimeout time.Duration
	conn        net.Conn
}

// NewTCPWriter creates a writer shipping batches to addr
// (host:port).
func NewTCPWriter(addr string, dialTimeout time.Duration) *TCPWriter {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &TCPWriter{addr: addr, dialTimeout: dialTimeout}
}

func (t *TCPWriter) Write(batch []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		conn, err := net.DialTimeout("tcp", t.addr, t.dialTimeout)
		if err != nil {
			return fmtErrorf("dial %s: %w", t.addr, err)
		}
		t.conn = conn
	}

	if _, err := t.conn.Write(joinBatch(batch)); err != nil {
		// Drop the connection; the next write dials fresh
		_ = t.conn.Close()
		t.conn = nil
		return fmtErrorf("write to %s: %w", t.addr, err)
	}
	return nil
}

func (t *TCPWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// DiscardWriter swallows every batch. Useful as a null destination.
type DiscardWriter struct{}

func (DiscardWriter) Write([]string) error { return nil }
func (DiscardWriter) Close() error         { return nil }
