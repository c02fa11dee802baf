package laminar

import (
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Field is one ordered key/value pair of per-record extras. A slice of
// fields preserves the order the caller supplied, unlike a map.
type Field struct {
	Key   string
	Value any
}

// F is a convenience constructor for a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Record is a single log entry flowing through the pipeline. It is
// populated once by the façade and treated as read-only afterwards:
// sinks format it into their own buffers and never retain a reference,
// so a record can be recycled as soon as the delivery loop returns.
type Record struct {
	Time    time.Time
	Level   Level
	Layer   string
	Logger  string
	Message string

	// Caller context, populated only when caller capture is enabled
	File     string
	Function string
	Line     int

	Extra   []Field
	Context map[string]string
}

var recordPool = sync.Pool{
	New: func() any { return new(Record) },
}

// newRecord fetches a cleared record from the pool.
func newRecord() *Record {
	return recordPool.Get().(*Record)
}

// releaseRecord resets a record and returns it to the pool. The caller
// must guarantee no sink still holds the pointer.
func releaseRecord(r *Record) {
	if r == nil {
		return
	}
	r.Time = time.Time{}
	r.Level = 0
	r.Layer = ""
	r.Logger = ""
	r.Message = ""
	r.File = ""
	r.Function = ""
	r.Line = 0
	r.Extra = r.Extra[:0]
	r.Context = nil
	recordPool.Put(r)
}

// captureCaller resolves the file, function and line of the log call
// site. Walks the stack, this is the opt-in slow path.
func captureCaller(skip int) (file, function string, line int) {
	pc, f, l, ok := runtime.Caller(skip)
	if !ok {
		return "", "", 0
	}
	file = filepath.Base(f)
	line = l
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = filepath.Base(fn.Name())
	}
	return file, function, line
}
