// Package formatter provides the reference text and JSON record
// formatters. A formatter instance belongs to exactly one sink and is
// invoked under the sink's lock, so the internal buffer is reused
// across calls without synchronization.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"

	"github.com/laminarlog/laminar"
	"github.com/laminarlog/laminar/redact"
)

// dumper renders values that have no direct representation
var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// LevelToString converts level values to their display string
func LevelToString(level laminar.Level) string {
	switch level {
	case laminar.LevelDebug:
		return "DEBUG"
	case laminar.LevelInfo:
		return "INFO"
	case laminar.LevelWarn:
		return "WARN"
	case laminar.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int64(level))
	}
}

// TextFormatter renders records as single-line space-separated text
type TextFormatter struct {
	timestampFormat string
	showTimestamp   bool
	showLevel       bool
	showLayer       bool
	showLogger      bool
	buf             []byte
}

// NewText creates a text formatter with timestamp and level enabled
func NewText() *TextFormatter {
	return &TextFormatter{
		timestampFormat: time.RFC3339Nano,
		showTimestamp:   true,
		showLevel:       true,
		showLayer:       true,
		buf:             make([]byte, 0, 1024),
	}
}

// TimestampFormat sets the timestamp format string
func (f *TextFormatter) TimestampFormat(format string) *TextFormatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// ShowTimestamp sets whether to include the timestamp in output
func (f *TextFormatter) ShowTimestamp(show bool) *TextFormatter {
	f.showTimestamp = show
	return f
}

// ShowLevel sets whether to include the level in output
func (f *TextFormatter) ShowLevel(show bool) *TextFormatter {
	f.showLevel = show
	return f
}

// ShowLayer sets whether to include the layer name in output
func (f *TextFormatter) ShowLayer(show bool) *TextFormatter {
	f.showLayer = show
	return f
}

// ShowLogger sets whether to include the logger name in output
func (f *TextFormatter) ShowLogger(show bool) *TextFormatter {
	f.showLogger = show
	return f
}

// Format renders one record as a single line without a trailing
// newline.
func (f *TextFormatter) Format(r *laminar.Record) (string, error) {
	f.buf = f.buf[:0]
	needsSpace := false

	if f.showTimestamp {
		f.buf = r.Time.AppendFormat(f.buf, f.timestampFormat)
		needsSpace = true
	}
	if f.showLevel {
		f.space(needsSpace)
		f.buf = append(f.buf, LevelToString(r.Level)...)
		needsSpace = true
	}
	if f.showLayer && r.Layer != "" {
		f.space(needsSpace)
		f.buf = append(f.buf, '[')
		f.buf = append(f.buf, r.Layer...)
		f.buf = append(f.buf, ']')
		needsSpace = true
	}
	if f.showLogger && r.Logger != "" {
		f.space(needsSpace)
		f.buf = append(f.buf, r.Logger...)
		needsSpace = true
	}
	if r.File != "" {
		f.space(needsSpace)
		f.buf = append(f.buf, r.File...)
		f.buf = append(f.buf, ':')
		f.buf = strconv.AppendInt(f.buf, int64(r.Line), 10)
		needsSpace = true
	}

	f.space(needsSpace)
	f.writeText(r.Message)

	for _, field := range r.Extra {
		f.buf = append(f.buf, ' ')
		f.buf = append(f.buf, field.Key...)
		f.buf = append(f.buf, '=')
		f.writeValue(field.Value)
	}
	for _, key := range sortedKeys(r.Context) {
		f.buf = append(f.buf, ' ')
		f.buf = append(f.buf, key...)
		f.buf = append(f.buf, '=')
		f.writeText(r.Context[key])
	}

	return string(f.buf), nil
}

func (f *TextFormatter) space(needed bool) {
	if needed && len(f.buf) > 0 {
		f.buf = append(f.buf, ' ')
	}
}

// writeText appends a string, quoting it when it contains characters
// that would break single-line parsing
func (f *TextFormatter) writeText(s string) {
	if !redact.NeedsQuotes(s) {
		f.buf = append(f.buf, s...)
		return
	}
	f.buf = strconv.AppendQuote(f.buf, s)
}

// writeValue appends a field value using its natural representation
func (f *TextFormatter) writeValue(v any) {
	switch val := v.(type) {
	case string:
		f.writeText(val)
	case []byte:
		f.writeText(string(val))
	case int:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int64:
		f.buf = strconv.AppendInt(f.buf, val, 10)
	case uint:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint64:
		f.buf = strconv.AppendUint(f.buf, val, 10)
	case float32:
		f.buf = strconv.AppendFloat(f.buf, float64(val), 'f', -1, 32)
	case float64:
		f.buf = strconv.AppendFloat(f.buf, val, 'f', -1, 64)
	case bool:
		f.buf = strconv.AppendBool(f.buf, val)
	case nil:
		f.buf = append(f.buf, "nil"...)
	case time.Time:
		f.writeText(val.Format(f.timestampFormat))
	case time.Duration:
		f.buf = append(f.buf, val.String()...)
	case error:
		f.writeText(val.Error())
	case fmt.Stringer:
		f.writeText(val.String())
	default:
		var b bytes.Buffer
		dumper.Fdump(&b, val)
		f.writeText(string(bytes.TrimSpace(b.Bytes())))
	}
}

// JSONFormatter renders records as single-line JSON objects
type JSONFormatter struct {
	timestampFormat string
	showTimestamp   bool
	buf             []byte
}

// NewJSON creates a JSON formatter
func NewJSON() *JSONFormatter {
	return &JSONFormatter{
		timestampFormat: time.RFC3339Nano,
		showTimestamp:   true,
		buf:             make([]byte, 0, 1024),
	}
}

// TimestampFormat sets the timestamp format string
func (f *JSONFormatter) TimestampFormat(format string) *JSONFormatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// ShowTimestamp sets whether to include the timestamp in output
func (f *JSONFormatter) ShowTimestamp(show bool) *JSONFormatter {
	f.showTimestamp = show
	return f
}

// Format renders one record as a single-line JSON object without a
// trailing newline.
func (f *JSONFormatter) Format(r *laminar.Record) (string, error) {
	f.buf = f.buf[:0]
	f.buf = append(f.buf, '{')

	if f.showTimestamp {
		f.buf = append(f.buf, `"time":"`...)
		f.buf = r.Time.AppendFormat(f.buf, f.timestampFormat)
		f.buf = append(f.buf, `",`...)
	}
	f.buf = append(f.buf, `"level":"`...)
	f.buf = append(f.buf, LevelToString(r.Level)...)
	f.buf = append(f.buf, '"')

	if r.Layer != "" {
		f.buf = append(f.buf, `,"layer":`...)
		f.writeJSONString(r.Layer)
	}
	if r.Logger != "" {
		f.buf = append(f.buf, `,"logger":`...)
		f.writeJSONString(r.Logger)
	}
	if r.File != "" {
		f.buf = append(f.buf, `,"caller":`...)
		f.writeJSONString(r.File + ":" + strconv.Itoa(r.Line))
		if r.Function != "" {
			f.buf = append(f.buf, `,"function":`...)
			f.writeJSONString(r.Function)
		}
	}

	f.buf = append(f.buf, `,"message":`...)
	f.writeJSONString(r.Message)

	if len(r.Extra) > 0 {
		f.buf = append(f.buf, `,"fields":{`...)
		for i, field := range r.Extra {
			if i > 0 {
				f.buf = append(f.buf, ',')
			}
			f.writeJSONString(field.Key)
			f.buf = append(f.buf, ':')
			f.writeJSONValue(field.Value)
		}
		f.buf = append(f.buf, '}')
	}
	if len(r.Context) > 0 {
		f.buf = append(f.buf, `,"context":{`...)
		for i, key := range sortedKeys(r.Context) {
			if i > 0 {
				f.buf = append(f.buf, ',')
			}
			f.writeJSONString(key)
			f.buf = append(f.buf, ':')
			f.writeJSONString(r.Context[key])
		}
		f.buf = append(f.buf, '}')
	}

	f.buf = append(f.buf, '}')
	return string(f.buf), nil
}

// writeJSONString appends a quoted string with JSON escaping. Only
// controls, quote and backslash are escaped; multibyte runes are
// copied through verbatim so non-ASCII text round-trips intact.
func (f *JSONFormatter) writeJSONString(s string) {
	f.buf = append(f.buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= ' ' && c != '"' && c != '\\' && c < 0x7f {
			start := i
			for i < len(s) && s[i] >= ' ' && s[i] != '"' && s[i] != '\\' && s[i] < 0x7f {
				i++
			}
			f.buf = append(f.buf, s[start:i]...)
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				f.buf = utf8.AppendRune(f.buf, utf8.RuneError)
				i++
				continue
			}
			f.buf = append(f.buf, s[i:i+size]...)
			i += size
			continue
		}
		switch c {
		case '\\', '"':
			f.buf = append(f.buf, '\\', c)
		case '\n':
			f.buf = append(f.buf, '\\', 'n')
		case '\r':
			f.buf = append(f.buf, '\\', 'r')
		case '\t':
			f.buf = append(f.buf, '\\', 't')
		case '\b':
			f.buf = append(f.buf, '\\', 'b')
		case '\f':
			f.buf = append(f.buf, '\\', 'f')
		default:
			f.buf = append(f.buf, fmt.Sprintf("\\u%04x", c)...)
		}
		i++
	}
	f.buf = append(f.buf, '"')
}

// writeJSONValue appends a field value in its JSON representation,
// falling back to a string dump for unmarshalable values
func (f *JSONFormatter) writeJSONValue(v any) {
	switch val := v.(type) {
	case string:
		f.writeJSONString(val)
	case int:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int64:
		f.buf = strconv.AppendInt(f.buf, val, 10)
	case uint:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint64:
		f.buf = strconv.AppendUint(f.buf, val, 10)
	case float32:
		f.buf = strconv.AppendFloat(f.buf, float64(val), 'f', -1, 32)
	case float64:
		f.buf = strconv.AppendFloat(f.buf, val, 'f', -1, 64)
	case bool:
		f.buf = strconv.AppendBool(f.buf, val)
	case nil:
		f.buf = append(f.buf, "null"...)
	case time.Duration:
		f.writeJSONString(val.String())
	case error:
		f.writeJSONString(val.Error())
	default:
		marshaled, err := json.Marshal(val)
		if err != nil {
			var b bytes.Buffer
			dumper.Fdump(&b, val)
			f.writeJSONString(string(bytes.TrimSpace(b.Bytes())))
			return
		}
		f.buf = append(f.buf, marshaled...)
	}
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
