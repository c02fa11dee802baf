package laminar

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/lixenwraith/config"
)

// Redactor is the optional message-scrubbing hook applied before
// dispatch. It is fail-open: an error (or panic) leaves the original
// message untouched.
type Redactor interface {
	Process(message string) (string, error)
}

// LayerSpec describes one layer's threshold and destinations in a
// Config. Destinations are opaque to the engine: formatters and
// writers arrive already constructed and validated.
type LayerSpec struct {
	Threshold    Level
	Destinations []SinkConfig
}

// Config holds all engine configuration. Tuning fields carry TOML tags
// and load from file or environment; the layer topology and the
// collaborator hooks are wired programmatically (via the Builder or a
// literal) because they hold live object references.
type Config struct {
	// Basic settings
	Name         string `toml:"name"`          // Logger name stamped on records
	DefaultLayer string `toml:"default_layer"` // Fallback layer name

	// Async pipeline
	Async             bool  `toml:"async"`               // Use the queue-backed pipeline
	PrimaryQueueSize  int64 `toml:"primary_queue_size"`  // Primary queue capacity
	OverflowQueueSize int64 `toml:"overflow_queue_size"` // Overflow queue capacity
	Workers           int64 `toml:"workers"`             // Worker slots (0 = policy default)
	ShutdownGraceMs   int64 `toml:"shutdown_grace_ms"`   // Drain deadline on close

	// Timers and limits
	FlushIntervalMs int64 `toml:"flush_interval_ms"` // Periodic age-flush check
	MaxLogRate      int64 `toml:"max_log_rate"`      // Records/sec cap (0 = unlimited)

	// Features
	CaptureCaller          bool `toml:"capture_caller"`            // Opt-in call site capture
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Engine diagnostics to stderr

	// Topology and collaborators (not file-loadable)
	Layers      map[string]LayerSpec `toml:"-"`
	Context     map[string]string    `toml:"-"` // Stamped on every record
	Redactor    Redactor             `toml:"-"`
	Concurrency ConcurrencyPolicy    `toml:"-"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Name:         "laminar",
	DefaultLayer: "default",

	Async:             false,
	PrimaryQueueSize:  DefaultPrimaryCapacity,
	OverflowQueueSize: DefaultOverflowCapacity,
	Workers:           0,
	ShutdownGraceMs:   2000,

	FlushIntervalMs: 100,
	MaxLogRate:      0,

	CaptureCaller:          false,
	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration.
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads engine tuning from a TOML file over the
// defaults and returns a validated Config. Layer topology is not
// file-loadable and must be attached afterwards.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	if err := loader.RegisterStruct("laminar.", *cfg); err != nil {
		return nil, fmt.Errorf("laminar: failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("laminar: failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "laminar.", cfg); err != nil {
		return nil, fmt.Errorf("laminar: failed to extract config values: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFromEnvironment derives engine tuning from environment inputs.
// It is a pure function of the lookup and is meant to be evaluated once
// at startup. Variables use the LAMINAR_ prefix with upper-cased TOML
// keys (e.g. LAMINAR_PRIMARY_QUEUE_SIZE).
func ConfigFromEnvironment(lookup func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()

	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		raw, found := lookup("LAMINAR_" + strings.ToUpper(tag))
		if !found {
			continue
		}
		if err := setFieldFromString(v.Field(i), raw); err != nil {
			return nil, fmtErrorf("invalid environment value for %s: %w", tag, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// extractConfig extracts values from the loader into the Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" || tomlTag == "-" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue // Use default value
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// setFieldFromString parses a raw string into a config field
func setFieldFromString(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmtErrorf("logger name cannot be empty")
	}

	if strings.TrimSpace(c.DefaultLayer) == "" {
		return fmtErrorf("default_layer cannot be empty")
	}

	if c.PrimaryQueueSize <= 0 {
		return fmtErrorf("primary_queue_size must be positive: %d", c.PrimaryQueueSize)
	}

	if c.OverflowQueueSize <= 0 {
		return fmtErrorf("overflow_queue_size must be positive: %d", c.OverflowQueueSize)
	}

	if c.Workers < 0 {
		return fmtErrorf("workers cannot be negative: %d", c.Workers)
	}

	if c.ShutdownGraceMs <= 0 {
		return fmtErrorf("shutdown_grace_ms must be positive: %d", c.ShutdownGraceMs)
	}

	if c.FlushIntervalMs <= 0 {
		return fmtErrorf("flush_interval_ms must be positive: %d", c.FlushIntervalMs)
	}

	if c.MaxLogRate < 0 {
		return fmtErrorf("max_log_rate cannot be negative: %d", c.MaxLogRate)
	}

	for name, spec := range c.Layers {
		if strings.TrimSpace(name) == "" {
			return fmtErrorf("layer name cannot be empty")
		}
		for i, dest := range spec.Destinations {
			if dest.Writer == nil {
				return fmtErrorf("layer '%s' destination %d has no writer", name, i)
			}
		}
	}

	return nil
}

// Clone creates a copy of the configuration. Layer and context maps
// are copied; collaborator references are shared.
func (c *Config) Clone() *Config {
	copiedConfig := *c
	if c.Layers != nil {
		copiedConfig.Layers = make(map[string]LayerSpec, len(c.Layers))
		for name, spec := range c.Layers {
			copiedConfig.Layers[name] = spec
		}
	}
	if c.Context != nil {
		copiedConfig.Context = make(map[string]string, len(c.Context))
		for k, v := range c.Context {
			copiedConfig.Context[k] = v
		}
	}
	return &copiedConfig
}
