package laminar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeFanout(t *testing.T) {
	l1, w1 := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 1
		cfg.Layers["default"] = spec
	})
	l2, w2 := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 1
		cfg.Layers["default"] = spec
	})

	c := NewCompositeLogger(l1, l2)
	defer c.Close()

	c.Info("both")
	assert.Equal(t, []string{"both"}, w1.Lines())
	assert.Equal(t, []string{"both"}, w2.Lines())
}

func TestCompositeLogBatch(t *testing.T) {
	l1, w1 := createTestLogger(t)
	l2, w2 := createTestLogger(t)

	c := NewCompositeLogger(l1, l2)
	c.LogBatch(LevelInfo, "", []string{"a", "b", "c"})
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"a", "b", "c"}, w1.Lines())
	assert.Equal(t, []string{"a", "b", "c"}, w2.Lines())
}

// faultyFacade panics on Log and fails on Close
type faultyFacade struct {
	closed bool
}

func (f *faultyFacade) Log(Level, string, string, ...Field) {
	panic("component bug")
}

func (f *faultyFacade) Close() error {
	f.closed = true
	return errors.New("close failed")
}

func TestCompositeComponentIsolation(t *testing.T) {
	faulty := &faultyFacade{}
	healthy, w := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 1
		cfg.Layers["default"] = spec
	})

	c := NewCompositeLogger(faulty, healthy)

	// The faulty component panics; the healthy one still delivers
	c.Info("survives")
	assert.Equal(t, []string{"survives"}, w.Lines())

	err := c.Close()
	assert.Error(t, err, "component close failures are reported")
	assert.True(t, faulty.closed)
	assert.Equal(t, PhaseClosed, healthy.state.Phase(), "all components close despite earlier failures")
}

func TestCompositeSkipsNil(t *testing.T) {
	l, w := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 1
		cfg.Layers["default"] = spec
	})

	c := NewCompositeLogger(nil, l, nil)
	defer c.Close()

	c.Warn("only one")
	assert.Equal(t, []string{"only one"}, w.Lines())
}

func TestCompositeLayeredLog(t *testing.T) {
	l, w := createTestLogger(t, func(cfg *Config) {
		spec := cfg.Layers["default"]
		spec.Destinations[0].MaxBufferSize = 1
		cfg.Layers["default"] = spec
	})

	c := NewCompositeLogger(l)
	defer c.Close()

	c.Log(LevelError, "ops", "routed through fallback")
	assert.Equal(t, []string{"routed through fallback"}, w.Lines())
}
