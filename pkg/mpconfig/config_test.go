package mpconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 12, cfg.Engine.MinLogLength)
	assert.Equal(t, 32, cfg.Engine.MaxLogLength)
	assert.True(t, cfg.Engine.DelayedAllocation)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	yaml := []byte(`
engine:
  min_log_length: 4
  max_log_length: 20
  delayed_allocation: false
log:
  level: debug
`)
	cfg, err := LoadFromReader("yaml", yaml)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.MinLogLength)
	assert.Equal(t, 20, cfg.Engine.MaxLogLength)
	assert.False(t, cfg.Engine.DelayedAllocation)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetOrElseFallsBackOnMissingOrWrongType(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 99, GetOrElse(cfg, "engine.nonexistent", 99))
	// min_log_length is set (default) but requesting it as a string should fall back.
	assert.Equal(t, "fallback", GetOrElse(cfg, "engine.min_log_length", "fallback"))
	assert.Equal(t, 12, GetOrElse(cfg, "engine.min_log_length", 0))
}
