package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFillsSaneValues(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.DefaultTimeoutSeconds, 0.0)
	assert.Greater(t, cfg.MaxRangeSize, 0)
	assert.Equal(t, "memory", cfg.KVBackend)
}

func TestLoadParsesYAMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_timeout_seconds: 2.5
max_range_size: 500
kv_backend: postgres
postgres_dsn: "postgres://localhost/tic"
primer: "you are a helpful agent"
logger:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.DefaultTimeoutSeconds)
	assert.Equal(t, 500, cfg.MaxRangeSize)
	assert.Equal(t, "postgres", cfg.KVBackend)
	assert.Equal(t, "postgres://localhost/tic", cfg.PostgresDSN)
	assert.Equal(t, "you are a helpful agent", cfg.Primer)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadFillsUnsetNumericFieldsFromDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`primer: "hi"`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().MaxRangeSize, cfg.MaxRangeSize)
	assert.Equal(t, Default().DefaultTimeoutSeconds, cfg.DefaultTimeoutSeconds)
	assert.Equal(t, "memory", cfg.KVBackend)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLoggerBuildsConsoleLoggerByDefault(t *testing.T) {
	logger := NewLogger(LoggerConfig{Level: "debug"})
	require.NotNil(t, logger)
	logger.Debug("hello from test")
}

func TestNewLoggerWithRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(LoggerConfig{
		Level:    "info",
		File:     filepath.Join(dir, "tic.log"),
		Rotation: true,
		MaxSize:  1,
		MaxAge:   1,
	})
	require.NotNil(t, logger)
	logger.Info("hello from rotating logger")
	logger.Sync()
}
