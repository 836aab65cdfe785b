// Package config implements the host's deployment-time configuration:
// the defaults an Agent and Evaluator fall back to absent an explicit
// per-call override, loaded from YAML. Grounded on
// original_source/tic/agent/core.py's timeout_seconds default and
// nakama's server/config.go (a YAML-backed Config struct parsed at
// startup), adapted since this module has no CLI flag surface of
// nakama's size.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig is the host's deployment-time configuration, distinct from
// the per-program Agent registration done in Go code (see SPEC_FULL.md
// §2.3). Zero-value fields are filled in by Default/Load.
type RuntimeConfig struct {
	// DefaultTimeoutSeconds is the wall-clock budget a program gets absent
	// an explicit override, grounded on agent/core.py's
	// `timeout_seconds: float = 5.0` default.
	DefaultTimeoutSeconds float64 `yaml:"default_timeout_seconds"`

	// MaxRangeSize caps the length of a range() call's materialized list,
	// an independent resource guard against allocation blow-ups inside one
	// statement (spec.md §5).
	MaxRangeSize int `yaml:"max_range_size"`

	// KVBackend selects the Store implementation: "memory" or "postgres".
	KVBackend string `yaml:"kv_backend"`

	// PostgresDSN is the connection string used when KVBackend is
	// "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`

	// Primer is the default agent primer string, carried through
	// fingerprinting the same way original_source/tic/agent/core.py does.
	Primer string `yaml:"primer"`

	Logger LoggerConfig `yaml:"logger"`
}

// LoggerConfig mirrors the handful of knobs nakama's server/logger.go
// exposes for its zap setup, scaled to what this module needs.
type LoggerConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	File     string `yaml:"file"`     // empty means stdout only
	Rotation bool   `yaml:"rotation"` // rotate File via lumberjack
	MaxSize  int    `yaml:"max_size"` // megabytes
	MaxAge   int    `yaml:"max_age"`  // days
	MaxBackups int  `yaml:"max_backups"`
	Compress bool   `yaml:"compress"`
}

// Default returns the configuration used when no YAML file is supplied.
func Default() *RuntimeConfig {
	return &RuntimeConfig{
		DefaultTimeoutSeconds: 5.0,
		MaxRangeSize:          10_000,
		KVBackend:             "memory",
		Logger:                LoggerConfig{Level: "info"},
	}
}

// Load reads and parses a RuntimeConfig from a YAML file at path, filling
// any unset field from Default(). Grounded on nakama's pattern of loading
// a Config struct from YAML at startup (server/config.go's ParseArgs),
// scaled down from nakama's flag+file+env layering to a single file read
// since this module has no CLI flag surface of that size.
func Load(path string) (*RuntimeConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.MaxRangeSize <= 0 {
		cfg.MaxRangeSize = Default().MaxRangeSize
	}
	if cfg.DefaultTimeoutSeconds <= 0 {
		cfg.DefaultTimeoutSeconds = Default().DefaultTimeoutSeconds
	}
	if cfg.KVBackend == "" {
		cfg.KVBackend = "memory"
	}
	return cfg, nil
}
