package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs.
const (
	EnvPrefix     = "PFE_"
	EnvConfigPath = "PFE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PFE_CONFIG is set
//  3. env (prefix PFE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PFE_QUEUE_SIZE -> queue_size. Keys are flat, so underscores are kept.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return invalid("db_driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver)
	}
	if c.DBDSN == "" {
		return invalid("db_dsn must not be empty")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.QueueSize <= 0 {
		return invalid("queue_size must be positive")
	}
	if c.WorkerCount <= 0 {
		return invalid("worker_count must be positive")
	}
	if c.DedupeSize < 0 {
		return invalid("dedupe_size must not be negative")
	}
	if c.GenerationLatencyMinMS < 0 || c.GenerationLatencyMaxMS < c.GenerationLatencyMinMS {
		return invalid("generation latency range [%d,%d] is invalid", c.GenerationLatencyMinMS, c.GenerationLatencyMaxMS)
	}
	if c.CompareDefaultLookback < 1 || c.CompareDefaultLookback > 20 {
		return invalid("compare_default_lookback must be within [1,20]")
	}
	if c.ArchiveEnabled && c.ArchiveIntervalHours <= 0 {
		return invalid("archive_interval_hours must be positive when archival is enabled")
	}
	if c.ArchiveTimeoutSeconds <= 0 {
		return invalid("archive_timeout_seconds must be positive")
	}
	return nil
}
