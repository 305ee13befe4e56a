// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Flat koanf keys; every key can be overridden with a PFE_ env variable.
//   - New returns defaults, Load layers file and env on top and validates.
package config

import (
	"context"
	"runtime"
	"strings"
	"time"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver selects the evaluation store backend: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver specific data source name.
	DBDSN string `koanf:"db_dsn"`

	// DBMaxOpenConns caps the connection pool. Ignored for sqlite, which is
	// always a single writer.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission deduplication window.
	DedupeSize int `koanf:"dedupe_size"`

	// GenerationLatencyMinMS and GenerationLatencyMaxMS simulate the latency
	// of an external criterion scoring call.
	GenerationLatencyMinMS int `koanf:"generation_latency_min_ms"`
	GenerationLatencyMaxMS int `koanf:"generation_latency_max_ms"`

	// CompareDefaultLookback is the number of latest evaluations averaged
	// per politician when a compare request does not name one.
	CompareDefaultLookback int `koanf:"compare_default_lookback"`

	// ArchiveEnabled turns on the periodic snapshot archival scheduler.
	ArchiveEnabled bool `koanf:"archive_enabled"`

	// ArchiveIntervalHours is the period between scheduled archival runs.
	ArchiveIntervalHours int `koanf:"archive_interval_hours"`

	// ArchiveLookbackDays is the evaluation window of each archival run.
	ArchiveLookbackDays int `koanf:"archive_lookback_days"`

	// ArchiveTimeoutSeconds is the time budget of one archival run. A run
	// that exceeds it is reported as truncated.
	ArchiveTimeoutSeconds int `koanf:"archive_timeout_seconds"`

	// CORSAllowedOrigins is a comma separated origin list, "*" for any.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		DBDriver:               DriverSQLite,
		DBDSN:                  "file:evalengine.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		DBMaxOpenConns:         10,
		QueueSize:              10_000,
		WorkerCount:            runtime.NumCPU() * 2,
		DedupeSize:             100_000,
		GenerationLatencyMinMS: 0,
		GenerationLatencyMaxMS: 0,
		CompareDefaultLookback: 5,
		ArchiveEnabled:         false,
		ArchiveIntervalHours:   24,
		ArchiveLookbackDays:    30,
		ArchiveTimeoutSeconds:  300,
		CORSAllowedOrigins:     "*",
	}
}

// AllowedOrigins splits CORSAllowedOrigins into a trimmed list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ArchiveInterval returns the scheduler period.
func (c *Config) ArchiveInterval() time.Duration {
	return time.Duration(c.ArchiveIntervalHours) * time.Hour
}

// ArchiveTimeout returns the per-run archival time budget.
func (c *Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.ArchiveTimeoutSeconds) * time.Second
}
