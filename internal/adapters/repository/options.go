package repository

import (
	"time"

	"github.com/politicianfinder/evalengine/pkg/logger"
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxOpenConns caps the Postgres connection pool. SQLite always uses a
// single connection.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithClock sets the time source for UpdatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *SQLStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithoutMigrations skips applying the embedded migrations on Open.
func WithoutMigrations() Option {
	return func(s *SQLStore) {
		s.migrate = false
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}
