package worker

import (
	"time"

	"github.com/politicianfinder/evalengine/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock sets the time source used to stamp evaluations that arrive
// without a creation time.
func WithClock(clock func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if clock != nil {
			w.clock = clock
		}
	}
}
