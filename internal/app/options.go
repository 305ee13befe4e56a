package service

import (
	"time"

	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	"github.com/politicianfinder/evalengine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGenerator replaces the default baseline generator.
func WithGenerator(g scoring.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithGenerationLatencyRange sets the simulated latency of the default generator.
func WithGenerationLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.genMinLatency = minLatency
			s.genMaxLatency = maxLatency
		}
	}
}

// WithCompareLookback sets how many recent evaluations Compare averages
// when the caller gives none. Values are clamped to [1,20].
func WithCompareLookback(n int) Option {
	return func(s *Service) {
		if n != 0 {
			s.compareLookback = clampLookback(n)
		}
	}
}

// WithArchiveLookback sets the default archival window in days, at most 90.
func WithArchiveLookback(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.archiveLookback = clampArchiveLookback(days)
		}
	}
}

// WithClock sets the time source for submissions and archival dates.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}
