// Package worker turns queued ingestion jobs into stored evaluations.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	"github.com/politicianfinder/evalengine/pkg/logger"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// ErrMissingCriteria is returned for a submit job without an evaluation.
var ErrMissingCriteria = errors.New("submit job carries no evaluation")

// Job abstracts what workers read off the queue.
type Job = model.Job

// Writer persists an evaluation under its (politician, evaluator, version)
// key and reports whether a new row was inserted.
type Writer interface {
	UpsertEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, bool, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish its loop.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing jobs.
type InMemoryWorker struct {
	queue     Queue
	generator scoring.Generator
	writer    Writer
	name      string
	clock     func() time.Time

	onProcessed func(err error)

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, generator scoring.Generator, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		generator: generator,
		writer:    writer,
		name:      "worker",
		clock:     time.Now,
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}

			err := w.processJob(ctx, j)
			if err != nil {
				w.logger.Error(ctx, "error processing job",
					logger.String("job_id", j.JobID),
					logger.String("politician_id", j.PoliticianID),
					logger.Error(err),
				)
			}
			if w.onProcessed != nil {
				w.onProcessed(err)
			}
		}
	}
}

// Shutdown waits for the worker loop to exit. Close the queue first.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob generates criteria when asked to, derives the overall score
// from the criteria and stores the evaluation.
func (w *InMemoryWorker) processJob(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var e model.Evaluation
	switch {
	case j.Evaluation != nil:
		e = *j.Evaluation
	case j.Kind == model.JobSubmit:
		w.fail("invalid_job")
		return fmt.Errorf("job %s: %w", j.JobID, ErrMissingCriteria)
	default:
		e = model.Evaluation{PoliticianID: j.PoliticianID, Evaluator: j.Evaluator, Version: j.Version}
	}

	if j.Kind == model.JobGenerate {
		genStart := time.Now()
		res, err := w.generator.Generate(ctx, scoring.Input{PoliticianID: e.PoliticianID, Evaluator: e.Evaluator})
		metrics.RecordGenerationLatency(float64(time.Since(genStart).Milliseconds()))
		if err != nil {
			metrics.RecordGenerationError()
			w.fail("generation_error")
			return fmt.Errorf("generate criteria for %s/%s: %w", e.PoliticianID, e.Evaluator, err)
		}
		e.Criteria = res.Criteria
		if e.Summary == "" {
			e.Summary = fmt.Sprintf("Generated %s evaluation", e.Evaluator)
		}
	}

	if err := e.Criteria.Validate(); err != nil {
		w.fail("validation_error")
		return fmt.Errorf("job %s: %w", j.JobID, err)
	}
	e.OverallScore = scoring.OverallFromCriteria(e.Criteria)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.ReceivedAt
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = w.clock()
	}

	// The store records its own write latency and error count.
	_, inserted, err := w.writer.UpsertEvaluation(ctx, e)
	if err != nil {
		w.fail("store_error")
		return fmt.Errorf("store evaluation for %s/%s: %w", e.PoliticianID, e.Evaluator, err)
	}

	metrics.RecordEvaluationIngested()
	w.logger.Debug(ctx, "evaluation stored",
		logger.String("politician_id", e.PoliticianID),
		logger.String("evaluator", string(e.Evaluator)),
		logger.String("version", e.Version),
		logger.Int("overall_score", e.OverallScore),
		logger.Bool("inserted", inserted),
	)
	return nil
}

func (w *InMemoryWorker) fail(kind string) {
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", kind)
	metrics.RecordErrorByType(kind, "high")
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}

	processed     atomic.Int64
	failed        atomic.Int64
	sinceLastTick atomic.Int64
	lastTick      time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below 1 selects a
// CPU-based default.
func NewPool(workerCount int, queue Queue, generator scoring.Generator, writer Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		lastTick: time.Now(),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, generator, writer, wopts...)
		w.onProcessed = pool.recordProcessed
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerJobsPerSecond(0.0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs handled, successfully or not.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of jobs that ended in an error.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))

	go p.startMetricsUpdater(ctx)
}

func (p *Pool) recordProcessed(err error) {
	p.processed.Add(1)
	p.sinceLastTick.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			if secs := now.Sub(p.lastTick).Seconds(); secs > 0 {
				metrics.UpdateWorkerJobsPerSecond(float64(p.sinceLastTick.Swap(0)) / secs)
			}
			p.lastTick = now
		}
	}
}

// Shutdown closes the queue, lets workers drain what is already queued and
// waits for them, bounded by ctx and an internal timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
