// Package service provides the scoring and grading engine behind the HTTP
// API: evaluation ingestion, summaries, comparisons and snapshot archival.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/politicianfinder/evalengine/internal/adapters/mq/queue"
	workerpool "github.com/politicianfinder/evalengine/internal/adapters/mq/worker"
	"github.com/politicianfinder/evalengine/internal/adapters/repository"
	"github.com/politicianfinder/evalengine/internal/domain/dedupe"
	"github.com/politicianfinder/evalengine/internal/domain/grading"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	"github.com/politicianfinder/evalengine/pkg/logger"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// Service implements the API dependencies of the evaluation engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	generator scoring.Generator
	pool      *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	genMinLatency   time.Duration
	genMaxLatency   time.Duration
	compareLookback int
	archiveLookback int
	clock           func() time.Time

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      100_000,
		compareLookback: DefaultCompareLookback,
		archiveLookback: DefaultArchiveLookbackDays,
		clock:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	if s.generator == nil {
		s.generator = scoring.NewBaselineGenerator(
			scoring.WithLatencyRange(s.genMinLatency, s.genMaxLatency),
		)
	}

	return s
}

// Start creates the ingestion queue and starts the worker pool. Workers
// stop when ctx is canceled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting evaluation engine")

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.generator, s.store,
		workerpool.WithClock(s.clock),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "evaluation engine started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for queued jobs to drain, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping evaluation engine")
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	s.logger.Info(ctx, "evaluation engine stopped",
		logger.Int("processed", int(s.pool.Processed())),
		logger.Int("failed", int(s.pool.Failed())),
	)
	return nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Submission is an evaluation produced outside the engine. The overall score
// is always recomputed from Criteria.
type Submission struct {
	SubmissionID string                `json:"submission_id,omitempty"`
	PoliticianID string                `json:"politician_id"`
	Evaluator    model.Evaluator       `json:"evaluator"`
	Version      string                `json:"version"`
	Criteria     model.CriterionScores `json:"criteria"`
	Summary      string                `json:"summary,omitempty"`
	Strengths    []string              `json:"strengths,omitempty"`
	Weaknesses   []string              `json:"weaknesses,omitempty"`
	Sources      []string              `json:"sources,omitempty"`
}

// GenerationRequest asks the configured generator for a new evaluation.
type GenerationRequest struct {
	RequestID    string          `json:"request_id,omitempty"`
	PoliticianID string          `json:"politician_id"`
	Evaluator    model.Evaluator `json:"evaluator"`
	Version      string          `json:"version"`
}

// Receipt acknowledges an ingestion request.
type Receipt struct {
	JobID     string `json:"job_id"`
	Duplicate bool   `json:"duplicate"`
}

// SubmitEvaluation validates sub and queues it for storage. A submission id
// already seen is acknowledged as a duplicate without being queued again.
func (s *Service) SubmitEvaluation(ctx context.Context, sub *Submission) (Receipt, error) {
	if err := validateKey(sub.PoliticianID, sub.Evaluator, sub.Version); err != nil {
		return Receipt{}, err
	}
	if err := sub.Criteria.Validate(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.requirePolitician(ctx, sub.PoliticianID); err != nil {
		return Receipt{}, err
	}

	now := s.clock()
	job := model.Job{
		JobID:        sub.SubmissionID,
		Kind:         model.JobSubmit,
		PoliticianID: sub.PoliticianID,
		Evaluator:    sub.Evaluator,
		Version:      sub.Version,
		Evaluation: &model.Evaluation{
			PoliticianID: sub.PoliticianID,
			Evaluator:    sub.Evaluator,
			Version:      sub.Version,
			Criteria:     sub.Criteria,
			Summary:      sub.Summary,
			Strengths:    sub.Strengths,
			Weaknesses:   sub.Weaknesses,
			Sources:      sub.Sources,
		},
		ReceivedAt: now,
	}
	return s.enqueue(ctx, job)
}

// RequestGeneration queues a job that asks the generator for criteria.
func (s *Service) RequestGeneration(ctx context.Context, req GenerationRequest) (Receipt, error) {
	if err := validateKey(req.PoliticianID, req.Evaluator, req.Version); err != nil {
		return Receipt{}, err
	}
	if err := s.requirePolitician(ctx, req.PoliticianID); err != nil {
		return Receipt{}, err
	}

	return s.enqueue(ctx, model.Job{
		JobID:        req.RequestID,
		Kind:         model.JobGenerate,
		PoliticianID: req.PoliticianID,
		Evaluator:    req.Evaluator,
		Version:      req.Version,
		ReceivedAt:   s.clock(),
	})
}

func (s *Service) enqueue(ctx context.Context, job model.Job) (Receipt, error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return Receipt{}, ErrNotStarted
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, job.JobID) {
		metrics.RecordEvaluationDuplicate()
		s.logger.Debug(ctx, "duplicate submission", logger.String("job_id", job.JobID))
		return Receipt{JobID: job.JobID, Duplicate: true}, nil
	}

	if err := s.queue.TryEnqueue(ctx, job); err != nil {
		// Forget the id so the caller can retry it.
		s.deduper.Unrecord(ctx, job.JobID)
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return Receipt{}, ErrBackpressure
		case errors.Is(err, eventqueue.ErrClosed):
			return Receipt{}, ErrNotStarted
		default:
			return Receipt{}, err
		}
	}

	s.logger.Debug(ctx, "job queued",
		logger.String("job_id", job.JobID),
		logger.String("kind", string(job.Kind)),
		logger.String("politician_id", job.PoliticianID),
	)
	return Receipt{JobID: job.JobID}, nil
}

func validateKey(politicianID string, ev model.Evaluator, version string) error {
	switch {
	case strings.TrimSpace(politicianID) == "":
		return fmt.Errorf("%w: politician id is required", ErrValidation)
	case !ev.Valid():
		return fmt.Errorf("%w: %w: %q", ErrValidation, model.ErrUnknownEvaluator, ev)
	case strings.TrimSpace(version) == "":
		return fmt.Errorf("%w: version is required", ErrValidation)
	}
	return nil
}

func (s *Service) requirePolitician(ctx context.Context, id string) error {
	if _, err := s.store.Politician(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPoliticianNotFound, id)
		}
		return fmt.Errorf("resolve politician %s: %w", id, err)
	}
	return nil
}

// RegisterPolitician creates or updates a politician's identity.
func (s *Service) RegisterPolitician(ctx context.Context, p model.Politician) (model.Politician, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" || p.Name == "" {
		return model.Politician{}, fmt.Errorf("%w: politician id and name are required", ErrValidation)
	}
	stored, err := s.store.UpsertPolitician(ctx, p)
	if err != nil {
		return model.Politician{}, fmt.Errorf("register politician %s: %w", p.ID, err)
	}
	return stored, nil
}

// ClassifyGrade clamps score to [0,1000] and returns its tier.
func (s *Service) ClassifyGrade(score int) grading.Tier {
	t := grading.Classify(grading.Clamp(score))
	metrics.RecordGradeClassification(t.Code)
	return t
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"dedupeEntries": s.deduper.Size(),
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["jobsProcessed"] = s.pool.Processed()
		stats["jobsFailed"] = s.pool.Failed()
	}

	if n, err := s.store.CountEvaluations(ctx); err == nil {
		stats["totalEvaluations"] = n
	}
	if ps, err := s.store.ListPoliticians(ctx); err == nil {
		stats["totalPoliticians"] = len(ps)
		metrics.UpdatePoliticiansTotal(len(ps))
	}

	return stats
}
