package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	"github.com/politicianfinder/evalengine/pkg/logger"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// Archival window bounds, in days.
const (
	DefaultArchiveLookbackDays = 30
	MaxArchiveLookbackDays     = 90
)

// Per-politician archival outcomes.
const (
	outcomeSuccess = "success"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// ArchivalError records one politician's failed snapshot.
type ArchivalError struct {
	PoliticianID string `json:"politician_id"`
	Error        string `json:"error"`
}

// ArchivalSummary reports one archival run. Politicians not reached before
// the run was truncated appear in no count.
type ArchivalSummary struct {
	Date         string          `json:"date"`
	LookbackDays int             `json:"lookback_days"`
	SuccessCount int             `json:"success_count"`
	SkippedCount int             `json:"skipped_count"`
	FailedCount  int             `json:"failed_count"`
	Errors       []ArchivalError `json:"errors"`
	Truncated    bool            `json:"truncated"`
}

func clampArchiveLookback(days int) int {
	switch {
	case days <= 0:
		return DefaultArchiveLookbackDays
	case days > MaxArchiveLookbackDays:
		return MaxArchiveLookbackDays
	default:
		return days
	}
}

// archiveWindow returns the UTC calendar day of date and the half-open
// range [day - lookback, day + 1 day) its snapshot covers.
func archiveWindow(date time.Time, lookbackDays int) (day, from, to time.Time) {
	y, m, d := date.UTC().Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return day, day.AddDate(0, 0, -lookbackDays), day.AddDate(0, 0, 1)
}

// RunSnapshotArchival writes one snapshot per politician for date (today
// when zero). lookbackDays <= 0 selects the configured default; larger
// values are capped at 90.
//
// Politicians are processed one at a time. A failure is recorded in the
// summary and the run continues. When ctx ends the run stops, marks the
// summary truncated and returns it without error; the next run retries.
// Only failing to list politicians aborts the run.
func (s *Service) RunSnapshotArchival(ctx context.Context, date time.Time, lookbackDays int) (ArchivalSummary, error) {
	start := time.Now()
	if date.IsZero() {
		date = s.clock()
	}
	if lookbackDays <= 0 {
		lookbackDays = s.archiveLookback
	}
	lookbackDays = clampArchiveLookback(lookbackDays)
	day, from, to := archiveWindow(date, lookbackDays)

	summary := ArchivalSummary{
		Date:         day.Format(model.SnapshotDateLayout),
		LookbackDays: lookbackDays,
		Errors:       []ArchivalError{},
	}
	log := s.logger.With(logger.String("snapshot_date", summary.Date))

	politicians, err := s.store.ListPoliticians(ctx)
	if err != nil {
		metrics.RecordArchivalRun(metrics.ArchivalFailed, float64(time.Since(start).Milliseconds()))
		metrics.RecordErrorByComponent("archiver", "list_politicians")
		return summary, fmt.Errorf("list politicians: %w", err)
	}
	metrics.UpdatePoliticiansTotal(len(politicians))

	for i := range politicians {
		if ctx.Err() != nil {
			summary.Truncated = true
			break
		}

		id := politicians[i].ID
		outcome, err := s.archivePolitician(ctx, id, summary.Date, from, to)
		if err != nil && ctx.Err() != nil {
			summary.Truncated = true
			break
		}

		metrics.RecordSnapshotOutcome(outcome)
		switch outcome {
		case outcomeSuccess:
			summary.SuccessCount++
		case outcomeSkipped:
			summary.SkippedCount++
		default:
			summary.FailedCount++
			summary.Errors = append(summary.Errors, ArchivalError{PoliticianID: id, Error: err.Error()})
			metrics.RecordErrorByComponent("archiver", "snapshot")
			log.Warn(ctx, "snapshot failed", logger.String("politician_id", id), logger.Error(err))
		}
	}

	result := metrics.ArchivalCompleted
	if summary.Truncated {
		result = metrics.ArchivalTruncated
	}
	took := time.Since(start)
	metrics.RecordArchivalRun(result, float64(took.Milliseconds()))

	log.Info(ctx, "snapshot archival finished",
		logger.Int("lookback_days", lookbackDays),
		logger.Int("success", summary.SuccessCount),
		logger.Int("skipped", summary.SkippedCount),
		logger.Int("failed", summary.FailedCount),
		logger.Bool("truncated", summary.Truncated),
		logger.Duration("took", took),
	)
	return summary, nil
}

func (s *Service) archivePolitician(ctx context.Context, id, date string, from, to time.Time) (string, error) {
	evals, err := s.store.ListEvaluationsInRange(ctx, id, from, to)
	if err != nil {
		return outcomeFailed, fmt.Errorf("fetch evaluations: %w", err)
	}

	snap, ok := scoring.BuildSnapshot(id, date, evals)
	if !ok {
		return outcomeSkipped, nil
	}

	if err := s.store.UpsertSnapshot(ctx, snap); err != nil {
		return outcomeFailed, fmt.Errorf("store snapshot: %w", err)
	}
	return outcomeSuccess, nil
}

// RunArchivalSchedule runs RunSnapshotArchival every interval until ctx
// ends. Each run gets its own timeout; a run that exceeds it is truncated.
func (s *Service) RunArchivalSchedule(ctx context.Context, interval, timeout time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			if _, err := s.RunSnapshotArchival(runCtx, time.Time{}, 0); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error(ctx, "scheduled archival failed", logger.Error(err))
			}
			cancel()
		}
	}
}

// SnapshotView is a stored snapshot with the grade derived from its score.
type SnapshotView struct {
	model.Snapshot
	Grade    string             `json:"grade"`
	Criteria map[string]float64 `json:"criterion_averages"`
}

// SnapshotHistory lists a politician's snapshots between the inclusive
// YYYY-MM-DD bounds from and to. Empty bounds are open.
func (s *Service) SnapshotHistory(ctx context.Context, politicianID, from, to string) ([]SnapshotView, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.SnapshotDateLayout, d); err != nil {
			return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, d)
		}
	}
	if from != "" && to != "" && from > to {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrValidation, from, to)
	}
	if err := s.requirePolitician(ctx, politicianID); err != nil {
		return nil, err
	}

	snaps, err := s.store.ListSnapshots(ctx, politicianID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", politicianID, err)
	}

	views := make([]SnapshotView, 0, len(snaps))
	for i := range snaps {
		views = append(views, SnapshotView{
			Snapshot: snaps[i],
			Grade:    s.ClassifyGrade(snaps[i].Score).Code,
			Criteria: snaps[i].CriterionAverageMap(),
		})
	}
	return views, nil
}
