package service_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/politicianfinder/evalengine/internal/adapters/repository"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func openStore(t *testing.T) *repository.SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "engine.db") + "?_pragma=busy_timeout(5000)"
	s, err := repository.Open(context.Background(), repository.DriverSQLite, dsn,
		repository.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func uniform(score int) model.CriterionScores {
	var cs model.CriterionScores
	for i := range cs {
		cs[i] = model.CriterionScore{Score: score, Evidence: "record"}
	}
	return cs
}

func mustPolitician(t *testing.T, s repository.Store, id, name string) {
	t.Helper()
	if _, err := s.UpsertPolitician(context.Background(), model.Politician{ID: id, Name: name, Party: "Independent"}); err != nil {
		t.Fatalf("upsert politician %s: %v", id, err)
	}
}

func mustEvaluation(t *testing.T, s repository.Store, pid string, ev model.Evaluator, version string, score int, at time.Time) {
	t.Helper()
	e := model.Evaluation{
		PoliticianID: pid,
		Evaluator:    ev,
		Version:      version,
		OverallScore: score,
		Criteria:     uniform(score),
		CreatedAt:    at,
	}
	if _, _, err := s.UpsertEvaluation(context.Background(), e); err != nil {
		t.Fatalf("upsert evaluation %s/%s: %v", pid, ev, err)
	}
}

// spyStore counts every storage call. Calls it does not override panic on
// the nil embedded Store.
type spyStore struct {
	repository.Store
	calls atomic.Int32
}

func (s *spyStore) Politician(ctx context.Context, id string) (model.Politician, error) {
	s.calls.Add(1)
	return model.Politician{}, repository.ErrNotFound
}

func (s *spyStore) LatestEvaluations(ctx context.Context, id string, limit int) ([]model.Evaluation, error) {
	s.calls.Add(1)
	return nil, nil
}

// faultyStore fails snapshot writes for one politician.
type faultyStore struct {
	repository.Store
	failFor string
}

func (s *faultyStore) UpsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	if snap.PoliticianID == s.failFor {
		return repository.ErrDuplicate
	}
	return s.Store.UpsertSnapshot(ctx, snap)
}

// cancelingStore cancels the run context after the first evaluation fetch.
type cancelingStore struct {
	repository.Store
	cancel  context.CancelFunc
	fetches atomic.Int32
}

func (s *cancelingStore) ListEvaluationsInRange(ctx context.Context, id string, from, to time.Time) ([]model.Evaluation, error) {
	evals, err := s.Store.ListEvaluationsInRange(ctx, id, from, to)
	if s.fetches.Add(1) == 1 {
		s.cancel()
	}
	return evals, err
}
