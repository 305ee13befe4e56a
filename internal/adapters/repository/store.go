// Package repository persists politicians, evaluations and snapshots.
package repository

import (
	"context"
	"time"

	"github.com/politicianfinder/evalengine/internal/domain/model"
)

// EvaluationStore reads and writes evaluation rows.
type EvaluationStore interface {
	// UpsertEvaluation updates the evaluation stored under e's (politician,
	// evaluator, version) key, or inserts it when none exists. It reports
	// whether a row was inserted.
	UpsertEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, bool, error)

	// LatestEvaluations returns up to limit evaluations, newest first.
	LatestEvaluations(ctx context.Context, politicianID string, limit int) ([]model.Evaluation, error)

	// LatestPerEvaluator returns the newest evaluation of each evaluator.
	LatestPerEvaluator(ctx context.Context, politicianID string) ([]model.Evaluation, error)

	// ListEvaluationsInRange returns evaluations created in [from, to), oldest first.
	ListEvaluationsInRange(ctx context.Context, politicianID string, from, to time.Time) ([]model.Evaluation, error)

	// CountEvaluations returns the number of stored evaluations.
	CountEvaluations(ctx context.Context) (int, error)
}

// SnapshotStore reads and writes archived snapshots.
type SnapshotStore interface {
	// UpsertSnapshot writes s, overwriting any row for (politician, date).
	UpsertSnapshot(ctx context.Context, s model.Snapshot) error

	// Snapshot returns one snapshot or ErrNotFound.
	Snapshot(ctx context.Context, politicianID, date string) (model.Snapshot, error)

	// ListSnapshots returns snapshots with from <= date <= to, oldest first.
	// An empty bound is open.
	ListSnapshots(ctx context.Context, politicianID, from, to string) ([]model.Snapshot, error)
}

// PoliticianDirectory resolves politician identities.
type PoliticianDirectory interface {
	// Politician returns ErrNotFound for an unknown id.
	Politician(ctx context.Context, id string) (model.Politician, error)
	ListPoliticians(ctx context.Context) ([]model.Politician, error)
	UpsertPolitician(ctx context.Context, p model.Politician) (model.Politician, error)
}

// Store combines every store the engine needs.
type Store interface {
	EvaluationStore
	SnapshotStore
	PoliticianDirectory

	Ping(ctx context.Context) error
	Close() error
}
