package model

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation is one evaluator's assessment of one politician. At most one
// current evaluation exists per (PoliticianID, Evaluator, Version).
//
// No grade is stored; it is derived from OverallScore when read.
type Evaluation struct {
	ID           uuid.UUID       `json:"id"`
	PoliticianID string          `json:"politician_id"`
	Evaluator    Evaluator       `json:"evaluator"`
	Version      string          `json:"version"`
	OverallScore int             `json:"overall_score"`
	Criteria     CriterionScores `json:"criteria"`
	Summary      string          `json:"summary,omitempty"`
	Strengths    []string        `json:"strengths,omitempty"`
	Weaknesses   []string        `json:"weaknesses,omitempty"`
	Sources      []string        `json:"sources,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Key identifies the update-or-insert slot of an evaluation.
type Key struct {
	PoliticianID string
	Evaluator    Evaluator
	Version      string
}

// Key returns the evaluation's update-or-insert key.
func (e *Evaluation) Key() Key {
	return Key{PoliticianID: e.PoliticianID, Evaluator: e.Evaluator, Version: e.Version}
}
