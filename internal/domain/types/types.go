// Package types contains common types used across the application
package types

import (
	"github.com/politicianfinder/evalengine/internal/domain/grading"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
)

// ScoreVector is a politician's averaged scores over its latest evaluations.
type ScoreVector struct {
	Overall         float64            `json:"overall"` // 0..100
	Score           int                `json:"score"`   // 0..1000
	Grade           grading.Tier       `json:"grade"`
	Criteria        map[string]float64 `json:"criteria"`
	EvaluationCount int                `json:"evaluation_count"`
}

// NewScoreVector converts an aggregated vector into its public form, grade included.
func NewScoreVector(v scoring.Vector) *ScoreVector {
	score := grading.Clamp(v.Score)
	sv := &ScoreVector{
		Overall:         v.Overall,
		Score:           score,
		Grade:           grading.Classify(score),
		Criteria:        make(map[string]float64, model.NumCriteria),
		EvaluationCount: v.Count,
	}
	for i, avg := range v.Criteria {
		sv.Criteria[model.Criterion(i).String()] = avg
	}
	return sv
}

// Entry represents one politician in a comparison. Scores is nil when the
// politician has no evaluations; such entries keep Rank 0.
type Entry struct {
	Rank         int          `json:"rank"`
	PoliticianID string       `json:"politician_id"`
	Name         string       `json:"name"`
	Party        string       `json:"party,omitempty"`
	Position     string       `json:"position,omitempty"`
	Scores       *ScoreVector `json:"scores"`
}

// Ranked reports whether the entry takes a ranking position.
func (e *Entry) Ranked() bool { return e.Scores != nil }
