package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/politicianfinder/evalengine/internal/adapters/repository"
	"github.com/politicianfinder/evalengine/internal/domain/grading"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// Reasons a summary is not available.
const (
	ReasonPoliticianNotFound = "politician_not_found"
	ReasonNoEvaluations      = "no_evaluations"
)

// EvaluatorBreakdown is one evaluator's latest evaluation.
type EvaluatorBreakdown struct {
	Evaluator    model.Evaluator `json:"evaluator"`
	Version      string          `json:"version"`
	OverallScore int             `json:"overall_score"` // 0..100
	Score        int             `json:"score"`         // 0..1000
	Grade        grading.Tier    `json:"grade"`
	EvaluatedAt  time.Time       `json:"evaluated_at"`
}

// CriterionBreakdown is one criterion across the latest evaluations.
type CriterionBreakdown struct {
	Criterion string                  `json:"criterion"`
	Average   float64                 `json:"average"`
	Scores    map[model.Evaluator]int `json:"scores"`
}

// Summary is the public view of a politician's evaluations. When Available
// is false, Reason says why and the score fields are zero.
type Summary struct {
	PoliticianID    string               `json:"politician_id"`
	Available       bool                 `json:"available"`
	Reason          string               `json:"reason,omitempty"`
	Politician      *model.Politician    `json:"politician,omitempty"`
	OverallScore    int                  `json:"overall_score"` // 0..1000
	Grade           *grading.Tier        `json:"grade,omitempty"`
	EvaluationCount int                  `json:"evaluation_count"`
	Evaluators      []EvaluatorBreakdown `json:"evaluators,omitempty"`
	Criteria        []CriterionBreakdown `json:"criteria,omitempty"`
}

// EvaluationSummary combines the latest evaluation of every evaluator into a
// consensus score and grade. Unknown politicians and politicians without
// evaluations yield an unavailable summary, not an error.
func (s *Service) EvaluationSummary(ctx context.Context, politicianID string) (Summary, error) {
	politicianID = strings.TrimSpace(politicianID)
	if politicianID == "" {
		return Summary{}, fmt.Errorf("%w: politician id is required", ErrValidation)
	}
	out := Summary{PoliticianID: politicianID}

	p, err := s.store.Politician(ctx, politicianID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		out.Reason = ReasonPoliticianNotFound
		metrics.RecordSummaryRequest("not_available")
		return out, nil
	case err != nil:
		metrics.RecordSummaryRequest("error")
		return Summary{}, fmt.Errorf("resolve politician %s: %w", politicianID, err)
	}
	out.Politician = &p

	stored, err := s.store.LatestPerEvaluator(ctx, politicianID)
	if err != nil {
		metrics.RecordSummaryRequest("error")
		return Summary{}, fmt.Errorf("latest evaluations for %s: %w", politicianID, err)
	}
	latest := scoring.LatestPerEvaluator(stored)
	if len(latest) == 0 {
		out.Reason = ReasonNoEvaluations
		metrics.RecordSummaryRequest("not_available")
		return out, nil
	}

	overalls := make([]int, 0, len(latest))
	out.Evaluators = make([]EvaluatorBreakdown, 0, len(latest))
	for i := range latest {
		e := &latest[i]
		overalls = append(overalls, e.OverallScore)
		score := grading.FromOverall(float64(e.OverallScore))
		out.Evaluators = append(out.Evaluators, EvaluatorBreakdown{
			Evaluator:    e.Evaluator,
			Version:      e.Version,
			OverallScore: e.OverallScore,
			Score:        score,
			Grade:        grading.Classify(score),
			EvaluatedAt:  e.CreatedAt,
		})
	}

	out.Available = true
	out.EvaluationCount = len(latest)
	out.OverallScore = grading.Clamp(scoring.ConsensusScore(overalls))
	grade := s.ClassifyGrade(out.OverallScore)
	out.Grade = &grade

	vec, _ := scoring.AverageVector(latest)
	out.Criteria = make([]CriterionBreakdown, 0, model.NumCriteria)
	for _, c := range model.Criteria() {
		cb := CriterionBreakdown{
			Criterion: c.String(),
			Average:   vec.Criteria[c],
			Scores:    make(map[model.Evaluator]int, len(latest)),
		}
		for i := range latest {
			cb.Scores[latest[i].Evaluator] = latest[i].Criteria.Get(c).Score
		}
		out.Criteria = append(out.Criteria, cb)
	}

	metrics.RecordSummaryRequest("available")
	return out, nil
}
