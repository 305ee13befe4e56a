package scoring

import (
	"sort"

	"github.com/politicianfinder/evalengine/internal/domain/model"
)

// LatestPerEvaluator keeps the most recent evaluation of each evaluator,
// ordered as model.Evaluators. Ties on CreatedAt fall back to UpdatedAt and
// then to the greater Version so the pick is deterministic.
func LatestPerEvaluator(evals []model.Evaluation) []model.Evaluation {
	latest := make(map[model.Evaluator]model.Evaluation, len(model.Evaluators))
	for _, e := range evals {
		cur, ok := latest[e.Evaluator]
		if !ok || newer(e, cur) {
			latest[e.Evaluator] = e
		}
	}

	out := make([]model.Evaluation, 0, len(latest))
	for _, ev := range model.Evaluators {
		if e, ok := latest[ev]; ok {
			out = append(out, e)
		}
	}
	return out
}

func newer(a, b model.Evaluation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.Version > b.Version
}

// BuildSnapshot aggregates the evaluations of one politician's window into
// the snapshot for date. It reports false when evals is empty. The result
// depends only on evals, never on the clock or on input order.
func BuildSnapshot(politicianID, date string, evals []model.Evaluation) (model.Snapshot, bool) {
	if len(evals) == 0 {
		return model.Snapshot{}, false
	}

	// Sorted copy, so full ties in LatestPerEvaluator resolve the same way on every run.
	sorted := make([]model.Evaluation, len(evals))
	copy(sorted, evals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	vec, _ := AverageVector(sorted)

	snap := model.Snapshot{
		PoliticianID:      politicianID,
		Date:              date,
		EvaluationCount:   len(sorted),
		AvgOverall:        vec.Overall,
		Score:             vec.Score,
		MaxOverall:        sorted[0].OverallScore,
		MinOverall:        sorted[0].OverallScore,
		EvaluatorScores:   make(map[model.Evaluator]*int, len(model.Evaluators)),
		CriterionAverages: vec.Criteria,
	}
	for _, e := range sorted[1:] {
		if e.OverallScore > snap.MaxOverall {
			snap.MaxOverall = e.OverallScore
		}
		if e.OverallScore < snap.MinOverall {
			snap.MinOverall = e.OverallScore
		}
	}

	for _, ev := range model.Evaluators {
		snap.EvaluatorScores[ev] = nil
	}
	for _, e := range LatestPerEvaluator(sorted) {
		score := e.OverallScore
		snap.EvaluatorScores[e.Evaluator] = &score
	}

	return snap, true
}
