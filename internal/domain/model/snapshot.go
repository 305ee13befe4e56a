package model

// SnapshotDateLayout is the calendar date format of Snapshot.Date.
const SnapshotDateLayout = "2006-01-02"

// Snapshot is the archived aggregate of one politician's evaluations over a
// trailing window, unique per (PoliticianID, Date). It carries no wall-clock
// timestamps, so recomputing an unchanged window yields an identical row.
type Snapshot struct {
	PoliticianID    string  `json:"politician_id"`
	Date            string  `json:"date"`
	EvaluationCount int     `json:"evaluation_count"`
	AvgOverall      float64 `json:"avg_overall"`
	MaxOverall      int     `json:"max_overall"`
	MinOverall      int     `json:"min_overall"`

	// Score is the 0..1000 window score, round(mean * 10) over the exact
	// sum of overall scores. AvgOverall is display-rounded and must not
	// be rescaled in its place.
	Score int `json:"score"`

	// EvaluatorScores holds each evaluator's latest overall score in the
	// window, nil when that evaluator produced none.
	EvaluatorScores map[Evaluator]*int `json:"evaluator_scores"`

	// CriterionAverages is indexed by Criterion.
	CriterionAverages [NumCriteria]float64 `json:"-"`
}

// CriterionAverageMap returns CriterionAverages keyed by criterion name.
func (s *Snapshot) CriterionAverageMap() map[string]float64 {
	m := make(map[string]float64, NumCriteria)
	for i, v := range s.CriterionAverages {
		m[Criterion(i).String()] = v
	}
	return m
}
