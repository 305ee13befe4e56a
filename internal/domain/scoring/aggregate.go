package scoring

import (
	"math"

	"github.com/politicianfinder/evalengine/internal/domain/model"
)

// RoundHalfUp rounds x to the nearest integer, halves away from zero for
// the non-negative values used throughout scoring.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Round2 rounds x to two decimals, half up.
func Round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}

// OverallFromCriteria is the rounded mean of the ten criterion scores.
func OverallFromCriteria(c model.CriterionScores) int {
	sum := 0
	for _, s := range c {
		sum += s.Score
	}
	return RoundHalfUp(float64(sum) / model.NumCriteria)
}

// ConsensusScore combines 0..100 overall scores into a 0..1000 score:
// round(mean * 10). No scores yield 0.
func ConsensusScore(overalls []int) int {
	sum := 0
	for _, o := range overalls {
		sum += o
	}
	return scaledMean(sum, len(overalls))
}

// scaledMean is round(sum / n * 10) computed from the exact integer sum.
func scaledMean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return RoundHalfUp(float64(sum*10) / float64(n))
}

// Vector is the mean overall and mean per-criterion score of a set of
// evaluations. Overall and Criteria are rounded to two decimals for
// display; Score is the 0..1000 score taken from the exact mean, so it
// never inherits that rounding.
type Vector struct {
	Overall  float64
	Score    int
	Criteria [model.NumCriteria]float64
	Count    int
}

// AverageVector averages evals. It reports false when evals is empty.
func AverageVector(evals []model.Evaluation) (Vector, bool) {
	if len(evals) == 0 {
		return Vector{}, false
	}

	var (
		overall  int
		criteria [model.NumCriteria]int
	)
	for i := range evals {
		overall += evals[i].OverallScore
		for c, s := range evals[i].Criteria {
			criteria[c] += s.Score
		}
	}

	n := float64(len(evals))
	v := Vector{
		Overall: Round2(float64(overall) / n),
		Score:   scaledMean(overall, len(evals)),
		Count:   len(evals),
	}
	for c, sum := range criteria {
		v.Criteria[c] = Round2(float64(sum) / n)
	}
	return v, true
}
