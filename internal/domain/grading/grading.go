// Package grading maps 0..1000 scores onto the ten ordered grade tiers.
//
// Grades are never stored. Every caller derives them from a score through
// Classify, so a grade can never disagree with its score.
package grading

import "math"

// Score bounds of the grading scale.
const (
	MinScore = 0
	MaxScore = 1000
)

// Tier is one band of the grading scale. Min and Max are inclusive.
type Tier struct {
	Level int    `json:"level"` // 1 = lowest (Lead), 10 = highest (Mugunghwa)
	Code  string `json:"code"`
	Name  string `json:"name"`
	Glyph string `json:"glyph"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// tiers is ordered from the highest lower bound down.
var tiers = [...]Tier{ //nolint:gochecknoglobals // fixed lookup table
	{Level: 10, Code: "M", Name: "Mugunghwa", Glyph: "🌺", Min: 920, Max: 1000},
	{Level: 9, Code: "D", Name: "Diamond", Glyph: "💎", Min: 840, Max: 919},
	{Level: 8, Code: "E", Name: "Emerald", Glyph: "💚", Min: 760, Max: 839},
	{Level: 7, Code: "P", Name: "Platinum", Glyph: "🥇", Min: 680, Max: 759},
	{Level: 6, Code: "G", Name: "Gold", Glyph: "🏅", Min: 600, Max: 679},
	{Level: 5, Code: "S", Name: "Silver", Glyph: "🥈", Min: 520, Max: 599},
	{Level: 4, Code: "B", Name: "Bronze", Glyph: "🥉", Min: 440, Max: 519},
	{Level: 3, Code: "I", Name: "Iron", Glyph: "⚫", Min: 360, Max: 439},
	{Level: 2, Code: "Tn", Name: "Tin", Glyph: "🪨", Min: 280, Max: 359},
	{Level: 1, Code: "L", Name: "Lead", Glyph: "⬛", Min: 0, Max: 279},
}

// Classify returns the tier containing score. It expects score in
// [MinScore, MaxScore]; out-of-range input must go through Clamp first and
// otherwise lands in the nearest end tier.
func Classify(score int) Tier {
	for _, t := range tiers {
		if score >= t.Min {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// Clamp bounds score to [MinScore, MaxScore].
func Clamp(score int) int {
	switch {
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

// FromOverall converts a 0..100 overall score to the 0..1000 scale,
// round-half-up, and clamps it.
func FromOverall(overall float64) int {
	return Clamp(int(math.Floor(overall*10 + 0.5)))
}

// Tiers returns the tier table, highest first.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers[:])
	return out
}

// ByCode looks a tier up by its code.
func ByCode(code string) (Tier, bool) {
	for _, t := range tiers {
		if t.Code == code {
			return t, true
		}
	}
	return Tier{}, false
}
