package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Criteria errors.
var (
	ErrUnknownCriterion    = errors.New("unknown criterion")
	ErrMissingCriterion    = errors.New("missing criterion")
	ErrCriterionOutOfRange = errors.New("criterion score out of range")
)

// Score bounds of a single criterion and of an evaluation's overall score.
const (
	MinCriterionScore = 0
	MaxCriterionScore = 100
)

// Criterion is one of the ten named evaluation dimensions.
type Criterion int

// The ten criteria, in storage and display order.
const (
	Integrity Criterion = iota
	Expertise
	Communication
	Leadership
	Transparency
	Responsiveness
	Innovation
	Collaboration
	ConstituencyService
	PolicyImpact

	NumCriteria = 10
)

var criterionNames = [NumCriteria]string{ //nolint:gochecknoglobals // fixed enumeration
	"integrity",
	"expertise",
	"communication",
	"leadership",
	"transparency",
	"responsiveness",
	"innovation",
	"collaboration",
	"constituency_service",
	"policy_impact",
}

// Criteria returns all criteria in order.
func Criteria() []Criterion {
	out := make([]Criterion, NumCriteria)
	for i := range out {
		out[i] = Criterion(i)
	}
	return out
}

func (c Criterion) String() string {
	if c < 0 || int(c) >= NumCriteria {
		return fmt.Sprintf("criterion(%d)", int(c))
	}
	return criterionNames[c]
}

// ParseCriterion maps a criterion name to its value.
func ParseCriterion(name string) (Criterion, error) {
	for i, n := range criterionNames {
		if n == name {
			return Criterion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCriterion, name)
}

// CriterionScore is a single 0..100 subscore with its supporting evidence.
type CriterionScore struct {
	Score    int    `json:"score"`
	Evidence string `json:"evidence,omitempty"`
}

// CriterionScores holds exactly one score per criterion, indexed by Criterion.
// It encodes as a JSON object keyed by criterion name.
type CriterionScores [NumCriteria]CriterionScore

// Get returns the score for c.
func (cs *CriterionScores) Get(c Criterion) CriterionScore { return cs[c] }

// Validate checks that every score is within [0,100].
func (cs *CriterionScores) Validate() error {
	for i, s := range cs {
		if s.Score < MinCriterionScore || s.Score > MaxCriterionScore {
			return fmt.Errorf("%w: %s=%d", ErrCriterionOutOfRange, Criterion(i), s.Score)
		}
	}
	return nil
}

// MarshalJSON encodes the scores as {"integrity": {...}, ...}.
func (cs CriterionScores) MarshalJSON() ([]byte, error) {
	m := make(map[string]CriterionScore, NumCriteria)
	for i, s := range cs {
		m[criterionNames[i]] = s
	}
	return json.Marshal(m)
}

// UnmarshalJSON requires all ten criteria and rejects unknown names.
func (cs *CriterionScores) UnmarshalJSON(b []byte) error {
	var m map[string]CriterionScore
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out CriterionScores
	seen := 0
	for name, s := range m {
		c, err := ParseCriterion(name)
		if err != nil {
			return err
		}
		out[c] = s
		seen++
	}
	if seen != NumCriteria {
		for i, n := range criterionNames {
			if _, ok := m[n]; !ok {
				return fmt.Errorf("%w: %s", ErrMissingCriterion, criterionNames[i])
			}
		}
	}
	*cs = out
	return nil
}
