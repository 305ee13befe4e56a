package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/politicianfinder/evalengine/internal/adapters/repository"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	"github.com/politicianfinder/evalengine/internal/domain/types"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// Compare bounds.
const (
	MinCompareIDs          = 2
	MaxCompareIDs          = 5
	MinCompareLookback     = 1
	MaxCompareLookback     = 20
	DefaultCompareLookback = 5
)

// Comparison is a ranked, request-scoped view over 2..5 politicians.
type Comparison struct {
	Lookback int           `json:"lookback"`
	Entries  []types.Entry `json:"entries"`
	// Missing lists requested ids that did not resolve to a politician.
	Missing []string `json:"missing,omitempty"`
}

func clampLookback(n int) int {
	switch {
	case n < MinCompareLookback:
		return MinCompareLookback
	case n > MaxCompareLookback:
		return MaxCompareLookback
	default:
		return n
	}
}

// ValidateCompareIDs checks the id list of a comparison: 2..5 distinct,
// non-empty ids.
func ValidateCompareIDs(ids []string) error {
	if len(ids) < MinCompareIDs || len(ids) > MaxCompareIDs {
		return fmt.Errorf("%w: compare needs %d to %d politician ids, got %d",
			ErrValidation, MinCompareIDs, MaxCompareIDs, len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty politician id", ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate politician id %q", ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Compare averages the latest lookback evaluations of each politician and
// ranks them by overall score, highest first. A lookback of 0 selects the
// configured default; other values are clamped to [1,20].
//
// Politicians without evaluations stay in the result with nil Scores and
// rank 0. Unknown politicians are dropped and listed in Missing. Fewer than
// two ranked entries yields ErrInsufficientComparable.
func (s *Service) Compare(ctx context.Context, ids []string, lookback int) (Comparison, error) {
	if err := ValidateCompareIDs(ids); err != nil {
		metrics.RecordCompareRequest("invalid")
		return Comparison{}, err
	}
	if lookback == 0 {
		lookback = s.compareLookback
	}
	lookback = clampLookback(lookback)

	type slot struct {
		entry   types.Entry
		missing bool
	}
	slots := make([]slot, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.store.Politician(gctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				slots[i].missing = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolve politician %s: %w", id, err)
			}

			evals, err := s.store.LatestEvaluations(gctx, id, lookback)
			if err != nil {
				return fmt.Errorf("latest evaluations for %s: %w", id, err)
			}

			slots[i].entry = types.Entry{
				PoliticianID: p.ID,
				Name:         p.Name,
				Party:        p.Party,
				Position:     p.Position,
			}
			if vec, ok := scoring.AverageVector(evals); ok {
				slots[i].entry.Scores = types.NewScoreVector(vec)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordCompareRequest("error")
		return Comparison{}, err
	}

	out := Comparison{Lookback: lookback, Entries: make([]types.Entry, 0, len(ids))}
	ranked := 0
	for i := range slots {
		if slots[i].missing {
			out.Missing = append(out.Missing, ids[i])
			continue
		}
		if slots[i].entry.Ranked() {
			ranked++
		}
		out.Entries = append(out.Entries, slots[i].entry)
	}
	if ranked < MinCompareIDs {
		metrics.RecordCompareRequest("insufficient")
		return Comparison{}, fmt.Errorf("%w: %d of %d politicians have evaluations",
			ErrInsufficientComparable, ranked, len(ids))
	}

	rankEntries(out.Entries)
	for i := range out.Entries {
		if sv := out.Entries[i].Scores; sv != nil {
			metrics.RecordGradeClassification(sv.Grade.Code)
		}
	}

	metrics.RecordCompareRequest("ok")
	return out, nil
}

// rankEntries sorts entries by 0..1000 score, highest first, then by the
// displayed overall, with nil scores last, and numbers the scored ones by
// position from 1. Equal scores keep their input order and still take
// distinct consecutive ranks: two politicians tied at 800 are ranked 1 and
// 2, never 1 and 1.
func rankEntries(entries []types.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Scores, entries[j].Scores
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Score != b.Score:
			return a.Score > b.Score
		default:
			return a.Overall > b.Overall
		}
	})
	for i := range entries {
		if entries[i].Ranked() {
			entries[i].Rank = i + 1
		} else {
			entries[i].Rank = 0
		}
	}
}
