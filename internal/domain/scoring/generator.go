// Package scoring produces criterion scores and aggregates them into
// overall scores, consensus scores and snapshot rows.
package scoring

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/politicianfinder/evalengine/internal/domain/model"
)

// Default generator configuration constants.
const (
	defaultBaseline = 70
	defaultSpread   = 15
)

// defaultBaselines are the per-evaluator centres of the generated scores.
var defaultBaselines = map[model.Evaluator]int{ //nolint:gochecknoglobals // fixed defaults
	model.EvaluatorClaude:     75,
	model.EvaluatorChatGPT:    73,
	model.EvaluatorGemini:     72,
	model.EvaluatorGrok:       70,
	model.EvaluatorPerplexity: 71,
}

// Input identifies the (politician, evaluator) pair to score.
type Input struct {
	PoliticianID string
	Evaluator    model.Evaluator
}

// Result contains the ten generated criterion scores.
type Result struct {
	PoliticianID string
	Evaluator    model.Evaluator
	Criteria     model.CriterionScores
}

// Generator produces ten [0,100] criterion scores for a pair. Callers rely
// on nothing but that range contract.
type Generator interface {
	// Generate computes scores, honoring ctx for cancellation.
	Generate(ctx context.Context, in Input) (Result, error)
}

// Option applies a configuration option to the BaselineGenerator.
type Option func(*BaselineGenerator)

// WithLatencyRange sets the simulated latency range of an external scoring call.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(g *BaselineGenerator) {
		if minLatency >= 0 && maxLatency >= minLatency {
			g.minLatency = minLatency
			g.maxLatency = maxLatency
		}
	}
}

// WithBaselines overrides evaluator baselines. Unknown evaluators and values
// outside [0,100] are ignored.
func WithBaselines(baselines map[model.Evaluator]int) Option {
	return func(g *BaselineGenerator) {
		for e, b := range baselines {
			if e.Valid() && b >= model.MinCriterionScore && b <= model.MaxCriterionScore {
				g.baselines[e] = b
			}
		}
	}
}

// WithSpread sets the maximum deviation from the baseline.
func WithSpread(spread int) Option {
	return func(g *BaselineGenerator) {
		if spread >= 0 {
			g.spread = spread
		}
	}
}

// WithSeed mixes a salt into the per-pair seed, so separate runs can
// produce different but still reproducible scores.
func WithSeed(seed int64) Option {
	return func(g *BaselineGenerator) {
		g.seed = seed
	}
}

// BaselineGenerator is a pseudo-random Generator seeded per (politician,
// evaluator) around an evaluator-specific baseline. The same pair and seed
// always yield the same scores.
type BaselineGenerator struct {
	baselines  map[model.Evaluator]int
	spread     int
	seed       int64
	minLatency time.Duration
	maxLatency time.Duration
}

// NewBaselineGenerator creates a generator with configuration options.
func NewBaselineGenerator(opts ...Option) *BaselineGenerator {
	g := &BaselineGenerator{
		baselines: make(map[model.Evaluator]int, len(defaultBaselines)),
		spread:    defaultSpread,
	}
	for e, b := range defaultBaselines {
		g.baselines[e] = b
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate computes criterion scores for the given input.
func (g *BaselineGenerator) Generate(ctx context.Context, in Input) (Result, error) {
	if !in.Evaluator.Valid() {
		return Result{}, fmt.Errorf("%w: %q", model.ErrUnknownEvaluator, in.Evaluator)
	}

	rng := rand.New(rand.NewSource(g.pairSeed(in))) //nolint:gosec // reproducible scores, not security sensitive

	baseline, ok := g.baselines[in.Evaluator]
	if !ok {
		baseline = defaultBaseline
	}

	var res Result
	res.PoliticianID = in.PoliticianID
	res.Evaluator = in.Evaluator
	for _, c := range model.Criteria() {
		score := clampScore(baseline + rng.Intn(2*g.spread+1) - g.spread)
		res.Criteria[c] = model.CriterionScore{
			Score:    score,
			Evidence: fmt.Sprintf("%s rated %s at %d/100 (baseline %d)", in.Evaluator, c, score, baseline),
		}
	}

	if g.maxLatency > 0 {
		latency := g.minLatency
		if g.maxLatency > g.minLatency {
			latency += time.Duration(rng.Int63n(int64(g.maxLatency - g.minLatency)))
		}
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(latency):
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	return res, nil
}

func (g *BaselineGenerator) pairSeed(in Input) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(in.PoliticianID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(in.Evaluator))
	return int64(h.Sum64()) ^ g.seed //nolint:gosec // bit reinterpretation is intended
}

func clampScore(s int) int {
	if s < model.MinCriterionScore {
		return model.MinCriterionScore
	}
	if s > model.MaxCriterionScore {
		return model.MaxCriterionScore
	}
	return s
}
