package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	scoring "github.com/politicianfinder/evalengine/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func uniform(score int) model.CriterionScores {
	var cs model.CriterionScores
	for i := range cs {
		cs[i].Score = score
	}
	return cs
}

func eval(ev model.Evaluator, overall int, at time.Time) model.Evaluation {
	return model.Evaluation{
		ID:           uuid.New(),
		PoliticianID: "p-1",
		Evaluator:    ev,
		Version:      "v1",
		OverallScore: overall,
		Criteria:     uniform(overall),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func TestBaselineGenerator(t *testing.T) {
	Convey("Given a baseline generator", t, func() {
		gen := scoring.NewBaselineGenerator()
		ctx := context.Background()

		Convey("When generating for a pair", func() {
			in := scoring.Input{PoliticianID: "p-1", Evaluator: model.EvaluatorClaude}
			res, err := gen.Generate(ctx, in)

			Convey("Then every criterion is within baseline ± spread", func() {
				So(err, ShouldBeNil)
				So(res.PoliticianID, ShouldEqual, "p-1")
				So(res.Criteria.Validate(), ShouldBeNil)
				for _, c := range res.Criteria {
					So(c.Score, ShouldBeBetweenOrEqual, 60, 90)
					So(c.Evidence, ShouldContainSubstring, "claude")
				}
			})

			Convey("And the same pair reproduces the same scores", func() {
				again, err := gen.Generate(ctx, in)
				So(err, ShouldBeNil)
				So(again.Criteria, ShouldResemble, res.Criteria)
			})

			Convey("And a different seed changes them", func() {
				other, err := scoring.NewBaselineGenerator(scoring.WithSeed(99)).Generate(ctx, in)
				So(err, ShouldBeNil)
				So(other.Criteria, ShouldNotResemble, res.Criteria)
			})
		})

		Convey("When baselines push scores past the range", func() {
			g := scoring.NewBaselineGenerator(
				scoring.WithBaselines(map[model.Evaluator]int{model.EvaluatorGrok: 100}),
				scoring.WithSpread(30),
			)
			res, err := g.Generate(ctx, scoring.Input{PoliticianID: "p-2", Evaluator: model.EvaluatorGrok})

			Convey("Then scores are clamped to [0,100]", func() {
				So(err, ShouldBeNil)
				So(res.Criteria.Validate(), ShouldBeNil)
			})
		})

		Convey("When spread is zero", func() {
			g := scoring.NewBaselineGenerator(scoring.WithSpread(0))
			res, err := g.Generate(ctx, scoring.Input{PoliticianID: "p-3", Evaluator: model.EvaluatorGemini})

			Convey("Then every score equals the baseline", func() {
				So(err, ShouldBeNil)
				for _, c := range res.Criteria {
					So(c.Score, ShouldEqual, 72)
				}
				So(scoring.OverallFromCriteria(res.Criteria), ShouldEqual, 72)
			})
		})

		Convey("When the evaluator is unknown", func() {
			_, err := gen.Generate(ctx, scoring.Input{PoliticianID: "p-1", Evaluator: "llama"})

			Convey("Then it fails", func() {
				So(errors.Is(err, model.ErrUnknownEvaluator), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled during simulated latency", func() {
			g := scoring.NewBaselineGenerator(scoring.WithLatencyRange(time.Second, 2*time.Second))
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := g.Generate(cctx, scoring.Input{PoliticianID: "p-1", Evaluator: model.EvaluatorChatGPT})

			Convey("Then it returns the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestAggregator(t *testing.T) {
	Convey("Given criterion scores", t, func() {
		So(scoring.OverallFromCriteria(uniform(80)), ShouldEqual, 80)

		cs := uniform(80)
		cs[model.Integrity].Score = 85 // sum 805, mean 80.5
		So(scoring.OverallFromCriteria(cs), ShouldEqual, 81)

		cs[model.Integrity].Score = 84 // mean 80.4
		So(scoring.OverallFromCriteria(cs), ShouldEqual, 80)
	})

	Convey("Given evaluator overall scores", t, func() {
		So(scoring.ConsensusScore([]int{85, 83}), ShouldEqual, 840)
		So(scoring.ConsensusScore(nil), ShouldEqual, 0)
		So(scoring.ConsensusScore([]int{70, 71, 71}), ShouldEqual, 707) // 706.67
		So(scoring.ConsensusScore([]int{100}), ShouldEqual, 1000)
	})

	Convey("Given a set of evaluations", t, func() {
		now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		evals := []model.Evaluation{
			eval(model.EvaluatorClaude, 80, now),
			eval(model.EvaluatorGemini, 75, now),
			eval(model.EvaluatorGrok, 70, now),
		}

		v, ok := scoring.AverageVector(evals)

		So(ok, ShouldBeTrue)
		So(v.Count, ShouldEqual, 3)
		So(v.Overall, ShouldEqual, 75)
		So(v.Criteria[model.Leadership], ShouldEqual, 75)

		_, ok = scoring.AverageVector(nil)
		So(ok, ShouldBeFalse)
	})

	Convey("Given averages with repeating decimals", t, func() {
		now := time.Now()
		v, _ := scoring.AverageVector([]model.Evaluation{
			eval(model.EvaluatorClaude, 80, now),
			eval(model.EvaluatorClaude, 81, now),
			eval(model.EvaluatorClaude, 81, now),
		})

		So(v.Overall, ShouldEqual, 80.67)
		So(v.Score, ShouldEqual, 807)
	})

	Convey("Given a mean just below a grade boundary", t, func() {
		now := time.Now()
		evals := make([]model.Evaluation, 0, 19)
		for i := 0; i < 18; i++ {
			evals = append(evals, eval(model.EvaluatorClaude, 84, now))
		}
		evals = append(evals, eval(model.EvaluatorChatGPT, 83, now))

		v, _ := scoring.AverageVector(evals)

		Convey("Then the 0..1000 score comes from the exact mean, not the displayed one", func() {
			So(v.Overall, ShouldEqual, 83.95)
			So(v.Score, ShouldEqual, 839)
			So(v.Score, ShouldEqual, scoring.ConsensusScore([]int{
				84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 83,
			}))
		})

		Convey("And a snapshot of the same window keeps that score", func() {
			snap, ok := scoring.BuildSnapshot("p-1", "2026-10-01", evals)
			So(ok, ShouldBeTrue)
			So(snap.AvgOverall, ShouldEqual, 83.95)
			So(snap.Score, ShouldEqual, 839)
		})
	})
}

func TestBuildSnapshot(t *testing.T) {
	Convey("Given evaluations in a window", t, func() {
		t0 := time.Date(2026, 9, 20, 8, 0, 0, 0, time.UTC)
		evals := []model.Evaluation{
			eval(model.EvaluatorClaude, 80, t0),
			eval(model.EvaluatorClaude, 90, t0.Add(48*time.Hour)),
			eval(model.EvaluatorChatGPT, 70, t0.Add(time.Hour)),
		}

		snap, ok := scoring.BuildSnapshot("p-1", "2026-10-01", evals)

		Convey("Then aggregates cover the whole window", func() {
			So(ok, ShouldBeTrue)
			So(snap.EvaluationCount, ShouldEqual, 3)
			So(snap.AvgOverall, ShouldEqual, 80)
			So(snap.MaxOverall, ShouldEqual, 90)
			So(snap.MinOverall, ShouldEqual, 70)
			So(snap.CriterionAverages[model.PolicyImpact], ShouldEqual, 80)
		})

		Convey("Then evaluator slots hold the latest score or nil", func() {
			So(*snap.EvaluatorScores[model.EvaluatorClaude], ShouldEqual, 90)
			So(*snap.EvaluatorScores[model.EvaluatorChatGPT], ShouldEqual, 70)
			So(snap.EvaluatorScores[model.EvaluatorGemini], ShouldBeNil)
			So(len(snap.EvaluatorScores), ShouldEqual, len(model.Evaluators))
		})

		Convey("Then input order does not change the result", func() {
			reversed := []model.Evaluation{evals[2], evals[1], evals[0]}
			again, _ := scoring.BuildSnapshot("p-1", "2026-10-01", reversed)
			So(again, ShouldResemble, snap)
		})
	})

	Convey("Given no evaluations", t, func() {
		_, ok := scoring.BuildSnapshot("p-1", "2026-10-01", nil)
		So(ok, ShouldBeFalse)
	})

	Convey("Given two versions from one evaluator at the same instant", t, func() {
		at := time.Now()
		a := eval(model.EvaluatorGrok, 60, at)
		b := eval(model.EvaluatorGrok, 65, at)
		b.Version = "v2"

		latest := scoring.LatestPerEvaluator([]model.Evaluation{b, a})
		So(len(latest), ShouldEqual, 1)
		So(latest[0].Version, ShouldEqual, "v2")
	})
}
