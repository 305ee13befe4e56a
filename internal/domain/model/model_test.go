package model_test

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	model "github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func fullCriteriaJSON(score int) string {
	out := "{"
	for i, c := range model.Criteria() {
		if i > 0 {
			out += ","
		}
		out += `"` + c.String() + `":{"score":` + strconv.Itoa(score) + `,"evidence":"e"}`
	}
	return out + "}"
}

func TestEvaluator(t *testing.T) {
	convey.Convey("Given evaluator names", t, func() {
		convey.Convey("When parsing a known evaluator with noise", func() {
			e, err := model.ParseEvaluator("  Claude ")

			convey.Convey("Then it should normalize", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e, convey.ShouldEqual, model.EvaluatorClaude)
			})
		})

		convey.Convey("When parsing an unknown evaluator", func() {
			_, err := model.ParseEvaluator("llama")

			convey.Convey("Then it should fail", func() {
				convey.So(errors.Is(err, model.ErrUnknownEvaluator), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Then all five evaluators are valid", func() {
			convey.So(len(model.Evaluators), convey.ShouldEqual, 5)
			for _, e := range model.Evaluators {
				convey.So(e.Valid(), convey.ShouldBeTrue)
			}
		})
	})
}

func TestCriterionScores(t *testing.T) {
	convey.Convey("Given the ten criteria", t, func() {
		convey.So(len(model.Criteria()), convey.ShouldEqual, model.NumCriteria)
		convey.So(model.Integrity.String(), convey.ShouldEqual, "integrity")
		convey.So(model.PolicyImpact.String(), convey.ShouldEqual, "policy_impact")
		convey.So(model.Criterion(42).String(), convey.ShouldEqual, "criterion(42)")

		c, err := model.ParseCriterion("constituency_service")
		convey.So(err, convey.ShouldBeNil)
		convey.So(c, convey.ShouldEqual, model.ConstituencyService)
	})

	convey.Convey("Given criterion scores JSON", t, func() {
		convey.Convey("When all ten criteria are present", func() {
			var cs model.CriterionScores
			err := json.Unmarshal([]byte(fullCriteriaJSON(80)), &cs)

			convey.Convey("Then every slot is filled", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cs.Validate(), convey.ShouldBeNil)
				for _, c := range model.Criteria() {
					convey.So(cs.Get(c).Score, convey.ShouldEqual, 80)
				}
			})

			convey.Convey("And it encodes back keyed by name", func() {
				b, err := json.Marshal(cs)
				convey.So(err, convey.ShouldBeNil)
				var m map[string]model.CriterionScore
				convey.So(json.Unmarshal(b, &m), convey.ShouldBeNil)
				convey.So(m["leadership"].Score, convey.ShouldEqual, 80)
				convey.So(len(m), convey.ShouldEqual, model.NumCriteria)
			})
		})

		convey.Convey("When a criterion is missing", func() {
			var cs model.CriterionScores
			err := json.Unmarshal([]byte(`{"integrity":{"score":50}}`), &cs)

			convey.Convey("Then it reports the first missing one", func() {
				convey.So(errors.Is(err, model.ErrMissingCriterion), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "expertise")
			})
		})

		convey.Convey("When an unknown criterion is present", func() {
			var cs model.CriterionScores
			err := json.Unmarshal([]byte(`{"charisma":{"score":50}}`), &cs)

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, model.ErrUnknownCriterion), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a score is out of range", func() {
			var cs model.CriterionScores
			cs[model.Innovation].Score = 101

			convey.So(errors.Is(cs.Validate(), model.ErrCriterionOutOfRange), convey.ShouldBeTrue)
			cs[model.Innovation].Score = -1
			convey.So(errors.Is(cs.Validate(), model.ErrCriterionOutOfRange), convey.ShouldBeTrue)
		})
	})
}

func TestSnapshotAndEvaluation(t *testing.T) {
	convey.Convey("Given a snapshot with criterion averages", t, func() {
		s := model.Snapshot{PoliticianID: "p-1", Date: "2026-10-01"}
		s.CriterionAverages[model.Transparency] = 71.5

		m := s.CriterionAverageMap()
		convey.So(len(m), convey.ShouldEqual, model.NumCriteria)
		convey.So(m["transparency"], convey.ShouldEqual, 71.5)
	})

	convey.Convey("Given an evaluation", t, func() {
		e := model.Evaluation{PoliticianID: "p-1", Evaluator: model.EvaluatorGrok, Version: "v24"}

		convey.So(e.Key(), convey.ShouldResemble, model.Key{PoliticianID: "p-1", Evaluator: model.EvaluatorGrok, Version: "v24"})
	})
}
