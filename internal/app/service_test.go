package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/politicianfinder/evalengine/internal/app"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(&spyStore{})

		Convey("Then it should report sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(openStore(t),
			service.WithWorkerCount(3),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithCompareLookback(7),
			service.WithArchiveLookback(14),
			service.WithGenerationLatencyRange(0, time.Millisecond),
			service.WithClock(fixedClock),
		)

		Convey("Then the options are reflected in stats", func() {
			stats := svc.GetStats(context.Background())
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 50)
			So(stats["dedupeSize"], ShouldEqual, 25)
			So(stats["started"], ShouldEqual, false)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New(openStore(t), service.WithWorkerCount(2))
		ctx := context.Background()

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, true)

			stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then it ends stopped", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_ClassifyGrade(t *testing.T) {
	Convey("Given the grade classifier", t, func() {
		svc := service.New(&spyStore{})

		Convey("Then boundaries follow the tier table", func() {
			So(svc.ClassifyGrade(1000).Code, ShouldEqual, "M")
			So(svc.ClassifyGrade(920).Code, ShouldEqual, "M")
			So(svc.ClassifyGrade(919).Code, ShouldEqual, "D")
			So(svc.ClassifyGrade(840).Code, ShouldEqual, "D")
			So(svc.ClassifyGrade(839).Code, ShouldEqual, "E")
			So(svc.ClassifyGrade(0).Code, ShouldEqual, "L")
		})

		Convey("Then out-of-range scores are clamped first", func() {
			So(svc.ClassifyGrade(-40).Code, ShouldEqual, "L")
			So(svc.ClassifyGrade(5000).Code, ShouldEqual, "M")
		})
	})
}

func TestService_CompareValidation(t *testing.T) {
	Convey("Given a service over a spying store", t, func() {
		spy := &spyStore{}
		svc := service.New(spy)
		ctx := context.Background()

		cases := []struct {
			name string
			ids  []string
		}{
			{"one id", []string{"a"}},
			{"six ids", []string{"a", "b", "c", "d", "e", "f"}},
			{"an empty id", []string{"a", " "}},
			{"duplicate ids", []string{"a", "a"}},
		}
		for _, tc := range cases {
			Convey("When comparing with "+tc.name, func() {
				_, err := svc.Compare(ctx, tc.ids, 5)

				Convey("Then it fails validation without touching storage", func() {
					So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
					So(spy.calls.Load(), ShouldEqual, 0)
				})
			})
		}

		Convey("When comparing a structurally valid list of unknown ids", func() {
			_, err := svc.Compare(ctx, []string{"a", "b", "c"}, 5)

			Convey("Then storage is consulted and the result is insufficient, not invalid", func() {
				So(spy.calls.Load(), ShouldEqual, 3)
				So(errors.Is(err, service.ErrInsufficientComparable), ShouldBeTrue)
				So(errors.Is(err, service.ErrValidation), ShouldBeFalse)
			})
		})
	})
}

func TestService_IngestionValidation(t *testing.T) {
	Convey("Given a stopped service with one politician", t, func() {
		store := openStore(t)
		mustPolitician(t, store, "p-1", "Kim")
		svc := service.New(store)
		ctx := context.Background()

		Convey("When the evaluator is unknown", func() {
			_, err := svc.SubmitEvaluation(ctx, &service.Submission{
				PoliticianID: "p-1", Evaluator: "llama", Version: "v1", Criteria: uniform(70),
			})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			So(errors.Is(err, model.ErrUnknownEvaluator), ShouldBeTrue)
		})

		Convey("When a criterion is out of range", func() {
			cs := uniform(70)
			cs[model.Integrity].Score = 101
			_, err := svc.SubmitEvaluation(ctx, &service.Submission{
				PoliticianID: "p-1", Evaluator: model.EvaluatorClaude, Version: "v1", Criteria: cs,
			})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("When the politician is unknown", func() {
			_, err := svc.RequestGeneration(ctx, service.GenerationRequest{
				PoliticianID: "p-9", Evaluator: model.EvaluatorGrok, Version: "v1",
			})
			So(errors.Is(err, service.ErrPoliticianNotFound), ShouldBeTrue)
		})

		Convey("When the service has not been started", func() {
			_, err := svc.RequestGeneration(ctx, service.GenerationRequest{
				PoliticianID: "p-1", Evaluator: model.EvaluatorGrok, Version: "v1",
			})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When registering a politician without a name", func() {
			_, err := svc.RegisterPolitician(ctx, model.Politician{ID: "p-2"})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})
	})
}

// blockingGenerator holds every job until release is closed.
type blockingGenerator struct {
	release chan struct{}
}

func (g *blockingGenerator) Generate(ctx context.Context, in scoring.Input) (scoring.Result, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return scoring.Result{}, ctx.Err()
	}
	return scoring.NewBaselineGenerator().Generate(ctx, in)
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a one-slot queue whose single worker is stuck", t, func() {
		store := openStore(t)
		mustPolitician(t, store, "p-1", "Kim")
		gen := &blockingGenerator{release: make(chan struct{})}
		svc := service.New(store,
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithGenerator(gen),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() {
			close(gen.release)
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = svc.Stop(stopCtx)
		})

		Convey("When generation requests keep arriving", func() {
			var rejected string
			for i := 0; i < 10 && rejected == ""; i++ {
				id := "req-" + string(rune('a'+i))
				_, err := svc.RequestGeneration(ctx, service.GenerationRequest{
					RequestID: id, PoliticianID: "p-1", Evaluator: model.EvaluatorGemini, Version: id,
				})
				if errors.Is(err, service.ErrBackpressure) {
					rejected = id
				}
			}

			Convey("Then the queue reports backpressure and forgets the rejected id", func() {
				So(rejected, ShouldNotBeEmpty)

				_, err := svc.RequestGeneration(ctx, service.GenerationRequest{
					RequestID: rejected, PoliticianID: "p-1", Evaluator: model.EvaluatorGemini, Version: rejected,
				})
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
			})
		})
	})
}
