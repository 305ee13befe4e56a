package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/politicianfinder/evalengine/internal/adapters/mq/queue"
	worker "github.com/politicianfinder/evalengine/internal/adapters/mq/worker"
	model "github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/internal/domain/scoring"
	logging "github.com/politicianfinder/evalengine/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockGenerator struct {
	err error
}

func (g *mockGenerator) Generate(_ context.Context, in scoring.Input) (scoring.Result, error) {
	if g.err != nil {
		return scoring.Result{}, g.err
	}
	var cs model.CriterionScores
	for i := range cs {
		cs[i].Score = 70 + i // mean 74.5 -> 75
	}
	return scoring.Result{PoliticianID: in.PoliticianID, Evaluator: in.Evaluator, Criteria: cs}, nil
}

type mockWriter struct {
	mu     sync.Mutex
	stored []model.Evaluation
	err    error
}

func (w *mockWriter) UpsertEvaluation(_ context.Context, e model.Evaluation) (model.Evaluation, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return model.Evaluation{}, false, w.err
	}
	w.stored = append(w.stored, e)
	return e, true, nil
}

func (w *mockWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stored)
}

func (w *mockWriter) last() model.Evaluation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stored[len(w.stored)-1]
}

func uniform(score int) model.CriterionScores {
	var cs model.CriterionScores
	for i := range cs {
		cs[i].Score = score
	}
	return cs
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a running InMemoryWorker", t, func() {
		q := newMockQueue()
		gen := &mockGenerator{}
		writer := &mockWriter{}
		fixed := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
		w := worker.NewInMemoryWorker(q, gen, writer, worker.WithName("w-test"), worker.WithClock(func() time.Time { return fixed }))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a generate job is processed", func() {
			q.jobs <- model.Job{JobID: "j1", Kind: model.JobGenerate, PoliticianID: "p-1", Evaluator: model.EvaluatorClaude, Version: "v1"}

			convey.Convey("Then the generated evaluation is stored with a derived overall", func() {
				convey.So(waitFor(func() bool { return writer.count() == 1 }), convey.ShouldBeTrue)
				e := writer.last()
				convey.So(e.PoliticianID, convey.ShouldEqual, "p-1")
				convey.So(e.Evaluator, convey.ShouldEqual, model.EvaluatorClaude)
				convey.So(e.OverallScore, convey.ShouldEqual, 75)
				convey.So(e.CreatedAt, convey.ShouldEqual, fixed)
				convey.So(e.Summary, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When a submit job is processed", func() {
			received := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
			ev := model.Evaluation{PoliticianID: "p-2", Evaluator: model.EvaluatorGemini, Version: "v2", OverallScore: 12, Criteria: uniform(88)}
			q.jobs <- model.Job{JobID: "j2", Kind: model.JobSubmit, PoliticianID: "p-2", Evaluation: &ev, ReceivedAt: received}

			convey.Convey("Then the supplied overall is replaced by the criteria mean", func() {
				convey.So(waitFor(func() bool { return writer.count() == 1 }), convey.ShouldBeTrue)
				e := writer.last()
				convey.So(e.OverallScore, convey.ShouldEqual, 88)
				convey.So(e.CreatedAt, convey.ShouldEqual, received)
			})
		})

		convey.Convey("When a job fails and a later one succeeds", func() {
			q.jobs <- model.Job{JobID: "bad", Kind: model.JobSubmit, PoliticianID: "p-3"}
			bad := uniform(50)
			bad[model.Innovation].Score = 140
			q.jobs <- model.Job{JobID: "bad2", Kind: model.JobSubmit, Evaluation: &model.Evaluation{PoliticianID: "p-3", Evaluator: model.EvaluatorGrok, Criteria: bad}}
			q.jobs <- model.Job{JobID: "ok", Kind: model.JobGenerate, PoliticianID: "p-3", Evaluator: model.EvaluatorGrok, Version: "v1"}

			convey.Convey("Then the worker keeps going and stores only the valid job", func() {
				convey.So(waitFor(func() bool { return writer.count() == 1 }), convey.ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				convey.So(writer.count(), convey.ShouldEqual, 1)
				convey.So(writer.last().PoliticianID, convey.ShouldEqual, "p-3")
			})
		})

		convey.Convey("When the queue closes", func() {
			_ = q.Close()

			convey.Convey("Then the worker shuts down", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a failing generator", t, func() {
		q := newMockQueue()
		writer := &mockWriter{}
		w := worker.NewInMemoryWorker(q, &mockGenerator{err: errors.New("upstream down")}, writer)
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)

		q.jobs <- model.Job{JobID: "j", Kind: model.JobGenerate, PoliticianID: "p-1", Evaluator: model.EvaluatorGrok}
		time.Sleep(20 * time.Millisecond)
		cancel()

		convey.Convey("Then nothing is stored and cancellation stops the worker", func() {
			convey.So(writer.count(), convey.ShouldEqual, 0)
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a worker pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		writer := &mockWriter{}
		pool := worker.NewPool(4, q, &mockGenerator{}, writer)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When processing multiple jobs", func() {
			for i := 0; i < 20; i++ {
				ok := q.Enqueue(ctx, model.Job{
					JobID:        fmt.Sprintf("j%d", i),
					Kind:         model.JobGenerate,
					PoliticianID: fmt.Sprintf("p-%d", i),
					Evaluator:    model.EvaluatorChatGPT,
					Version:      "v1",
				})
				convey.So(ok, convey.ShouldBeTrue)
			}

			convey.Convey("Then all jobs are stored and counted", func() {
				convey.So(waitFor(func() bool { return pool.Processed() == 20 }), convey.ShouldBeTrue)
				convey.So(writer.count(), convey.ShouldEqual, 20)
				convey.So(pool.Failed(), convey.ShouldEqual, 0)
				convey.So(pool.Size(), convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When shutting down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then it closes the queue and waits for workers", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a failing store", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		pool := worker.NewPool(1, q, &mockGenerator{}, &mockWriter{err: errors.New("db down")})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		q.Enqueue(ctx, model.Job{JobID: "j", Kind: model.JobGenerate, PoliticianID: "p", Evaluator: model.EvaluatorClaude})

		convey.So(waitFor(func() bool { return pool.Failed() == 1 }), convey.ShouldBeTrue)
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
	})
}
