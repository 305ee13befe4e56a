package worker_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/politicianfinder/evalengine/internal/adapters/mq/queue"
	worker "github.com/politicianfinder/evalengine/internal/adapters/mq/worker"
	"github.com/politicianfinder/evalengine/internal/adapters/repository"
	model "github.com/politicianfinder/evalengine/internal/domain/model"
	logging "github.com/politicianfinder/evalengine/pkg/logger"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// storeErrors reads store_errors_total{operation} from the engine registry.
func storeErrors(t *testing.T, operation string) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "politicianfinder_engine_store_errors_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "operation" && l.GetValue() == operation {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestPoolStoreErrorCounting(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool writing to a store whose evaluations table is gone", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dsn := "file:" + filepath.Join(t.TempDir(), "broken.db") + "?_pragma=busy_timeout(5000)"
		store, err := repository.Open(ctx, repository.DriverSQLite, dsn)
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()
		_, err = store.DB().ExecContext(ctx, `DROP TABLE evaluations`)
		convey.So(err, convey.ShouldBeNil)

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		pool := worker.NewPool(1, q, &mockGenerator{}, store)
		pool.Start(ctx)

		before := storeErrors(t, "upsert_evaluation")
		ev := model.Evaluation{PoliticianID: "p-1", Evaluator: model.EvaluatorClaude, Version: "v1", Criteria: uniform(80)}
		convey.So(q.Enqueue(ctx, model.Job{JobID: "j", Kind: model.JobSubmit, PoliticianID: "p-1", Evaluation: &ev}), convey.ShouldBeTrue)

		convey.Convey("When the single write fails", func() {
			convey.So(waitFor(func() bool { return pool.Failed() == 1 }), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then the store error is counted exactly once", func() {
				convey.So(storeErrors(t, "upsert_evaluation")-before, convey.ShouldEqual, 1)
			})
		})
	})
}
