package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	service "github.com/politicianfinder/evalengine/internal/app"
)

// SnapshotDependencies runs and reads snapshot archival.
type SnapshotDependencies interface {
	RunSnapshotArchival(ctx context.Context, date time.Time, lookbackDays int) (service.ArchivalSummary, error)
	SnapshotHistory(ctx context.Context, politicianID, from, to string) ([]service.SnapshotView, error)
}

// SnapshotHandler handles snapshot requests.
type SnapshotHandler struct {
	deps SnapshotDependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps SnapshotDependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// HandleRun handles POST /snapshots/run?date=YYYY-MM-DD&lookback_days=N.
// Both parameters are optional.
func (h *SnapshotHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.snapshot_run"
	date, err := queryDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	lookback, err := queryInt(r, "lookback_days")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	sum, err := h.deps.RunSnapshotArchival(r.Context(), date, lookback)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleGetHistory handles GET /politicians/{id}/snapshots?from=&to=.
func (h *SnapshotHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.snapshot_history"
	q := r.URL.Query()
	views, err := h.deps.SnapshotHistory(r.Context(), chi.URLParam(r, "id"),
		strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
