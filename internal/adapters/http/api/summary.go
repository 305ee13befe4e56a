package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/politicianfinder/evalengine/internal/app"
)

// SummaryDependencies builds evaluation summaries.
type SummaryDependencies interface {
	EvaluationSummary(ctx context.Context, politicianID string) (service.Summary, error)
}

// SummaryHandler handles evaluation summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleGetSummary handles GET /politicians/{id}/evaluation-summary. A
// politician without evaluations is answered with 200 and available=false.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluation_summary"
	sum, err := h.deps.EvaluationSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
