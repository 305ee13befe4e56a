package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/politicianfinder/evalengine/internal/app"
)

// IngestDependencies queues evaluations for the workers.
type IngestDependencies interface {
	SubmitEvaluation(ctx context.Context, sub *service.Submission) (service.Receipt, error)
	RequestGeneration(ctx context.Context, req service.GenerationRequest) (service.Receipt, error)
}

// EvaluationHandler handles evaluation ingestion requests.
type EvaluationHandler struct {
	deps IngestDependencies
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(deps IngestDependencies) *EvaluationHandler {
	return &EvaluationHandler{deps: deps}
}

// HandleSubmit handles POST /politicians/{id}/evaluations. The politician
// id comes from the path. Responds 202 when queued, 200 for a repeated
// submission_id and 429 when the queue is full.
func (h *EvaluationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_evaluation"
	var sub service.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sub.PoliticianID = chi.URLParam(r, "id")

	receipt, err := h.deps.SubmitEvaluation(r.Context(), &sub)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeReceipt(w, receipt)
}

// HandleGenerate handles POST /politicians/{id}/evaluations/generate.
func (h *EvaluationHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate_evaluation"
	var req service.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.PoliticianID = chi.URLParam(r, "id")

	receipt, err := h.deps.RequestGeneration(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeReceipt(w, receipt)
}

func writeReceipt(w http.ResponseWriter, receipt service.Receipt) {
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", JobID: receipt.JobID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", JobID: receipt.JobID})
}
