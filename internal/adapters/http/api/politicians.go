package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/politicianfinder/evalengine/internal/domain/model"
)

// PoliticianDependencies registers politician identities.
type PoliticianDependencies interface {
	RegisterPolitician(ctx context.Context, p model.Politician) (model.Politician, error)
}

// PoliticianHandler handles politician registration.
type PoliticianHandler struct {
	deps PoliticianDependencies
}

// NewPoliticianHandler creates a new politician handler.
func NewPoliticianHandler(deps PoliticianDependencies) *PoliticianHandler {
	return &PoliticianHandler{deps: deps}
}

type politicianRequest struct {
	Name     string `json:"name"`
	Party    string `json:"party"`
	Position string `json:"position"`
}

// HandlePutPolitician handles PUT /politicians/{id}.
func (h *PoliticianHandler) HandlePutPolitician(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_politician"
	var req politicianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	p, err := h.deps.RegisterPolitician(r.Context(), model.Politician{
		ID:       chi.URLParam(r, "id"),
		Name:     req.Name,
		Party:    req.Party,
		Position: req.Position,
	})
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
