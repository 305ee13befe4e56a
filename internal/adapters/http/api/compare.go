package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/politicianfinder/evalengine/internal/app"
)

// CompareDependencies ranks politicians against each other.
type CompareDependencies interface {
	Compare(ctx context.Context, ids []string, lookback int) (service.Comparison, error)
}

// CompareHandler handles comparison requests.
type CompareHandler struct {
	deps CompareDependencies
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(deps CompareDependencies) *CompareHandler {
	return &CompareHandler{deps: deps}
}

// HandleCompare handles GET /compare?ids=a,b[,c...]&lookback=N.
func (h *CompareHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"

	var ids []string
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			ids = append(ids, strings.TrimSpace(id))
		}
	}
	lookback, err := queryInt(r, "lookback")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	cmp, err := h.deps.Compare(r.Context(), ids, lookback)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
