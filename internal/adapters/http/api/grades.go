package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/politicianfinder/evalengine/internal/domain/grading"
)

// GradeHandler handles grade lookups.
type GradeHandler struct {
	deps GradeDependencies
}

// NewGradeHandler creates a new grade handler.
func NewGradeHandler(deps GradeDependencies) *GradeHandler {
	return &GradeHandler{deps: deps}
}

type gradeResponse struct {
	Score int          `json:"score"`
	Grade grading.Tier `json:"grade"`
}

// HandleClassify handles GET /grades/{score}. Scores outside 0..1000 are
// clamped before classification.
func (h *GradeHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify_grade"
	score, err := strconv.Atoi(chi.URLParam(r, "score"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("score must be an integer")))
		return
	}
	writeJSON(w, http.StatusOK, gradeResponse{Score: grading.Clamp(score), Grade: h.deps.ClassifyGrade(score)})
}

// HandleListGrades handles GET /grades.
func (h *GradeHandler) HandleListGrades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, grading.Tiers())
}
