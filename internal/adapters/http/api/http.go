// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/politicianfinder/evalengine/internal/app"
	"github.com/politicianfinder/evalengine/internal/domain/grading"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	IngestDependencies
	SummaryDependencies
	CompareDependencies
	SnapshotDependencies
	GradeDependencies
	PoliticianDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	evaluationHandler *EvaluationHandler
	summaryHandler    *SummaryHandler
	compareHandler    *CompareHandler
	snapshotHandler   *SnapshotHandler
	gradeHandler      *GradeHandler
	politicianHandler *PoliticianHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(deps),
		evaluationHandler: NewEvaluationHandler(deps),
		summaryHandler:    NewSummaryHandler(deps),
		compareHandler:    NewCompareHandler(deps),
		snapshotHandler:   NewSnapshotHandler(deps),
		gradeHandler:      NewGradeHandler(deps),
		politicianHandler: NewPoliticianHandler(deps),
	}
}

// NewRouter returns a chi router with request ids, panic recovery and CORS
// for allowedOrigins.
func NewRouter(allowedOrigins []string) chi.Router {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.healthHandler.HandleStats, "stats"))

	r.Route("/politicians/{id}", func(r chi.Router) {
		r.Put("/", MetricsMiddleware(s.politicianHandler.HandlePutPolitician, "politician"))
		r.Get("/evaluation-summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "evaluation_summary"))
		r.Get("/snapshots", MetricsMiddleware(s.snapshotHandler.HandleGetHistory, "snapshot_history"))
		r.Post("/evaluations", MetricsMiddleware(s.evaluationHandler.HandleSubmit, "submit_evaluation"))
		r.Post("/evaluations/generate", MetricsMiddleware(s.evaluationHandler.HandleGenerate, "generate_evaluation"))
	})

	r.Get("/compare", MetricsMiddleware(s.compareHandler.HandleCompare, "compare"))
	r.Post("/snapshots/run", MetricsMiddleware(s.snapshotHandler.HandleRun, "snapshot_run"))
	r.Get("/grades", MetricsMiddleware(s.gradeHandler.HandleListGrades, "grades"))
	r.Get("/grades/{score}", MetricsMiddleware(s.gradeHandler.HandleClassify, "grade"))
}

type ackResponse struct {
	Status    string `json:"status"`
	JobID     string `json:"job_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto status codes. Server errors
// are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientComparable):
		writeError(w, http.StatusBadRequest, "insufficient_data", Wrap(op, err))
	case errors.Is(err, service.ErrValidation), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrPoliticianNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		logger.Get().Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
	}
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, WrapKind("api.query", ErrBadRequest, errors.New(name+" must be an integer"))
	}
	return n, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter; absent yields
// the zero time.
func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(model.SnapshotDateLayout, raw)
	if err != nil {
		return time.Time{}, WrapKind("api.query", ErrBadRequest, errors.New(name+" must be YYYY-MM-DD"))
	}
	return d, nil
}

// GradeDependencies classifies scores.
type GradeDependencies interface {
	ClassifyGrade(score int) grading.Tier
}
