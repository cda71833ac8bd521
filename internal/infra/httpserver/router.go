package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/autoarchitect/internal/application/analysis"
	appprojects "github.com/bryanwahyu/autoarchitect/internal/application/projects"
	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
	"github.com/bryanwahyu/autoarchitect/internal/domain/projects"
	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
	"github.com/bryanwahyu/autoarchitect/internal/middleware"
)

const maxBodyBytes = 16 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Projects    *appprojects.Service
	Analysis    *appanalysis.Service
	Snapshotter sources.Snapshotter
	// Model backs /v1/analyze-architecture; nil disables the endpoint.
	Model ai.StreamClient
	// Archive serves archived run artefacts; nil answers 404.
	Archive projects.ArchiveReader
	Metrics *middleware.Metrics
	Logger  *zap.Logger
}

type Options struct {
	CORSOrigins  []string
	APIKeys      map[string]string
	RateLimiter  *middleware.RateLimiter
	HealthChecks map[string]middleware.HealthChecker
	ReadyChecks  map[string]middleware.HealthChecker
}

type Router struct {
	projects    *appprojects.Service
	analysis    *appanalysis.Service
	snapshotter sources.Snapshotter
	model       ai.StreamClient
	archive     projects.ArchiveReader
	logger      *zap.Logger
}

var probePaths = []string{"/healthz", "/readyz", "/livez", "/metrics"}

func NewRouter(deps Deps, opts Options) http.Handler {
	r := &Router{
		projects:    deps.Projects,
		analysis:    deps.Analysis,
		snapshotter: deps.Snapshotter,
		model:       deps.Model,
		archive:     deps.Archive,
		logger:      deps.Logger,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = middleware.NewMetrics()
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(r.logger))
	mux.Use(metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys, probePaths...))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimit(opts.RateLimiter, probePaths...))
	}

	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(opts.ReadyChecks))
	mux.Get("/healthz", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/metrics", metrics.Handler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze-architecture", r.wrap(r.handleAnalyzeArchitecture))
		rt.Post("/analyze-github", r.wrap(r.handleAnalyzeGitHub))

		rt.Post("/projects", r.wrap(r.handleCreateProject))
		rt.Get("/projects", r.wrap(r.handleListProjects))
		rt.Route("/projects/{id}", func(pr chi.Router) {
			pr.Get("/", r.wrap(r.handleGetProject))
			pr.Delete("/", r.wrap(r.handleDeleteProject))
			pr.Get("/results", r.wrap(r.handleListResults))
			pr.Post("/analyze", r.wrap(r.handleAnalyze))
			pr.Post("/analyze/stream", r.wrap(r.handleAnalyzeStream))
			pr.Get("/runs/{runID}/{artifact}", r.wrap(r.handleRunArtifact))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			code := statusFor(err)
			if code >= http.StatusInternalServerError {
				r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, projects.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, projects.ErrInvalidProject),
		errors.Is(err, sources.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, projects.ErrRunInProgress), errors.Is(err, projects.ErrLeaseLost):
		return http.StatusConflict
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, ai.ErrRequestFailed), errors.Is(err, sources.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func projectID(req *http.Request) (projects.ProjectID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateProjectID(id); err != nil {
		return "", badRequest("%v", err)
	}
	return projects.ProjectID(id), nil
}
