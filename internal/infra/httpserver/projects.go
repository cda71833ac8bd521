package httpserver

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appprojects "github.com/bryanwahyu/autoarchitect/internal/application/projects"
	"github.com/bryanwahyu/autoarchitect/internal/domain/projects"
	"github.com/bryanwahyu/autoarchitect/internal/middleware"
)

// POST /v1/projects
// Body: {"name", "description", "sources": [...], "analysis_options": {...}, "start": true}
func (r *Router) handleCreateProject(w http.ResponseWriter, req *http.Request) error {
	var cmd appprojects.CreateProjectCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	cmd.Name = middleware.SanitizeString(cmd.Name)
	cmd.Description = middleware.SanitizeString(cmd.Description)
	for i, src := range cmd.Sources {
		if src.Type == projects.SourceGitHub || src.Type == projects.SourceGoogleDrive {
			if err := middleware.ValidateSourceURL(src.URL); err != nil {
				return badRequest("source %d: %v", i, err)
			}
		}
		cmd.Sources[i].Name = middleware.SanitizeString(src.Name)
	}
	types, err := middleware.ValidateDiagramTypes(cmd.Options.DiagramTypes)
	if err != nil {
		return badRequest("%v", err)
	}
	cmd.Options.DiagramTypes = types
	cmd.Options.Focus = middleware.SanitizeString(cmd.Options.Focus)

	p, err := r.projects.Create(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, p)
}

// GET /v1/projects?limit=20
func (r *Router) handleListProjects(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.projects.List(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*projects.Project{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/projects/{id}
// Looking at a project that is waiting for its first run starts that run.
func (r *Router) handleGetProject(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	triggered, err := r.analysis.Observe(req.Context(), id)
	if err != nil {
		return err
	}
	p, err := r.projects.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"project":   p,
		"triggered": triggered,
	})
}

// DELETE /v1/projects/{id}
func (r *Router) handleDeleteProject(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	if err := r.projects.Delete(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/projects/{id}/results
func (r *Router) handleListResults(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	rows, err := r.projects.ListResults(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rows)
}

// POST /v1/projects/{id}/analyze
// Jalankan di background; client polling GET /v1/projects/{id}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	runID, err := r.analysis.StartAsync(req.Context(), id)
	if err != nil {
		return err
	}
	r.logger.Info("analysis queued", zap.String("project_id", string(id)), zap.String("run_id", string(runID)))
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "queued",
		"project_id": id,
		"run_id":     runID,
		"message":    "analysis started in background",
		"queuedAt":   time.Now(),
	})
}

// GET /v1/projects/{id}/runs/{runID}/{snapshot.txt|transcript.md}
func (r *Router) handleRunArtifact(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	runID := chi.URLParam(req, "runID")
	if err := middleware.ValidateRunID(runID); err != nil {
		return badRequest("%v", err)
	}
	name := chi.URLParam(req, "artifact")
	if !projects.ValidArtifact(name) {
		return badRequest("unknown artifact %q", name)
	}
	if r.archive == nil {
		return writeJSON(w, http.StatusNotFound, map[string]string{"error": "run archive is not configured"})
	}

	body, err := r.archive.GetText(req.Context(), projects.ArchiveKey(id, projects.RunID(runID), name))
	if err != nil {
		return err
	}
	ct := "text/plain; charset=utf-8"
	if name == projects.ArtifactTranscript {
		ct = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	_, err = io.WriteString(w, body)
	return err
}
