package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/autoarchitect/internal/application/analysis"
	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
)

// eventWriter writes server-sent events and flushes after each one. Headers
// go out with the first event so earlier failures can still be plain JSON.
type eventWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	err     error
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	return &eventWriter{w: w, rc: http.NewResponseController(w)}
}

func (e *eventWriter) start() {
	if e.started {
		return
	}
	e.started = true
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	e.w.WriteHeader(http.StatusOK)
}

func (e *eventWriter) send(event string, v any) {
	if e.err != nil {
		return
	}
	e.start()
	raw, err := json.Marshal(v)
	if err != nil {
		e.err = err
		return
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, raw); err != nil {
		e.err = err
		return
	}
	_ = e.rc.Flush()
}

// POST /v1/projects/{id}/analyze/stream
// Runs the analysis on this request and streams stage, delta, done or error events.
func (r *Router) handleAnalyzeStream(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}

	ev := newEventWriter(w)
	obs := appanalysis.ObserverFuncs{
		Stage: func(s appanalysis.Stage) { ev.send("stage", map[string]string{"stage": string(s)}) },
		Delta: func(d string) { ev.send("delta", map[string]string{"content": d}) },
	}
	report, err := r.analysis.StartRun(req.Context(), id, appanalysis.WithObserver(obs))
	if err != nil && !ev.started {
		return err
	}
	if err != nil {
		ev.send("error", map[string]any{"error": err.Error(), "report": report})
		return nil
	}
	ev.send("done", report)
	return nil
}

// POST /v1/analyze-architecture
// Body: {"content", "focus", "diagramTypes", "projectId"}; answers with the
// model's event stream as is.
func (r *Router) handleAnalyzeArchitecture(w http.ResponseWriter, req *http.Request) error {
	if r.model == nil {
		return writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "model is not configured"})
	}
	var body ai.AnalyzeRequest
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if strings.TrimSpace(body.Content) == "" {
		return badRequest("content is required")
	}

	stream, err := r.model.Stream(req.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			return writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded. Please try again later."})
		case errors.Is(err, ai.ErrQuotaExceeded):
			return writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "Payment required. Please add credits."})
		}
		r.logger.Error("model request failed", zap.Error(err))
		return writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "AI gateway error"})
	}
	defer stream.Close()

	ev := newEventWriter(w)
	ev.start()
	buf := make([]byte, 4<<10)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// client went away
				return nil
			}
			_ = ev.rc.Flush()
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				r.logger.Warn("model stream interrupted", zap.Error(rerr))
			}
			return nil
		}
	}
}

// POST /v1/analyze-github
// Body: {"repoUrl": "https://github.com/owner/repo"} → {"content": "..."}
func (r *Router) handleAnalyzeGitHub(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		RepoURL string `json:"repoUrl"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if strings.TrimSpace(body.RepoURL) == "" {
		return badRequest("repoUrl is required")
	}
	content, err := r.snapshotter.Snapshot(req.Context(), body.RepoURL)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"content": content})
}
