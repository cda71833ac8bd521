// Package analysis runs a project through source gathering, the streaming
// model and diagram extraction, and keeps the project status in step.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/autoarchitect/internal/application"
	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
	domain "github.com/bryanwahyu/autoarchitect/internal/domain/analysis"
	"github.com/bryanwahyu/autoarchitect/internal/domain/projects"
	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
	"github.com/bryanwahyu/autoarchitect/internal/infra/ai/sse"
)

// ErrNoDiagrams is recorded as the project's last error when the model
// answered without any diagram block.
var ErrNoDiagrams = errors.New("no diagrams produced")

const finishTimeout = 10 * time.Second

// Metrics receives run lifecycle events.
type Metrics interface {
	RunStarted()
	RunFinished(status projects.Status, d time.Duration)
}

type Config struct {
	// LeaseTTL is how long a processing project stays owned by its run.
	// A crashed run is taken over once it expires. Zero means never.
	LeaseTTL time.Duration
	// RunTimeout bounds a whole run. Zero means no limit.
	RunTimeout time.Duration
}

// Service orchestrates analysis runs.
// Service is safe for concurrent use.
type Service struct {
	Projects    projects.Repository
	Results     projects.ResultRepository
	Snapshotter sources.Snapshotter
	Model       ai.StreamClient
	Archive     projects.ArchiveStore // optional
	Metrics     Metrics               // optional
	Clock       application.Clock
	Logger      *zap.Logger
	Config      Config

	observers singleflight.Group
	bg        sync.WaitGroup
}

// RunReport is the outcome of one run.
type RunReport struct {
	ProjectID  projects.ProjectID `json:"project_id"`
	RunID      projects.RunID     `json:"run_id"`
	Status     projects.Status    `json:"status"`
	Diagrams   int                `json:"diagrams"`
	LastError  string             `json:"last_error,omitempty"`
	Desynced   bool               `json:"desynced,omitempty"`
	DurationMS int64              `json:"duration_ms"`
}

type run struct {
	project *projects.Project
	id      projects.RunID
	started time.Time
}

//
// ==== USE CASES ====
//

// StartRun takes the project lease and runs the analysis to the end.
// It fails with projects.ErrRunInProgress while another run holds the lease.
func (s *Service) StartRun(ctx context.Context, id projects.ProjectID, opts ...RunOption) (RunReport, error) {
	r, err := s.acquire(ctx, id)
	if err != nil {
		return RunReport{ProjectID: id}, err
	}
	return s.execute(ctx, r, opts...)
}

// StartAsync takes the lease now and runs the analysis in the background.
func (s *Service) StartAsync(ctx context.Context, id projects.ProjectID) (projects.RunID, error) {
	r, err := s.acquire(ctx, id)
	if err != nil {
		return "", err
	}
	s.launch(r)
	return r.id, nil
}

// Observe looks at a project and starts a run when it sits in processing
// with no live run and no results, which is what a freshly created project
// looks like. It reports whether a run was started; concurrent observers of
// the same project in this process share one check and one answer.
func (s *Service) Observe(ctx context.Context, id projects.ProjectID) (bool, error) {
	v, err, _ := s.observers.Do(string(id), func() (any, error) {
		p, err := s.Projects.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if p.Status != projects.StatusProcessing || p.LeaseActive(s.Clock.Now(), s.Config.LeaseTTL) {
			return false, nil
		}
		n, err := s.Results.CountByProject(ctx, id)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
		r, err := s.acquireProject(ctx, p)
		if errors.Is(err, projects.ErrRunInProgress) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		s.Logger.Info("auto-triggering analysis", zap.String("project_id", string(id)), zap.String("run_id", string(r.id)))
		s.launch(r)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Wait blocks until background runs have finished.
func (s *Service) Wait() { s.bg.Wait() }

func (s *Service) launch(r *run) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		// request context sudah selesai, run jalan sendiri
		if _, err := s.execute(context.Background(), r); err != nil {
			s.Logger.Warn("background analysis failed",
				zap.String("project_id", string(r.project.ID)),
				zap.String("run_id", string(r.id)),
				zap.Error(err))
		}
	}()
}

func (s *Service) acquire(ctx context.Context, id projects.ProjectID) (*run, error) {
	p, err := s.Projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.acquireProject(ctx, p)
}

func (s *Service) acquireProject(ctx context.Context, p *projects.Project) (*run, error) {
	now := s.Clock.Now()
	if p.LeaseActive(now, s.Config.LeaseTTL) {
		return nil, projects.ErrRunInProgress
	}
	if !projects.CanTransition(p.Status, projects.StatusProcessing) {
		return nil, fmt.Errorf("project %s: cannot start run from status %q", p.ID, p.Status)
	}
	runID := projects.RunID(uuid.NewString())
	if err := s.Projects.AcquireRun(ctx, p.ID, p.Version, runID, now); err != nil {
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.RunStarted()
	}
	return &run{project: p, id: runID, started: now}, nil
}

func (s *Service) execute(ctx context.Context, r *run, opts ...RunOption) (RunReport, error) {
	o := runOptions{observer: ObserverFuncs{}}
	for _, opt := range opts {
		opt(&o)
	}
	if s.Config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.RunTimeout)
		defer cancel()
	}

	log := s.Logger.With(zap.String("project_id", string(r.project.ID)), zap.String("run_id", string(r.id)))
	log.Info("analysis run started")

	report := RunReport{ProjectID: r.project.ID, RunID: r.id}
	diagrams, desynced, runErr := s.analyze(ctx, r, o.observer, log)
	report.Desynced = desynced
	report.Diagrams = diagrams

	switch {
	case runErr != nil:
		report.Status = projects.StatusFailed
		report.LastError = runErr.Error()
	case diagrams == 0:
		report.Status = projects.StatusFailed
		report.LastError = ErrNoDiagrams.Error()
	default:
		report.Status = projects.StatusCompleted
	}

	// the run context may be cancelled already; the final status still has to land
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	finished := s.Clock.Now()
	finishErr := s.Projects.FinishRun(fctx, r.project.ID, r.id, report.Status, report.LastError, finished)
	report.DurationMS = finished.Sub(r.started).Milliseconds()

	if s.Metrics != nil {
		s.Metrics.RunFinished(report.Status, finished.Sub(r.started))
	}
	log.Info("analysis run finished",
		zap.String("status", string(report.Status)),
		zap.Int("diagrams", report.Diagrams),
		zap.Int64("duration_ms", report.DurationMS),
		zap.String("last_error", report.LastError))

	if finishErr != nil {
		log.Warn("could not record run outcome", zap.Error(finishErr))
		return report, errors.Join(runErr, finishErr)
	}
	return report, runErr
}

// analyze does the work between taking the lease and recording the outcome.
// It returns the number of persisted diagrams.
func (s *Service) analyze(ctx context.Context, r *run, obs Observer, log *zap.Logger) (int, bool, error) {
	p := r.project
	options := p.Options.WithDefaults()

	if err := s.Results.DeleteByProject(ctx, p.ID); err != nil {
		return 0, false, fmt.Errorf("clear results: %w", err)
	}

	obs.OnStage(StageFetchingSources)
	content, err := s.gather(ctx, p, log)
	if err != nil {
		return 0, false, err
	}

	obs.OnStage(StageExtractingContent)
	s.archive(ctx, r, projects.ArtifactSnapshot, "text/plain; charset=utf-8", content, log)

	obs.OnStage(StageAnalyzingArchitecture)
	body, err := s.Model.Stream(ctx, ai.AnalyzeRequest{
		Content:      content,
		Focus:        options.Focus,
		DiagramTypes: options.DiagramTypes,
		ProjectID:    string(p.ID),
	})
	if err != nil {
		return 0, false, err
	}

	dec := sse.NewDecoder(body)
	defer dec.Close()
	generating := false
	for dec.Next() {
		obs.OnDelta(dec.Delta())
		if !generating && domain.HasOpenFence(dec.Text()) {
			generating = true
			obs.OnStage(StageGeneratingDiagrams)
		}
	}
	if err := dec.Err(); err != nil {
		return 0, dec.Desynced(), fmt.Errorf("read model stream: %w", err)
	}
	if dec.Desynced() {
		log.Warn("model stream ended mid-frame, trailing bytes dropped")
	}

	text := dec.Text()
	s.archive(ctx, r, projects.ArtifactTranscript, "text/markdown; charset=utf-8", text, log)

	drafts := domain.Extract(text, options.DiagramTypes)
	createdAt := s.Clock.Now()
	for i, d := range drafts {
		res := &projects.Result{
			ID:          projects.ResultID(uuid.NewString()),
			ProjectID:   p.ID,
			RunID:       r.id,
			Position:    i,
			DiagramType: d.DiagramType,
			MermaidCode: d.Code,
			CreatedAt:   createdAt,
		}
		if d.Summary != "" {
			res.Summary = &projects.Summary{Text: d.Summary}
		}
		if err := s.Results.Insert(ctx, res); err != nil {
			return i, dec.Desynced(), fmt.Errorf("save result %d: %w", i, err)
		}
	}
	return len(drafts), dec.Desynced(), nil
}

// gather builds the snapshot text sent to the model. A repository that
// cannot be fetched is replaced by a placeholder line.
func (s *Service) gather(ctx context.Context, p *projects.Project, log *zap.Logger) (string, error) {
	var parts []string
	for _, src := range p.Sources {
		if src.Type != projects.SourceGitHub || src.URL == "" {
			continue
		}
		text, err := s.Snapshotter.Snapshot(ctx, src.URL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Warn("repository fetch failed", zap.String("url", src.URL), zap.Error(err))
			parts = append(parts, "Failed to fetch "+src.URL)
			continue
		}
		parts = append(parts, text)
	}
	for _, src := range p.Sources {
		if src.Type == projects.SourceUpload && src.Content != "" {
			parts = append(parts, fmt.Sprintf("--- File: %s ---\n%s", src.Name, src.Content))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Service) archive(ctx context.Context, r *run, name, contentType, body string, log *zap.Logger) {
	if s.Archive == nil {
		return
	}
	key := projects.ArchiveKey(r.project.ID, r.id, name)
	if _, err := s.Archive.PutText(ctx, key, contentType, body); err != nil {
		log.Warn("archive upload failed", zap.String("key", key), zap.Error(err))
	}
}
