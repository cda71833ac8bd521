package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/autoarchitect/internal/application"
	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

const (
	maxNameLen    = 200
	maxSources    = 20
	defaultListed = 50
)

// Service implements project CRUD use-cases. Runs live in application/analysis.
type Service struct {
	Repo    domain.Repository
	Results domain.ResultRepository
	Clock   application.Clock
}

// Command untuk create project
type CreateProjectCommand struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Sources     []domain.Source        `json:"sources"`
	Options     domain.AnalysisOptions `json:"analysis_options"`
	// Start puts the project straight into processing so the first
	// observation picks it up. Defaults to true.
	Start *bool `json:"start,omitempty"`
}

func (s *Service) Create(ctx context.Context, cmd CreateProjectCommand) (*domain.Project, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidProject)
	}
	if len(name) > maxNameLen {
		return nil, fmt.Errorf("%w: name longer than %d characters", domain.ErrInvalidProject, maxNameLen)
	}
	if len(cmd.Sources) > maxSources {
		return nil, fmt.Errorf("%w: at most %d sources", domain.ErrInvalidProject, maxSources)
	}
	for i, src := range cmd.Sources {
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("%w: source %d: %v", domain.ErrInvalidProject, i, err)
		}
	}

	if err := cmd.Options.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidProject, err)
	}

	status := domain.StatusProcessing
	if cmd.Start != nil && !*cmd.Start {
		status = domain.StatusDraft
	}
	now := s.Clock.Now()
	p := &domain.Project{
		ID:          domain.ProjectID(uuid.NewString()),
		Name:        name,
		Description: strings.TrimSpace(cmd.Description),
		Sources:     cmd.Sources,
		Options:     cmd.Options.WithDefaults(),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Sources == nil {
		p.Sources = []domain.Source{}
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*domain.Project, error) {
	if limit <= 0 {
		limit = defaultListed
	}
	return s.Repo.List(ctx, limit)
}

// Delete removes the project and its results.
func (s *Service) Delete(ctx context.Context, id domain.ProjectID) error {
	if _, err := s.Repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.Results.DeleteByProject(ctx, id); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return s.Repo.Delete(ctx, id)
}

// ListResults lists the diagrams of the project's latest run. Rows left by a
// run that lost the lease are not shown.
func (s *Service) ListResults(ctx context.Context, id domain.ProjectID) ([]*domain.Result, error) {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.Results.ListByProject(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Result, 0, len(rows))
	for _, r := range rows {
		// project yang belum pernah dijalankan tidak punya run id
		if p.RunID == "" || r.RunID == p.RunID {
			out = append(out, r)
		}
	}
	return out, nil
}
