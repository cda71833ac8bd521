// Package memory keeps projects and results in process memory. It backs
// tests and single-node runs without a database (db.driver: memory).
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

type ProjectRepository struct {
	mu   sync.RWMutex
	byID map[domain.ProjectID]domain.Project
}

func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{byID: make(map[domain.ProjectID]domain.Project)}
}

func (r *ProjectRepository) Create(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clone(*p)
	return nil
}

func (r *ProjectRepository) Get(_ context.Context, id domain.ProjectID) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clone(p)
	return &out, nil
}

// List returns the newest projects first.
func (r *ProjectRepository) List(_ context.Context, limit int) ([]*domain.Project, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	out := make([]*domain.Project, 0, len(r.byID))
	for _, p := range r.byID {
		c := clone(p)
		out = append(out, &c)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.Project) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProjectRepository) Delete(_ context.Context, id domain.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *ProjectRepository) AcquireRun(_ context.Context, id domain.ProjectID, expectedVersion int64, runID domain.RunID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Version != expectedVersion {
		return domain.ErrRunInProgress
	}
	p.Status = domain.StatusProcessing
	p.RunID = runID
	p.RunStartedAt = at
	p.LastError = ""
	p.Version++
	p.UpdatedAt = at
	r.byID[id] = p
	return nil
}

func (r *ProjectRepository) FinishRun(_ context.Context, id domain.ProjectID, runID domain.RunID, status domain.Status, lastError string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrLeaseLost
	}
	if p.RunID != runID || p.Status != domain.StatusProcessing {
		return domain.ErrLeaseLost
	}
	p.Status = status
	p.LastError = lastError
	p.Version++
	p.UpdatedAt = at
	r.byID[id] = p
	return nil
}

func clone(p domain.Project) domain.Project {
	p.Sources = slices.Clone(p.Sources)
	p.Options.DiagramTypes = slices.Clone(p.Options.DiagramTypes)
	return p
}
