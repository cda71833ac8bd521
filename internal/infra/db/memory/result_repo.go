package memory

import (
	"context"
	"slices"
	"sync"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

type ResultRepository struct {
	mu        sync.RWMutex
	byProject map[domain.ProjectID][]domain.Result
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{byProject: make(map[domain.ProjectID][]domain.Result)}
}

func (r *ResultRepository) Insert(_ context.Context, res *domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *res
	if res.Summary != nil {
		s := *res.Summary
		c.Summary = &s
	}
	r.byProject[res.ProjectID] = append(r.byProject[res.ProjectID], c)
	return nil
}

func (r *ResultRepository) DeleteByProject(_ context.Context, id domain.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byProject, id)
	return nil
}

// ListByProject orders results by run start then position.
func (r *ResultRepository) ListByProject(_ context.Context, id domain.ProjectID) ([]*domain.Result, error) {
	r.mu.RLock()
	rows := slices.Clone(r.byProject[id])
	r.mu.RUnlock()

	slices.SortStableFunc(rows, func(a, b domain.Result) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return a.Position - b.Position
	})
	out := make([]*domain.Result, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (r *ResultRepository) CountByProject(_ context.Context, id domain.ProjectID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byProject[id]), nil
}
