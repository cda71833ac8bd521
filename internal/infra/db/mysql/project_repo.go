package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, name, description, status, sources_json, options_json,
       version, run_id, run_started_at, last_error, created_at, updated_at`

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	const q = `
INSERT INTO projects
(id, name, description, status, sources_json, options_json,
 version, run_id, run_started_at, last_error, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?);
`
	sources, err := domain.MarshalSources(p.Sources)
	if err != nil {
		return err
	}
	options, err := encodeOptions(p.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Description, p.Status, sources, options,
		p.Version, p.RunID, nullTime(p.RunStartedAt), p.LastError, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p                domain.Project
		sources, options string
		started          sql.NullTime
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Status, &sources, &options,
		&p.Version, &p.RunID, &started, &p.LastError, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if p.Sources, err = domain.UnmarshalSources(sources); err != nil {
		return nil, err
	}
	if p.Options, err = decodeOptions(options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if started.Valid {
		p.RunStartedAt = started.Time
	}
	return &p, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE id=? LIMIT 1;`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// List newest first
func (r *ProjectRepository) List(ctx context.Context, limit int) ([]*domain.Project, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC, id ASC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) Delete(ctx context.Context, id domain.ProjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id=?;`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) AcquireRun(ctx context.Context, id domain.ProjectID, expectedVersion int64, runID domain.RunID, at time.Time) error {
	const q = `
UPDATE projects
SET status=?, run_id=?, run_started_at=?, last_error='', version=version+1, updated_at=?
WHERE id=? AND version=?;
`
	res, err := r.db.ExecContext(ctx, q, domain.StatusProcessing, runID, at, at, id, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// tell a missing row apart from a lost race
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrRunInProgress
}

func (r *ProjectRepository) FinishRun(ctx context.Context, id domain.ProjectID, runID domain.RunID, status domain.Status, lastError string, at time.Time) error {
	const q = `
UPDATE projects
SET status=?, last_error=?, version=version+1, updated_at=?
WHERE id=? AND run_id=? AND status=?;
`
	res, err := r.db.ExecContext(ctx, q, status, lastError, at, id, runID, domain.StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}
