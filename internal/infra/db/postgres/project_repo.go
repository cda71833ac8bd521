package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

type ProjectRepository struct{ db *sql.DB }

func NewProjectRepository(db *sql.DB) *ProjectRepository { return &ProjectRepository{db: db} }

const projectColumns = `id, name, description, status, sources_json, options_json,
       version, run_id, run_started_at, last_error, created_at, updated_at`

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	const q = `
INSERT INTO projects
(id, name, description, status, sources_json, options_json,
 version, run_id, run_started_at, last_error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`
	sources, err := domain.MarshalSources(p.Sources)
	if err != nil {
		return err
	}
	options, err := encodeOptions(p.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q,
		string(p.ID), p.Name, p.Description, string(p.Status), sources, options,
		p.Version, string(p.RunID), nullTime(p.RunStartedAt), p.LastError, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p                domain.Project
		id, status, run  string
		sources, options []byte
		started          sql.NullTime
	)
	if err := row.Scan(
		&id, &p.Name, &p.Description, &status, &sources, &options,
		&p.Version, &run, &started, &p.LastError, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.ID, p.Status, p.RunID = domain.ProjectID(id), domain.Status(status), domain.RunID(run)
	var err error
	if p.Sources, err = domain.UnmarshalSources(string(sources)); err != nil {
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
	q := `SELECT ` + projectColumns + ` FROM projects WHERE id=$1 LIMIT 1;`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func (r *ProjectRepository) List(ctx context.Context, limit int) ([]*domain.Project, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC, id ASC LIMIT $1;`
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1;`, string(id))
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
SET status=$1, run_id=$2, run_started_at=$3, last_error='', version=version+1, updated_at=$3
WHERE id=$4 AND version=$5;`
	res, err := r.db.ExecContext(ctx, q, string(domain.StatusProcessing), string(runID), at, string(id), expectedVersion)
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
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrRunInProgress
}

func (r *ProjectRepository) FinishRun(ctx context.Context, id domain.ProjectID, runID domain.RunID, status domain.Status, lastError string, at time.Time) error {
	const q = `
UPDATE projects
SET status=$1, last_error=$2, version=version+1, updated_at=$3
WHERE id=$4 AND run_id=$5 AND status=$6;`
	res, err := r.db.ExecContext(ctx, q, string(status), lastError, at, string(id), string(runID), string(domain.StatusProcessing))
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
