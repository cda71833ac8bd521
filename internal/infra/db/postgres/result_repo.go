package postgres

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

type ResultRepository struct{ db *sql.DB }

func NewResultRepository(db *sql.DB) *ResultRepository { return &ResultRepository{db: db} }

func (r *ResultRepository) Insert(ctx context.Context, res *domain.Result) error {
	const q = `
INSERT INTO analysis_results
(id, project_id, run_id, position, diagram_type, mermaid_code, summary_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	summary, err := encodeSummary(res.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q,
		string(res.ID), string(res.ProjectID), string(res.RunID), res.Position,
		res.DiagramType, res.MermaidCode, summary, res.CreatedAt,
	)
	return err
}

func (r *ResultRepository) DeleteByProject(ctx context.Context, id domain.ProjectID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE project_id=$1;`, string(id))
	return err
}

func (r *ResultRepository) ListByProject(ctx context.Context, id domain.ProjectID) ([]*domain.Result, error) {
	const q = `
SELECT id, project_id, run_id, position, diagram_type, mermaid_code, summary_json, created_at
FROM analysis_results
WHERE project_id=$1 ORDER BY created_at ASC, position ASC;`
	rows, err := r.db.QueryContext(ctx, q, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Result
	for rows.Next() {
		var (
			res           domain.Result
			rid, pid, run string
			summary       []byte
		)
		if err := rows.Scan(&rid, &pid, &run, &res.Position, &res.DiagramType, &res.MermaidCode, &summary, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.ID, res.ProjectID, res.RunID = domain.ResultID(rid), domain.ProjectID(pid), domain.RunID(run)
		if res.Summary, err = decodeSummary(summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (r *ResultRepository) CountByProject(ctx context.Context, id domain.ProjectID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_results WHERE project_id=$1;`, string(id)).Scan(&n)
	return n, err
}
