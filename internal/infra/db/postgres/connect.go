package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Connect opens Postgres through lib/pq ("postgres") or pgx ("pgx").
func Connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "", "postgres":
		driver = "postgres"
	case "pgx":
	default:
		return nil, fmt.Errorf("unsupported postgres driver: %s", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
  id             TEXT PRIMARY KEY,
  name           TEXT NOT NULL,
  description    TEXT NOT NULL,
  status         TEXT NOT NULL,
  sources_json   JSONB NOT NULL,
  options_json   JSONB NOT NULL,
  version        BIGINT NOT NULL DEFAULT 0,
  run_id         TEXT NOT NULL DEFAULT '',
  run_started_at TIMESTAMPTZ NULL,
  last_error     TEXT NOT NULL,
  created_at     TIMESTAMPTZ NOT NULL,
  updated_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_created ON projects (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
  id           TEXT PRIMARY KEY,
  project_id   TEXT NOT NULL,
  run_id       TEXT NOT NULL,
  position     INTEGER NOT NULL,
  diagram_type TEXT NOT NULL,
  mermaid_code TEXT NOT NULL,
  summary_json JSONB NULL,
  created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_results_project ON analysis_results (project_id, created_at, position)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
