// Package sqlite opens an embedded database for single-node deployments.
// SQLite speaks the same `?` placeholder dialect as MySQL, so the mysql
// repositories are reused on top of it.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
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
  sources_json   TEXT NOT NULL,
  options_json   TEXT NOT NULL,
  version        INTEGER NOT NULL DEFAULT 0,
  run_id         TEXT NOT NULL DEFAULT '',
  run_started_at DATETIME NULL,
  last_error     TEXT NOT NULL,
  created_at     DATETIME NOT NULL,
  updated_at     DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_created ON projects (created_at)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
  id           TEXT PRIMARY KEY,
  project_id   TEXT NOT NULL,
  run_id       TEXT NOT NULL,
  position     INTEGER NOT NULL,
  diagram_type TEXT NOT NULL,
  mermaid_code TEXT NOT NULL,
  summary_json TEXT NULL,
  created_at   DATETIME NOT NULL
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
