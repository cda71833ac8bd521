package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id             VARCHAR(64)  NOT NULL PRIMARY KEY,
  name           VARCHAR(255) NOT NULL,
  description    TEXT         NOT NULL,
  status         VARCHAR(16)  NOT NULL,
  sources_json   LONGTEXT     NOT NULL,
  options_json   TEXT         NOT NULL,
  version        BIGINT       NOT NULL DEFAULT 0,
  run_id         VARCHAR(64)  NOT NULL DEFAULT '',
  run_started_at DATETIME(6)  NULL,
  last_error     TEXT         NOT NULL,
  created_at     DATETIME(6)  NOT NULL,
  updated_at     DATETIME(6)  NOT NULL,
  KEY idx_projects_created (created_at)
)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
  id           VARCHAR(64) NOT NULL PRIMARY KEY,
  project_id   VARCHAR(64) NOT NULL,
  run_id       VARCHAR(64) NOT NULL,
  position     INT         NOT NULL,
  diagram_type VARCHAR(128) NOT NULL,
  mermaid_code LONGTEXT    NOT NULL,
  summary_json TEXT        NULL,
  created_at   DATETIME(6) NOT NULL,
  KEY idx_results_project (project_id, created_at, position)
)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
