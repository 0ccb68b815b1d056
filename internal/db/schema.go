package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    directory TEXT NOT NULL,
    file_count INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_files (
    run_id TEXT NOT NULL,
    file_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (run_id, file_id)
);

CREATE TABLE IF NOT EXISTS pair_scores (
    run_id TEXT NOT NULL,
    file_a INTEGER NOT NULL,
    file_b INTEGER NOT NULL,
    score REAL NOT NULL,
    PRIMARY KEY (run_id, file_a, file_b)
);

CREATE INDEX IF NOT EXISTS idx_pair_scores_score ON pair_scores(run_id, score DESC);
`

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
