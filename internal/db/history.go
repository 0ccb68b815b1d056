package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
)

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when a run id has no stored history
var ErrRunNotFound = errors.New("run not found in history")

// RunSummary is one row of the run history
type RunSummary struct {
	RunID      string
	Directory  string
	FileCount  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// History stores completed runs in SQLite. Only the upper triangle of each
// matrix is kept; the rest follows from symmetry and the zero diagonal.
type History struct {
	db *sql.DB
}

func OpenHistory(path string) (*History, error) {
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &History{db: conn}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// PersistRun stores a run, replacing any earlier run with the same id
func (h *History) PersistRun(ctx context.Context, report *models.RunReport) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"runs", "run_files", "pair_scores"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, report.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(run_id, directory, file_count, started_at, finished_at) VALUES(?,?,?,?,?)`,
		report.RunID,
		report.Directory,
		len(report.Files),
		report.StartedAt.UTC().Format(timeLayout),
		report.FinishedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	fileStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_files(run_id, file_id, path) VALUES(?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer fileStmt.Close()
	for _, f := range report.Files {
		if _, err := fileStmt.ExecContext(ctx, report.RunID, f.ID, f.Path); err != nil {
			return fmt.Errorf("insert file %d: %w", f.ID, err)
		}
	}

	scoreStmt, err := tx.PrepareContext(ctx, `INSERT INTO pair_scores(run_id, file_a, file_b, score) VALUES(?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare score insert: %w", err)
	}
	defer scoreStmt.Close()
	for i, row := range report.Matrix {
		for j := i + 1; j < len(row); j++ {
			if _, err := scoreStmt.ExecContext(ctx, report.RunID, i, j, row[j]); err != nil {
				return fmt.Errorf("insert score (%d,%d): %w", i, j, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (h *History) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, directory, file_count, started_at, finished_at FROM runs ORDER BY finished_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s                RunSummary
			started, finished string
		)
		if err := rows.Scan(&s.RunID, &s.Directory, &s.FileCount, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt, _ = time.Parse(timeLayout, started)
		s.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun rebuilds a stored run including its full matrix
func (h *History) GetRun(ctx context.Context, runID string) (*models.RunReport, error) {
	var (
		report            models.RunReport
		fileCount         int
		started, finished string
	)
	err := h.db.QueryRowContext(ctx,
		`SELECT run_id, directory, file_count, started_at, finished_at FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&report.RunID, &report.Directory, &fileCount, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	report.Status = string(models.StepCompleted)
	report.StartedAt, _ = time.Parse(timeLayout, started)
	report.FinishedAt, _ = time.Parse(timeLayout, finished)

	fileRows, err := h.db.QueryContext(ctx, `SELECT file_id, path FROM run_files WHERE run_id = ? ORDER BY file_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer fileRows.Close()
	for fileRows.Next() {
		var f models.FileRecord
		if err := fileRows.Scan(&f.ID, &f.Path); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		report.Files = append(report.Files, f)
	}
	if err := fileRows.Err(); err != nil {
		return nil, err
	}

	report.Matrix = make([][]float64, fileCount)
	for i := range report.Matrix {
		report.Matrix[i] = make([]float64, fileCount)
	}
	scoreRows, err := h.db.QueryContext(ctx, `SELECT file_a, file_b, score FROM pair_scores WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer scoreRows.Close()
	for scoreRows.Next() {
		var (
			a, b  int
			score float64
		)
		if err := scoreRows.Scan(&a, &b, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if a >= fileCount || b >= fileCount {
			return nil, fmt.Errorf("score (%d,%d) outside %d files", a, b, fileCount)
		}
		report.Matrix[a][b] = score
		report.Matrix[b][a] = score
	}
	if err := scoreRows.Err(); err != nil {
		return nil, err
	}

	m, err := plagiarism.FromRows(report.Matrix)
	if err != nil {
		return nil, fmt.Errorf("run %s: stored matrix: %w", runID, err)
	}
	report.Matrix = m.Rows()
	return &report, nil
}
