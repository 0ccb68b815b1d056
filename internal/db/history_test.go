package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/RishiKendai/dupcheck/internal/models"
)

func sampleReport(runID string, finished time.Time) *models.RunReport {
	return &models.RunReport{
		RunID:     runID,
		Directory: "corpus",
		Files: []models.FileRecord{
			{ID: 0, Path: "corpus/a"},
			{ID: 1, Path: "corpus/b"},
			{ID: 2, Path: "corpus/c"},
		},
		Matrix: [][]float64{
			{0, 0.5, 0.25},
			{0.5, 0, 1},
			{0.25, 1, 0},
		},
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
	}
}

func TestPersistAndGetRun(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	in := sampleReport("run-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err := h.PersistRun(ctx, in); err != nil {
		t.Fatalf("persist run: %v", err)
	}
	// persisting again replaces instead of duplicating
	if err := h.PersistRun(ctx, in); err != nil {
		t.Fatalf("persist run twice: %v", err)
	}

	got, err := h.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Directory != "corpus" || len(got.Files) != 3 {
		t.Fatalf("unexpected run: %+v", got)
	}
	for i := range in.Matrix {
		for j := range in.Matrix[i] {
			if got.Matrix[i][j] != in.Matrix[i][j] {
				t.Fatalf("cell (%d,%d) = %v, want %v", i, j, got.Matrix[i][j], in.Matrix[i][j])
			}
		}
	}
	if !got.FinishedAt.Equal(in.FinishedAt) {
		t.Fatalf("finished at = %v, want %v", got.FinishedAt, in.FinishedAt)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := h.PersistRun(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("persist %s: %v", id, err)
		}
	}

	runs, err := h.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" || runs[1].RunID != "mid" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].FileCount != 3 {
		t.Fatalf("file count = %d", runs[0].FileCount)
	}
}

func TestGetRunMissing(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()

	if _, err := h.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestGetRunRejectsCorruptMatrix(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	if err := h.PersistRun(ctx, sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("persist run: %v", err)
	}
	// a diagonal score can only come from a damaged database
	if _, err := h.db.ExecContext(ctx,
		`INSERT INTO pair_scores (run_id, file_a, file_b, score) VALUES ('run-1', 1, 1, 0.5)`,
	); err != nil {
		t.Fatalf("insert score: %v", err)
	}

	if _, err := h.GetRun(ctx, "run-1"); err == nil {
		t.Fatal("expected error for a non-zero diagonal")
	}
}
