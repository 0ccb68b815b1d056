package emit

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
)

// Result is a finished comparison run, ready to persist
type Result struct {
	RunID      string
	Directory  string
	Files      []models.FileRecord
	Matrix     *plagiarism.ScoreMatrix
	StartedAt  time.Time
	FinishedAt time.Time
}

// Report converts the result to its stored document form
func (r *Result) Report() *models.RunReport {
	return &models.RunReport{
		RunID:      r.RunID,
		Directory:  r.Directory,
		Status:     string(models.StepCompleted),
		Files:      r.Files,
		Matrix:     r.Matrix.Rows(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// Emitter persists the index and matrix of a run
type Emitter interface {
	Emit(ctx context.Context, result *Result) error
}

// Multi emits to each emitter in order and stops at the first failure
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, result *Result) error {
	for _, e := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Emit(ctx, result); err != nil {
			return fmt.Errorf("emit %T: %w", e, err)
		}
	}
	return nil
}
