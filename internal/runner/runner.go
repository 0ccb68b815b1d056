package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/dupcheck/internal/corpus"
	"github.com/RishiKendai/dupcheck/internal/emit"
	"github.com/RishiKendai/dupcheck/internal/metrics"
	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Runner executes one comparison run: enumerate, normalize, score, emit.
// A run either emits a complete matrix or nothing.
type Runner struct {
	comparator *plagiarism.Comparator
	emitter    emit.Emitter
	status     plagiarism.StatusStore
}

// New creates a runner. status may be nil.
func New(comparator *plagiarism.Comparator, emitter emit.Emitter, status plagiarism.StatusStore) *Runner {
	return &Runner{
		comparator: comparator,
		emitter:    emitter,
		status:     status,
	}
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.New().String()
}

// Run compares every file of dir and hands the result to the emitter.
// An empty runID gets a generated one.
func (r *Runner) Run(ctx context.Context, runID, dir string) (*emit.Result, error) {
	if runID == "" {
		runID = NewRunID()
	}
	start := time.Now()

	result, err := r.run(ctx, runID, dir, start)
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RunCount.WithLabelValues("failed").Inc()
		r.updateStatus(context.WithoutCancel(ctx), runID, models.StepFailed)
		log.Error().Err(err).Str("runId", runID).Str("dir", dir).Msg("Run failed")
		return nil, err
	}

	metrics.RunCount.WithLabelValues("completed").Inc()
	r.updateStatus(ctx, runID, models.StepCompleted)
	log.Info().
		Str("runId", runID).
		Int("files", len(result.Files)).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Done.")
	return result, nil
}

func (r *Runner) run(ctx context.Context, runID, dir string, start time.Time) (*emit.Result, error) {
	r.updateStatus(ctx, runID, models.StepStarted)

	log.Info().Str("runId", runID).Str("dir", dir).Msg("Fetching files...")
	r.updateStatus(ctx, runID, models.StepEnumerating)
	c, err := corpus.Enumerate(dir)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("files", len(c.Files)).
		Int("skipped", len(c.Skipped)).
		Str("size", humanize.Bytes(uint64(max(c.TotalBytes, 0)))).
		Msgf("%d files fetched.", len(c.Files))

	log.Info().Msg("Duplicate checking...")
	r.updateStatus(ctx, runID, models.StepNormalizing)
	texts, err := r.comparator.NormalizeAll(ctx, c.Files)
	if err != nil {
		return nil, err
	}

	r.updateStatus(ctx, runID, models.StepScoring)
	matrix, err := r.comparator.ScoreAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("score pairs: %w", err)
	}

	result := &emit.Result{
		RunID:      runID,
		Directory:  dir,
		Files:      c.Files,
		Matrix:     matrix,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}

	if r.emitter != nil {
		log.Info().Msg("Generating outputs...")
		r.updateStatus(ctx, runID, models.StepEmitting)
		if err := r.emitter.Emit(ctx, result); err != nil {
			return nil, fmt.Errorf("emit results: %w", err)
		}
	}

	return result, nil
}

func (r *Runner) updateStatus(ctx context.Context, runID string, step models.Step) {
	if r.status == nil {
		return
	}
	if err := r.status.UpdateStatus(ctx, runID, step); err != nil {
		log.Warn().Err(err).Str("runId", runID).Str("step", string(step)).Msg("Failed to update run status")
	}
}
