package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/RishiKendai/dupcheck/internal/config"
	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"github.com/RishiKendai/dupcheck/internal/runner"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RunLookup finds stored run reports
type RunLookup interface {
	GetRunByID(ctx context.Context, runID string) (*models.RunReport, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	cfg            *config.Config
	runner         *runner.Runner
	status         plagiarism.StatusStore
	runs           RunLookup
	computeSem     chan struct{} // Semaphore for bounded concurrency
	computeTimeout time.Duration
}

// NewHandler creates a new handler
func NewHandler(
	cfg *config.Config,
	r *runner.Runner,
	status plagiarism.StatusStore,
	runs RunLookup,
) *Handler {
	// Create semaphore for bounded concurrency
	sem := make(chan struct{}, cfg.MaxConcurrentRuns)

	return &Handler{
		cfg:            cfg,
		runner:         r,
		status:         status,
		runs:           runs,
		computeSem:     sem,
		computeTimeout: cfg.ComputationTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) Compute(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	// Input validation
	if err := validateComputePayload(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_DIRECTORY",
		})
		return
	}

	ctx := c.Request.Context()
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = runner.NewRunID()
	} else if _, err := h.status.GetStatus(ctx, runID); err == nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: "Run id already in use",
			Code:  "RUN_EXISTS",
		})
		return
	}

	// Acquire semaphore (bounded concurrency)
	select {
	case h.computeSem <- struct{}{}:
		// Acquired semaphore
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	// Update status: Initiated
	if err := h.status.UpdateStatus(ctx, runID, models.StepInitiated); err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("Failed to update initiated status")
	}

	// Return 202 Accepted immediately
	c.JSON(http.StatusAccepted, models.ComputeResponse{
		Step:  models.StepInitiated,
		RunID: runID,
	})

	// Process asynchronously
	go h.processRun(runID, req.Directory)
}

// processRun runs a comparison in the background
func (h *Handler) processRun(runID, dir string) {
	defer func() { <-h.computeSem }() // Release semaphore

	ctx, cancel := context.WithTimeout(context.Background(), h.computeTimeout)
	defer cancel()

	if _, err := h.runner.Run(ctx, runID, dir); err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Computation failed")
		return
	}

	log.Debug().Str("runId", runID).Msg("Computation completed successfully")
}

func (h *Handler) Status(c *gin.Context) {
	runID := c.Param("id")
	step, err := h.status.GetStatus(c.Request.Context(), runID)
	if errors.Is(err, plagiarism.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Run not found",
			Code:  "RUN_NOT_FOUND",
		})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to read run status")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to read run status",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Step: step, RunID: runID})
}

func (h *Handler) Result(c *gin.Context) {
	runID := c.Param("id")
	report, err := h.runs.GetRunByID(c.Request.Context(), runID)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to load run")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load run",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Run not found",
			Code:  "RUN_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func validateComputePayload(req models.ComputeRequest) error {
	if strings.TrimSpace(req.Directory) == "" {
		return fmt.Errorf("directory is required")
	}

	info, err := os.Stat(req.Directory)
	if err != nil {
		return fmt.Errorf("directory %s cannot be opened", req.Directory)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", req.Directory)
	}

	return nil
}
