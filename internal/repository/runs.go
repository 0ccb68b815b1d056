package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const runsCollection = "dupcheck_runs"

type RunsRepository struct {
	mongoRepo *MongoRepository
}

func NewRunsRepository(mongoRepo *MongoRepository) *RunsRepository {
	return &RunsRepository{
		mongoRepo: mongoRepo,
	}
}

// UpsertRun stores a run report keyed by its run id
func (r *RunsRepository) UpsertRun(ctx context.Context, report *models.RunReport) error {
	report.CreatedAt = time.Now()

	filter := bson.M{"runId": report.RunID}
	err := r.mongoRepo.ReplaceOne(ctx, runsCollection, filter, report, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	return nil
}

// GetRunByID returns the stored run, or nil when there is none
func (r *RunsRepository) GetRunByID(ctx context.Context, runID string) (*models.RunReport, error) {
	filter := bson.M{"runId": runID}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var report models.RunReport
	err := r.mongoRepo.FindOne(ctx, runsCollection, filter, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}

	m, err := plagiarism.FromRows(report.Matrix)
	if err != nil {
		return nil, fmt.Errorf("run %s: stored matrix: %w", runID, err)
	}
	report.Matrix = m.Rows()

	return &report, nil
}

