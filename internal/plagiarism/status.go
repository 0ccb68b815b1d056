package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	redisInfra "github.com/RishiKendai/dupcheck/internal/infra/redis"
	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrRunNotFound is returned for a run id without a recorded step
var ErrRunNotFound = errors.New("run not found")

// StatusStore records the current step of each run
type StatusStore interface {
	UpdateStatus(ctx context.Context, runID string, step models.Step) error
	GetStatus(ctx context.Context, runID string) (models.Step, error)
}

func statusKey(runID string) string {
	return "dupcheck_run_status:" + runID
}

// RedisStatusStore keeps run steps in Redis with a TTL
type RedisStatusStore struct {
	client *redisInfra.Client
	ttl    time.Duration
}

func NewRedisStatusStore(client *redisInfra.Client, ttl time.Duration) *RedisStatusStore {
	return &RedisStatusStore{client: client, ttl: ttl}
}

func (s *RedisStatusStore) UpdateStatus(ctx context.Context, runID string, step models.Step) error {
	if !step.Valid() {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := statusKey(runID)

	err := s.client.Set(ctx, rkey, string(step), s.ttl).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("runId", runID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("runId", runID).
		Msg("Status updated in Redis")

	return nil
}

func (s *RedisStatusStore) GetStatus(ctx context.Context, runID string) (models.Step, error) {
	val, err := s.client.Get(ctx, statusKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}

// MemoryStatusStore keeps run steps in process memory
type MemoryStatusStore struct {
	mu    sync.RWMutex
	steps map[string]models.Step
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{steps: make(map[string]models.Step)}
}

func (s *MemoryStatusStore) UpdateStatus(_ context.Context, runID string, step models.Step) error {
	if !step.Valid() {
		return fmt.Errorf("unknown step: %s", step)
	}
	s.mu.Lock()
	s.steps[runID] = step
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatusStore) GetStatus(_ context.Context, runID string) (models.Step, error) {
	s.mu.RLock()
	step, ok := s.steps[runID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrRunNotFound
	}
	return step, nil
}
