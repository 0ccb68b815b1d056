package emit

import (
	"context"
	"sync"

	"github.com/RishiKendai/dupcheck/internal/db"
	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/repository"
)

// RunStore is anything that keeps whole run reports
type RunStore interface {
	UpsertRun(ctx context.Context, report *models.RunReport) error
}

// StoreEmitter forwards results to a RunStore such as the MongoDB runs
// repository
type StoreEmitter struct {
	store RunStore
}

func NewStoreEmitter(store RunStore) *StoreEmitter {
	return &StoreEmitter{store: store}
}

func (e *StoreEmitter) Emit(ctx context.Context, result *Result) error {
	return e.store.UpsertRun(ctx, result.Report())
}

var _ RunStore = (*repository.RunsRepository)(nil)

// HistoryEmitter appends results to the SQLite run history
type HistoryEmitter struct {
	history *db.History
}

func NewHistoryEmitter(history *db.History) *HistoryEmitter {
	return &HistoryEmitter{history: history}
}

func (e *HistoryEmitter) Emit(ctx context.Context, result *Result) error {
	return e.history.PersistRun(ctx, result.Report())
}

// MemoryStore keeps the most recent run reports in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	order   []string
	reports map[string]*models.RunReport
}

// NewMemoryStore keeps at most limit reports, evicting the oldest first
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 100
	}
	return &MemoryStore{limit: limit, reports: make(map[string]*models.RunReport)}
}

func (s *MemoryStore) UpsertRun(_ context.Context, report *models.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.RunID]; !exists {
		s.order = append(s.order, report.RunID)
	}
	s.reports[report.RunID] = report

	for len(s.order) > s.limit {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// GetRunByID returns the stored run, or nil when there is none
func (s *MemoryStore) GetRunByID(_ context.Context, runID string) (*models.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports[runID], nil
}
