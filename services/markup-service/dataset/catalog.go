package dataset

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"go.uber.org/zap"
)

// Snapshot is one immutable load of a dataset.
type Snapshot[R any] struct {
	Version  string    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
	records  []R
}

func NewSnapshot[R any](records []R) *Snapshot[R] {
	return &Snapshot[R]{
		Version:  uuid.NewString(),
		LoadedAt: time.Now().UTC(),
		records:  records,
	}
}

// Len returns the record count. A nil snapshot is empty.
func (s *Snapshot[R]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// At returns the record at index i, or false when i is out of range.
func (s *Snapshot[R]) At(i int) (R, bool) {
	var zero R
	if s == nil || i < 0 || i >= len(s.records) {
		return zero, false
	}
	return s.records[i], true
}

// DatasetInfo is the admin view of a loaded snapshot.
type DatasetInfo struct {
	Task     models.TaskType `json:"task"`
	Source   string          `json:"source"`
	Records  int             `json:"records"`
	Version  string          `json:"version"`
	LoadedAt time.Time       `json:"loaded_at"`
}

// Catalog holds the current snapshot of each dataset. Snapshots are swapped
// atomically, so readers never observe a partially loaded dataset.
type Catalog struct {
	loader   Loader
	logger   *zap.Logger
	search   atomic.Pointer[Snapshot[models.SearchRecord]]
	matching atomic.Pointer[Snapshot[models.MatchingRecord]]
}

func NewCatalog(loader Loader, logger *zap.Logger) *Catalog {
	return &Catalog{loader: loader, logger: logger}
}

// Load loads every dataset. Used at startup, where any failure is fatal.
func (c *Catalog) Load(ctx context.Context) error {
	for _, task := range models.AllTasks() {
		if _, err := c.Reload(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// Reload replaces the snapshot for task. On failure the previous snapshot is kept.
func (c *Catalog) Reload(ctx context.Context, task models.TaskType) (DatasetInfo, error) {
	switch task {
	case models.TaskSearch:
		records, err := c.loader.LoadSearch(ctx)
		if err != nil {
			return DatasetInfo{}, fmt.Errorf("failed to load %s dataset from %s: %w", task, c.loader.Describe(task), err)
		}
		c.search.Store(NewSnapshot(records))
	case models.TaskMatching:
		records, err := c.loader.LoadMatching(ctx)
		if err != nil {
			return DatasetInfo{}, fmt.Errorf("failed to load %s dataset from %s: %w", task, c.loader.Describe(task), err)
		}
		c.matching.Store(NewSnapshot(records))
	default:
		return DatasetInfo{}, fmt.Errorf("unknown task type %q", task)
	}

	info := c.Info(task)
	c.logger.Info("Dataset loaded",
		zap.String("task", string(task)),
		zap.String("source", info.Source),
		zap.Int("records", info.Records),
		zap.String("version", info.Version),
	)
	return info, nil
}

// Search returns the current search snapshot.
func (c *Catalog) Search() *Snapshot[models.SearchRecord] {
	return c.search.Load()
}

// Matching returns the current matching snapshot.
func (c *Catalog) Matching() *Snapshot[models.MatchingRecord] {
	return c.matching.Load()
}

// Info describes the current snapshot for task.
func (c *Catalog) Info(task models.TaskType) DatasetInfo {
	info := DatasetInfo{Task: task, Source: c.loader.Describe(task)}
	switch task {
	case models.TaskSearch:
		if s := c.search.Load(); s != nil {
			info.Records, info.Version, info.LoadedAt = s.Len(), s.Version, s.LoadedAt
		}
	case models.TaskMatching:
		if s := c.matching.Load(); s != nil {
			info.Records, info.Version, info.LoadedAt = s.Len(), s.Version, s.LoadedAt
		}
	}
	return info
}
