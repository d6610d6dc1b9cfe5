package dataset_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"go.uber.org/zap"
)

type fakeLoader struct {
	searchFn   func(ctx context.Context) ([]models.SearchRecord, error)
	matchingFn func(ctx context.Context) ([]models.MatchingRecord, error)
}

func (f *fakeLoader) LoadSearch(ctx context.Context) ([]models.SearchRecord, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx)
	}
	return nil, nil
}

func (f *fakeLoader) LoadMatching(ctx context.Context) ([]models.MatchingRecord, error) {
	if f.matchingFn != nil {
		return f.matchingFn(ctx)
	}
	return nil, nil
}

func (f *fakeLoader) Describe(task models.TaskType) string {
	return "fake://" + string(task)
}

func searchRecords(queries ...string) []models.SearchRecord {
	out := make([]models.SearchRecord, 0, len(queries))
	for _, q := range queries {
		out = append(out, models.SearchRecord{Query: q})
	}
	return out
}

func TestSnapshot_NilIsEmpty(t *testing.T) {
	var s *dataset.Snapshot[models.SearchRecord]
	assert.Equal(t, 0, s.Len())
	_, ok := s.At(0)
	assert.False(t, ok)
}

func TestSnapshot_AtBounds(t *testing.T) {
	s := dataset.NewSnapshot(searchRecords("a", "b"))

	r, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, "b", r.Query)

	_, ok = s.At(2)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)
	assert.NotEmpty(t, s.Version)
}

func TestCatalog_Load(t *testing.T) {
	loader := &fakeLoader{
		searchFn: func(ctx context.Context) ([]models.SearchRecord, error) {
			return searchRecords("a", "b", "c"), nil
		},
		matchingFn: func(ctx context.Context) ([]models.MatchingRecord, error) {
			return []models.MatchingRecord{{}}, nil
		},
	}
	c := dataset.NewCatalog(loader, zap.NewNop())

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 3, c.Search().Len())
	assert.Equal(t, 1, c.Matching().Len())

	info := c.Info(models.TaskSearch)
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, "fake://search", info.Source)
	assert.Equal(t, c.Search().Version, info.Version)
}

func TestCatalog_LoadFailure(t *testing.T) {
	loader := &fakeLoader{
		searchFn: func(ctx context.Context) ([]models.SearchRecord, error) {
			return nil, errors.New("no such file")
		},
	}
	c := dataset.NewCatalog(loader, zap.NewNop())

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake://search")
	assert.Nil(t, c.Search())
}

func TestCatalog_ReloadKeepsSnapshotOnFailure(t *testing.T) {
	fail := false
	loader := &fakeLoader{
		searchFn: func(ctx context.Context) ([]models.SearchRecord, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return searchRecords("a"), nil
		},
	}
	c := dataset.NewCatalog(loader, zap.NewNop())
	_, err := c.Reload(context.Background(), models.TaskSearch)
	require.NoError(t, err)
	before := c.Search()

	fail = true
	_, err = c.Reload(context.Background(), models.TaskSearch)
	require.Error(t, err)
	assert.Same(t, before, c.Search())
}

func TestCatalog_ReloadSwapsVersion(t *testing.T) {
	n := 1
	loader := &fakeLoader{
		searchFn: func(ctx context.Context) ([]models.SearchRecord, error) {
			out := make([]models.SearchRecord, n)
			return out, nil
		},
	}
	c := dataset.NewCatalog(loader, zap.NewNop())

	first, err := c.Reload(context.Background(), models.TaskSearch)
	require.NoError(t, err)
	n = 4
	second, err := c.Reload(context.Background(), models.TaskSearch)
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
	assert.Equal(t, 4, second.Records)
}

func TestCatalog_ReloadUnknownTask(t *testing.T) {
	c := dataset.NewCatalog(&fakeLoader{}, zap.NewNop())
	_, err := c.Reload(context.Background(), models.TaskType("reviews"))
	assert.Error(t, err)
}
