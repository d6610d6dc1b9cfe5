package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"github.com/yashrajoria/markup-backend/services/markup-service/repository"
	"github.com/yashrajoria/markup-backend/services/markup-service/services"
	"go.uber.org/zap"
)

type failingRepo struct {
	repository.SessionRepository
	err error
}

func (f *failingRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	return nil, f.err
}

func (f *failingRepo) Create(ctx context.Context) (*models.Session, error) {
	return nil, f.err
}

func TestResolve_ExistingSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository(time.Hour)
	svc := services.NewSessionService(repo, nil, zap.NewNop())
	ctx := context.Background()

	first, created, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Resolve(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestResolve_UnknownIDStartsNewSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository(time.Hour)
	svc := services.NewSessionService(repo, nil, zap.NewNop())

	s, created, err := svc.Resolve(context.Background(), "stale-cookie")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "stale-cookie", s.ID)
}

func TestResolve_StoreFailure(t *testing.T) {
	svc := services.NewSessionService(&failingRepo{err: errors.New("redis down")}, nil, zap.NewNop())

	_, _, err := svc.Resolve(context.Background(), "abc")
	assert.ErrorIs(t, err, apperrors.ErrSessionStore)

	_, _, err = svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrSessionStore)
}

func TestRestart_ZeroesCounters(t *testing.T) {
	repo := repository.NewMemorySessionRepository(time.Hour)
	svc := services.NewSessionService(repo, nil, zap.NewNop())
	ctx := context.Background()

	old, _, _ := svc.Resolve(ctx, "")
	_, err := repo.Advance(ctx, old.ID, models.TaskSearch, 0, 5)
	require.NoError(t, err)

	fresh, err := svc.Restart(ctx, old.ID)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Equal(t, 0, fresh.SearchProgress)

	_, err = svc.Get(ctx, old.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
