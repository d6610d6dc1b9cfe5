package services

import (
	"context"
	"errors"

	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"github.com/yashrajoria/markup-backend/services/markup-service/repository"
	"go.uber.org/zap"
)

// SessionService manages the lifecycle of labeler sessions.
type SessionService interface {
	// Resolve returns the session for id, creating a fresh one when id is empty
	// or unknown. created reports whether a new session was started.
	Resolve(ctx context.Context, id string) (session *models.Session, created bool, err error)
	Get(ctx context.Context, id string) (*models.Session, error)
	// Restart drops the session and starts a new one with zeroed counters.
	Restart(ctx context.Context, id string) (*models.Session, error)
}

type sessionServiceImpl struct {
	repo      repository.SessionRepository
	telemetry *telemetry
	logger    *zap.Logger
}

func NewSessionService(repo repository.SessionRepository, metrics MetricsRecorder, logger *zap.Logger) SessionService {
	return &sessionServiceImpl{
		repo:      repo,
		telemetry: &telemetry{metrics: metrics, logger: logger},
		logger:    logger,
	}
}

func (s *sessionServiceImpl) Resolve(ctx context.Context, id string) (*models.Session, bool, error) {
	if id != "" {
		session, err := s.repo.Get(ctx, id)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return nil, false, apperrors.Wrap(apperrors.ErrSessionStore, err)
		}
		s.logger.Debug("Unknown session, starting a new one", zap.String("session_id", id))
	}

	session, err := s.create(ctx)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

func (s *sessionServiceImpl) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, sessionError(err)
	}
	return session, nil
}

func (s *sessionServiceImpl) Restart(ctx context.Context, id string) (*models.Session, error) {
	if id != "" {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrSessionStore, err)
		}
	}
	session, err := s.create(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Session restarted",
		zap.String("previous_session_id", id),
		zap.String("session_id", session.ID),
	)
	return session, nil
}

func (s *sessionServiceImpl) create(ctx context.Context) (*models.Session, error) {
	session, err := s.repo.Create(ctx)
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrSessionStore, err)
	}
	s.telemetry.sessionStarted()
	s.logger.Info("Session started", zap.String("session_id", session.ID))
	return session, nil
}
