package services

import (
	"context"
	"errors"

	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"github.com/yashrajoria/markup-backend/services/markup-service/repository"
	"go.uber.org/zap"
)

// MarkupService defines the labeling operations exposed over HTTP.
type MarkupService interface {
	Tasks() []models.TaskDefinition
	SearchStep(ctx context.Context, sessionID string) (*models.SearchStep, error)
	MatchingStep(ctx context.Context, sessionID string) (*models.MatchingStep, error)
	// SubmitSearch and SubmitMatching return the step to render next. When the
	// error is a stale submission the step is still set and reflects current progress.
	SubmitSearch(ctx context.Context, sessionID string, position int, verdict models.Verdict) (*models.SearchStep, error)
	SubmitMatching(ctx context.Context, sessionID string, position int, verdict models.Verdict) (*models.MatchingStep, error)
	Stats(ctx context.Context, sessionID string) (*models.Stats, error)
	Datasets() []dataset.DatasetInfo
	ReloadDataset(ctx context.Context, task models.TaskType) (*dataset.DatasetInfo, error)
}

// Options configures the markup service.
type Options struct {
	// RequireCategory rejects submissions without a category when true.
	RequireCategory  bool
	SNS              aws_pkg.SNSPublisher
	ProgressTopicArn string
	Metrics          MetricsRecorder
}

type markupServiceImpl struct {
	catalog   *dataset.Catalog
	sessions  repository.SessionRepository
	search    *taskRunner[models.SearchRecord]
	matching  *taskRunner[models.MatchingRecord]
	telemetry *telemetry
	logger    *zap.Logger
}

// NewMarkupService wires both task runners over one catalog and session repository.
func NewMarkupService(catalog *dataset.Catalog, sessions repository.SessionRepository, opts Options, logger *zap.Logger) MarkupService {
	guard := newSubmitGuard()
	return &markupServiceImpl{
		catalog:  catalog,
		sessions: sessions,
		search: &taskRunner[models.SearchRecord]{
			task:            models.TaskSearch,
			snapshot:        catalog.Search,
			sessions:        sessions,
			guard:           guard,
			requireCategory: opts.RequireCategory,
		},
		matching: &taskRunner[models.MatchingRecord]{
			task:            models.TaskMatching,
			snapshot:        catalog.Matching,
			sessions:        sessions,
			guard:           guard,
			requireCategory: opts.RequireCategory,
		},
		telemetry: &telemetry{
			sns:      opts.SNS,
			topicArn: opts.ProgressTopicArn,
			metrics:  opts.Metrics,
			logger:   logger,
		},
		logger: logger,
	}
}

func (s *markupServiceImpl) Tasks() []models.TaskDefinition {
	defs := make([]models.TaskDefinition, 0, len(models.AllTasks()))
	for _, t := range models.AllTasks() {
		defs = append(defs, t.Definition())
	}
	return defs
}

func (s *markupServiceImpl) SearchStep(ctx context.Context, sessionID string) (*models.SearchStep, error) {
	step, err := s.search.Step(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *markupServiceImpl) MatchingStep(ctx context.Context, sessionID string) (*models.MatchingStep, error) {
	step, err := s.matching.Step(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *markupServiceImpl) SubmitSearch(ctx context.Context, sessionID string, position int, verdict models.Verdict) (*models.SearchStep, error) {
	res, err := s.search.Submit(ctx, sessionID, position, verdict)
	s.afterSubmit(ctx, sessionID, models.TaskSearch, res.Advanced, res.Step.Position, res.Step.Total, res.Step.Exhausted, err)
	if err != nil && !errors.Is(err, apperrors.ErrStaleSubmission) {
		return nil, err
	}
	return &res.Step, err
}

func (s *markupServiceImpl) SubmitMatching(ctx context.Context, sessionID string, position int, verdict models.Verdict) (*models.MatchingStep, error) {
	res, err := s.matching.Submit(ctx, sessionID, position, verdict)
	s.afterSubmit(ctx, sessionID, models.TaskMatching, res.Advanced, res.Step.Position, res.Step.Total, res.Step.Exhausted, err)
	if err != nil && !errors.Is(err, apperrors.ErrStaleSubmission) {
		return nil, err
	}
	return &res.Step, err
}

func (s *markupServiceImpl) afterSubmit(ctx context.Context, sessionID string, task models.TaskType, advanced bool, position, total int, exhausted bool, err error) {
	log := s.logger.With(zap.String("session_id", sessionID), zap.String("task", string(task)))
	switch {
	case advanced:
		log.Info("Verdict confirmed", zap.Int("position", position), zap.Int("total", total))
		s.telemetry.progressed(ctx, sessionID, task, position, total, exhausted)
	case errors.Is(err, apperrors.ErrStaleSubmission):
		log.Warn("Stale submission ignored", zap.Int("position", position))
		s.telemetry.stale(task)
	case errors.Is(err, apperrors.ErrSessionStore):
		log.Error("Submission failed", zap.Error(err))
	case err != nil:
		log.Debug("Submission rejected", zap.Error(err))
	}
}

// Stats reports both counters. A session that has not labeled anything, or no
// longer exists, reports zeros.
func (s *markupServiceImpl) Stats(ctx context.Context, sessionID string) (*models.Stats, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrSessionStore, err)
	}
	search := session.Progress(models.TaskSearch)
	matching := session.Progress(models.TaskMatching)
	return &models.Stats{
		Search:   search,
		Matching: matching,
		Total:    search + matching,
	}, nil
}

func (s *markupServiceImpl) Datasets() []dataset.DatasetInfo {
	infos := make([]dataset.DatasetInfo, 0, len(models.AllTasks()))
	for _, t := range models.AllTasks() {
		infos = append(infos, s.catalog.Info(t))
	}
	return infos
}

// ReloadDataset swaps in a fresh snapshot. Sessions keep their counters; one
// that is now past the end of a shorter dataset simply sees exhaustion.
func (s *markupServiceImpl) ReloadDataset(ctx context.Context, task models.TaskType) (*dataset.DatasetInfo, error) {
	info, err := s.catalog.Reload(ctx, task)
	if err != nil {
		s.logger.Error("Dataset reload failed", zap.String("task", string(task)), zap.Error(err))
		s.telemetry.datasetReloadFailed(task)
		return nil, apperrors.Wrap(apperrors.ErrDatasetUnavailable, err)
	}
	s.telemetry.datasetLoaded(task, info.Records)
	return &info, nil
}
