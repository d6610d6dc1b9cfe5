package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"github.com/yashrajoria/markup-backend/services/markup-service/repository"
)

// taskRunner drives labeling steps for one task type over records of type R.
// It holds no per-session state of its own: progress lives in the session
// repository and records in the catalog snapshot.
type taskRunner[R any] struct {
	task            models.TaskType
	snapshot        func() *dataset.Snapshot[R]
	sessions        repository.SessionRepository
	guard           *submitGuard
	requireCategory bool
}

// submitResult is what a confirmed or rejected submission produced.
type submitResult[R any] struct {
	Step     models.Step[R]
	Advanced bool
}

// stepAt projects the snapshot at progress. It never indexes past the end.
func (r *taskRunner[R]) stepAt(snap *dataset.Snapshot[R], progress int) models.Step[R] {
	total := snap.Len()
	step := models.Step[R]{
		Task:     r.task,
		Position: progress,
		Total:    total,
	}
	if progress >= total {
		step.Exhausted = true
		step.Notice = r.task.Definition().ExhaustedNotice
		return step
	}
	record, _ := snap.At(progress)
	step.Record = &record
	step.Remaining = total - progress
	return step
}

func (r *taskRunner[R]) currentSnapshot() (*dataset.Snapshot[R], error) {
	snap := r.snapshot()
	if snap == nil {
		return nil, apperrors.Wrap(apperrors.ErrDatasetUnavailable, fmt.Errorf("%s dataset is not loaded", r.task))
	}
	return snap, nil
}

// Step returns the active record for the session, or the exhaustion notice.
func (r *taskRunner[R]) Step(ctx context.Context, sessionID string) (models.Step[R], error) {
	snap, err := r.currentSnapshot()
	if err != nil {
		return models.Step[R]{}, err
	}
	session, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.Step[R]{}, sessionError(err)
	}
	return r.stepAt(snap, session.Progress(r.task)), nil
}

// Submit confirms the verdict for the record rendered at position and advances
// the session by exactly one. A submission for a position the session has
// already moved past is rejected as stale and changes nothing.
func (r *taskRunner[R]) Submit(ctx context.Context, sessionID string, position int, verdict models.Verdict) (submitResult[R], error) {
	release, ok := r.guard.acquire(sessionID, r.task)
	if !ok {
		return submitResult[R]{}, apperrors.ErrSubmissionInFlight
	}
	defer release()

	snap, err := r.currentSnapshot()
	if err != nil {
		return submitResult[R]{}, err
	}

	if _, err := verdict.Normalize(r.task, r.requireCategory); err != nil {
		// Exhaustion wins over verdict policy: there is no record left to judge.
		if session, gerr := r.sessions.Get(ctx, sessionID); gerr == nil && session.Progress(r.task) >= snap.Len() {
			return submitResult[R]{Step: r.stepAt(snap, session.Progress(r.task))}, nil
		}
		if errors.Is(err, models.ErrCategoryRequired) {
			return submitResult[R]{}, apperrors.Wrap(apperrors.ErrCategoryRequired, err)
		}
		return submitResult[R]{}, apperrors.Wrap(apperrors.ErrInvalidVerdict, err)
	}

	next, err := r.sessions.Advance(ctx, sessionID, r.task, position, snap.Len())
	switch {
	case err == nil:
		return submitResult[R]{Step: r.stepAt(snap, next), Advanced: true}, nil
	case errors.Is(err, repository.ErrProgressLimit):
		return submitResult[R]{Step: r.stepAt(snap, next)}, nil
	case errors.Is(err, repository.ErrStaleProgress):
		return submitResult[R]{Step: r.stepAt(snap, next)}, apperrors.Wrap(apperrors.ErrStaleSubmission, err)
	default:
		return submitResult[R]{}, sessionError(err)
	}
}

func sessionError(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return apperrors.Wrap(apperrors.ErrSessionNotFound, err)
	}
	return apperrors.Wrap(apperrors.ErrSessionStore, err)
}
