package repository

import (
	"context"
	"errors"

	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrStaleProgress means the stored counter no longer equals the expected value.
	ErrStaleProgress = errors.New("session progress has already moved on")
	// ErrProgressLimit means the counter already reached the record count.
	ErrProgressLimit = errors.New("session progress reached the record count")
)

// SessionRepository stores per-session progress counters.
//
// Advance is a compare-and-increment: it adds exactly one to the task's counter
// only if the counter equals expected and is below limit, and returns the new value.
// Implementations must make this atomic against concurrent callers.
type SessionRepository interface {
	Create(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Advance(ctx context.Context, id string, task models.TaskType, expected, limit int) (int, error)
	Delete(ctx context.Context, id string) error
}
