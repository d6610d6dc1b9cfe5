package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

type memoryEntry struct {
	session  models.Session
	lastSeen time.Time
}

// MemorySessionRepository keeps sessions in process memory. Entries idle for
// longer than ttl are treated as gone.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Create(_ context.Context) (*models.Session, error) {
	now := r.now().UTC()
	s := models.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = &memoryEntry{session: s, lastSeen: now}
	r.mu.Unlock()

	return &s, nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	copied := e.session
	return &copied, nil
}

func (r *MemorySessionRepository) Advance(_ context.Context, id string, task models.TaskType, expected, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	current := e.session.Progress(task)
	if current != expected {
		return current, ErrStaleProgress
	}
	if current >= limit {
		return current, ErrProgressLimit
	}
	e.session.SetProgress(task, current+1)
	e.session.UpdatedAt = r.now().UTC()
	return current + 1, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (r *MemorySessionRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.sessions {
		if r.expired(e) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
func (r *MemorySessionRepository) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// lookup must be called with mu held. A successful lookup refreshes the idle timer.
func (r *MemorySessionRepository) lookup(id string) (*memoryEntry, error) {
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if r.expired(e) {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e, nil
}

func (r *MemorySessionRepository) expired(e *memoryEntry) bool {
	return r.ttl > 0 && r.now().Sub(e.lastSeen) > r.ttl
}
