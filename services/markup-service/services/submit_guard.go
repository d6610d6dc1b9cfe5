package services

import (
	"sync"

	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

// submitGuard rejects a second submission for the same session and task while
// the first is still being processed. It is a try-lock, not a queue.
type submitGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func newSubmitGuard() *submitGuard {
	return &submitGuard{inflight: make(map[string]struct{})}
}

// acquire returns a release func and true, or false if a submission is already running.
func (g *submitGuard) acquire(sessionID string, task models.TaskType) (func(), bool) {
	key := string(task) + ":" + sessionID

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return nil, false
	}
	g.inflight[key] = struct{}{}

	return func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
	}, true
}
