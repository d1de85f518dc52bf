package storage

import (
	"context"
	"sync"

	"github.com/novakit/nova/internal/models"
)

// MemoryStore is the in-memory Store used for tests and single-run sessions
// where persistence across restarts does not matter.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]models.Turn
	tasks map[string]models.ScheduledTask
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns: make(map[string][]models.Turn),
		tasks: make(map[string]models.ScheduledTask),
	}
}

func (s *MemoryStore) AppendTurn(_ context.Context, turn *models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], *turn)
	return nil
}

func (s *MemoryStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]models.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, sessionID)
	return nil
}

func (s *MemoryStore) AddTask(_ context.Context, task *models.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) PendingTasks(_ context.Context) ([]models.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScheduledTask
	for _, t := range s.tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) CompleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, exists := s.tasks[id]; exists {
		t.Completed = true
		s.tasks[id] = t
	}
	return nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
