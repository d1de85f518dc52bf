package storage

import (
	"context"

	"github.com/novakit/nova/internal/models"
)

// Store persists rolling conversation memory and scheduled tasks. The
// request path only ever reads a bounded recent window.
type Store interface {
	AppendTurn(ctx context.Context, turn *models.Turn) error
	// RecentTurns returns up to limit turns for a session in chronological
	// order (oldest first).
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]models.Turn, error)
	ClearSession(ctx context.Context, sessionID string) error

	AddTask(ctx context.Context, task *models.ScheduledTask) error
	PendingTasks(ctx context.Context) ([]models.ScheduledTask, error)
	CompleteTask(ctx context.Context, id string) error

	Close() error
}
