package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/handler"
	"github.com/novakit/nova/internal/models"
	"github.com/novakit/nova/internal/notify"
	"github.com/novakit/nova/internal/storage"
)

// Worker executes deferred tasks off the request/response path. Each task
// waits on its own timer goroutine; the result goes out through the notifier
// side channel, never back to the turn that scheduled it.
type Worker struct {
	store    storage.Store
	notifier notify.Notifier
	desktop  handler.Handler
	clock    Clock
	logger   *zap.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func NewWorker(store storage.Store, notifier notify.Notifier, desktop handler.Handler, clock Clock, logger *zap.Logger) *Worker {
	if clock == nil {
		clock = time.Now
	}
	return &Worker{
		store:    store,
		notifier: notifier,
		desktop:  desktop,
		clock:    clock,
		logger:   logger,
	}
}

// Start arms timers for any tasks persisted by a previous run and accepts
// new schedules until Stop.
func (w *Worker) Start(parent context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("schedule worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(parent)
	w.started = true
	w.mu.Unlock()

	pending, err := w.store.PendingTasks(w.ctx)
	if err != nil {
		return fmt.Errorf("loading pending tasks: %w", err)
	}
	for _, task := range pending {
		w.arm(task)
	}
	return nil
}

func (w *Worker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	w.started = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("schedule worker: stop timeout after %s", timeout)
	}
}

// Schedule persists the request and arms its timer. The returned
// confirmation is the only thing the scheduling turn ever sees.
func (w *Worker) Schedule(ctx context.Context, sessionID string, req *Request) (string, error) {
	now := w.clock()
	if !req.When.After(now) {
		return "That time has already passed. Please specify a future time.", nil
	}

	task := models.ScheduledTask{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		Task:          req.Task,
		ScheduledTime: req.When,
		CreatedAt:     now,
	}
	if err := w.store.AddTask(ctx, &task); err != nil {
		return "", fmt.Errorf("persisting scheduled task: %w", err)
	}
	w.arm(task)

	return fmt.Sprintf("Got it! I'll execute '%s' at %s.",
		req.Task, req.When.Format("03:04 PM on January 02")), nil
}

func (w *Worker) arm(task models.ScheduledTask) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.wg.Add(1)
	go w.wait(w.ctx, task)
}

func (w *Worker) wait(ctx context.Context, task models.ScheduledTask) {
	defer w.wg.Done()

	timer := time.NewTimer(task.ScheduledTime.Sub(w.clock()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	w.fire(ctx, task)
}

func (w *Worker) fire(ctx context.Context, task models.ScheduledTask) {
	message := "Reminder - " + task.Task
	if isLaunchCommand(task.Task) && w.desktop != nil {
		out, err := w.desktop.Execute(ctx, task.Task)
		if err != nil {
			w.logger.Error("Scheduled task execution failed",
				zap.Error(err),
				zap.String("task", task.Task))
			message = fmt.Sprintf("I couldn't run '%s': %v", task.Task, err)
		} else {
			message = "Scheduled task executed! " + out
		}
	}

	if err := w.notifier.Notify(ctx, task.SessionID, message); err != nil {
		w.logger.Error("Failed to deliver reminder",
			zap.Error(err),
			zap.String("task_id", task.ID))
	}
	if err := w.store.CompleteTask(ctx, task.ID); err != nil {
		w.logger.Error("Failed to mark task completed",
			zap.Error(err),
			zap.String("task_id", task.ID))
	}
}

func isLaunchCommand(task string) bool {
	q := strings.ToLower(task)
	for _, verb := range []string{"open", "launch", "start"} {
		if strings.Contains(q, verb) {
			return true
		}
	}
	return false
}
