package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/handler"
	"github.com/novakit/nova/internal/storage"
)

type captureNotifier struct {
	ch chan string
}

func (n *captureNotifier) Notify(_ context.Context, _ string, message string) error {
	n.ch <- message
	return nil
}

func waitForNotification(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
		return ""
	}
}

func TestWorkerFiresReminder(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &captureNotifier{ch: make(chan string, 1)}
	w := NewWorker(store, notifier, nil, nil, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(time.Second)

	resp, err := w.Schedule(context.Background(), "s1", &Request{
		Task: "call mom",
		When: time.Now().Add(30 * time.Millisecond),
	})
	require.NoError(t, err)
	assert.Contains(t, resp, "call mom")

	assert.Equal(t, "Reminder - call mom", waitForNotification(t, notifier.ch))

	pending, err := store.PendingTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "fired task must be marked completed")
}

func TestWorkerRedispatchesLaunchTasks(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &captureNotifier{ch: make(chan string, 1)}
	desktop := handler.Func(func(ctx context.Context, command string) (string, error) {
		return "Opening notepad.", nil
	})
	w := NewWorker(store, notifier, desktop, nil, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(time.Second)

	_, err := w.Schedule(context.Background(), "s1", &Request{
		Task: "open notepad",
		When: time.Now().Add(30 * time.Millisecond),
	})
	require.NoError(t, err)

	assert.Equal(t, "Scheduled task executed! Opening notepad.", waitForNotification(t, notifier.ch))
}

func TestWorkerTimerDrivenByInjectedClock(t *testing.T) {
	// The schedule time is decades away on the wall clock; only a delay
	// computed against the injected clock can fire it promptly.
	base := time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	notifier := &captureNotifier{ch: make(chan string, 1)}
	w := NewWorker(store, notifier, nil, func() time.Time { return base }, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(time.Second)

	_, err := w.Schedule(context.Background(), "s1", &Request{
		Task: "call mom",
		When: base.Add(30 * time.Millisecond),
	})
	require.NoError(t, err)

	assert.Equal(t, "Reminder - call mom", waitForNotification(t, notifier.ch))
}

func TestWorkerRejectsPastTimes(t *testing.T) {
	w := NewWorker(storage.NewMemoryStore(), &captureNotifier{ch: make(chan string, 1)}, nil, nil, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(time.Second)

	resp, err := w.Schedule(context.Background(), "s1", &Request{
		Task: "call mom",
		When: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, "That time has already passed. Please specify a future time.", resp)
}

func TestWorkerStopCancelsArmedTimers(t *testing.T) {
	notifier := &captureNotifier{ch: make(chan string, 1)}
	w := NewWorker(storage.NewMemoryStore(), notifier, nil, nil, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))

	_, err := w.Schedule(context.Background(), "s1", &Request{
		Task: "call mom",
		When: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, w.Stop(time.Second))
	select {
	case msg := <-notifier.ch:
		t.Fatalf("unexpected notification after stop: %q", msg)
	default:
	}
}

func TestWorkerRearmsPersistedTasksOnStart(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &captureNotifier{ch: make(chan string, 1)}

	// A task persisted by a previous run.
	first := NewWorker(store, &captureNotifier{ch: make(chan string, 1)}, nil, nil, zap.NewNop())
	require.NoError(t, first.Start(context.Background()))
	_, err := first.Schedule(context.Background(), "s1", &Request{
		Task: "stretch",
		When: time.Now().Add(500 * time.Millisecond),
	})
	require.NoError(t, err)
	require.NoError(t, first.Stop(time.Second))

	second := NewWorker(store, notifier, nil, nil, zap.NewNop())
	require.NoError(t, second.Start(context.Background()))
	defer second.Stop(time.Second)

	assert.Equal(t, "Reminder - stretch", waitForNotification(t, notifier.ch))
}
