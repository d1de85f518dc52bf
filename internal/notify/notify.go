package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier delivers out-of-band messages (fired reminders, deferred task
// results). Delivery is a side channel: nothing on the request/response path
// waits for it.
type Notifier interface {
	Notify(ctx context.Context, sessionID, message string) error
}

// Console writes notifications to a terminal stream, the way the assistant
// announces a fired reminder in an interactive session.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	name string
}

func NewConsole(out io.Writer, assistantName string) *Console {
	return &Console{out: out, name: assistantName}
}

func (c *Console) Notify(_ context.Context, _ string, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\n%s: %s\n", c.name, message)
	return err
}

// Telegram pushes notifications to a fixed chat, for reminders that should
// reach the user away from the terminal.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Notify(_ context.Context, sessionID, message string) error {
	msg := tgbotapi.NewMessage(t.chatID, message)
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("Failed to send telegram notification",
			zap.Error(err),
			zap.String("session_id", sessionID))
		return err
	}
	return nil
}

// Fanout delivers to every notifier, logging failures instead of stopping.
type Fanout struct {
	targets []Notifier
	logger  *zap.Logger
}

func NewFanout(logger *zap.Logger, targets ...Notifier) *Fanout {
	return &Fanout{targets: targets, logger: logger}
}

func (f *Fanout) Notify(ctx context.Context, sessionID, message string) error {
	for _, n := range f.targets {
		if err := n.Notify(ctx, sessionID, message); err != nil {
			f.logger.Error("Notification delivery failed", zap.Error(err))
		}
	}
	return nil
}
