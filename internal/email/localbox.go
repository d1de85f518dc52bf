package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/novakit/nova/internal/models"
)

// Localbox is a file-backed Service for development and demos: incoming mail
// is a JSON array of summaries (most recent first) and sends are appended to
// an outbox JSON file. It lets the full check/reply/compose flow run without
// a real mail account.
type Localbox struct {
	mailboxPath string
	outboxPath  string
	mu          sync.Mutex
}

func NewLocalbox(mailboxPath, outboxPath string) *Localbox {
	return &Localbox{mailboxPath: mailboxPath, outboxPath: outboxPath}
}

func (l *Localbox) FetchRecent(_ context.Context, limit int, _ bool) ([]models.EmailSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.mailboxPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mailbox %s: %w", l.mailboxPath, err)
	}

	var all []models.EmailSummary
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing mailbox %s: %w", l.mailboxPath, err)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type outboxEntry struct {
	To      string    `json:"to"`
	CC      []string  `json:"cc,omitempty"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

func (l *Localbox) Send(_ context.Context, to, subject, body string, cc ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sent []outboxEntry
	if data, err := os.ReadFile(l.outboxPath); err == nil {
		// A corrupt outbox starts over rather than blocking sends.
		_ = json.Unmarshal(data, &sent)
	}
	sent = append(sent, outboxEntry{
		To:      to,
		CC:      cc,
		Subject: subject,
		Body:    body,
		SentAt:  time.Now(),
	})

	data, err := json.MarshalIndent(sent, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outbox: %w", err)
	}
	if err := os.WriteFile(l.outboxPath, data, 0o600); err != nil {
		return fmt.Errorf("writing outbox %s: %w", l.outboxPath, err)
	}
	return nil
}
