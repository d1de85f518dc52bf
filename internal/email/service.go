package email

import (
	"context"

	"github.com/novakit/nova/internal/models"
)

// Service is the assistant's entire boundary toward the mailbox. How mail is
// actually fetched or delivered (IMAP, SMTP, an HTTP gateway) is the
// implementation's business.
type Service interface {
	// FetchRecent returns summaries most-recent-first, at most limit.
	FetchRecent(ctx context.Context, limit int, unreadOnly bool) ([]models.EmailSummary, error)
	Send(ctx context.Context, to, subject, body string, cc ...string) error
}
