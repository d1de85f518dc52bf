package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalboxFetchRecent(t *testing.T) {
	dir := t.TempDir()
	mailbox := filepath.Join(dir, "mailbox.json")
	require.NoError(t, os.WriteFile(mailbox, []byte(`[
		{"from": "alice@example.com", "from_name": "Alice", "subject": "Standup"},
		{"from": "bob@example.com", "subject": "Invoice"},
		{"from": "carol@example.com", "subject": "Lunch"}
	]`), 0o600))

	box := NewLocalbox(mailbox, filepath.Join(dir, "outbox.json"))
	got, err := box.FetchRecent(context.Background(), 2, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].DisplayName())
	assert.Equal(t, "bob", got[1].DisplayName())
}

func TestLocalboxFetchMissingFile(t *testing.T) {
	box := NewLocalbox(filepath.Join(t.TempDir(), "absent.json"), "")
	got, err := box.FetchRecent(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalboxSendAppends(t *testing.T) {
	dir := t.TempDir()
	outbox := filepath.Join(dir, "outbox.json")
	box := NewLocalbox("", outbox)
	ctx := context.Background()

	require.NoError(t, box.Send(ctx, "alice@example.com", "Re: Standup", "On my way."))
	require.NoError(t, box.Send(ctx, "bob@example.com", "Invoice", "Paid.", "carol@example.com"))

	data, err := os.ReadFile(outbox)
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice@example.com")
	assert.Contains(t, string(data), "Re: Standup")
	assert.Contains(t, string(data), "carol@example.com")
}
