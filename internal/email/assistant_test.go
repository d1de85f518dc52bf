package email

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/models"
)

type fakeService struct {
	emails    []models.EmailSummary
	fetchErr  error
	sendErr   error
	sendCount int
	lastTo    string
	lastSubj  string
	lastBody  string
}

func (f *fakeService) FetchRecent(_ context.Context, limit int, _ bool) ([]models.EmailSummary, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.emails) > limit {
		return f.emails[:limit], nil
	}
	return f.emails, nil
}

func (f *fakeService) Send(_ context.Context, to, subject, body string, _ ...string) error {
	f.sendCount++
	f.lastTo = to
	f.lastSubj = subject
	f.lastBody = body
	return f.sendErr
}

type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Dear colleague, " + prompt[:20], nil
}

func (f *fakeGenerator) Stream(context.Context, string, []models.Turn) (<-chan string, error) {
	ch := make(chan string)
	close(ch)
	return ch, nil
}

func threeEmails() []models.EmailSummary {
	now := time.Now()
	return []models.EmailSummary{
		{From: "alice@example.com", FromName: "Alice", Subject: "Lunch tomorrow", Date: now, Excerpt: "Are we still on?"},
		{From: "bob@example.com", FromName: "Bob", Subject: "Project status", Date: now.Add(-time.Hour), Excerpt: "Any updates?"},
		{From: "carol@example.com", FromName: "Carol", Subject: "Invoice", Date: now.Add(-2 * time.Hour), Excerpt: "Attached."},
	}
}

func newTestAssistant(svc Service) *Assistant {
	return NewAssistant(svc, &fakeGenerator{}, zap.NewNop())
}

func TestCheckEmailsEnumeratesWindow(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)

	resp := a.Process(context.Background(), "check emails")
	assert.Contains(t, resp, "You have 3 recent emails")
	assert.Contains(t, resp, "From Alice: Lunch tomorrow")
	assert.Contains(t, resp, "From Carol: Invoice")
	assert.Equal(t, ModeChecking, a.Mode())
	assert.True(t, a.Active())
}

func TestOrdinalReferentResolution(t *testing.T) {
	cases := []struct {
		utterance string
		wantName  string
	}{
		{"reply to the first one", "Alice"},
		{"reply to the latest one", "Alice"},
		{"reply to the newest email please", "Alice"},
		{"reply to the second one", "Bob"},
		{"reply to the last one", "Carol"},
	}
	for _, tc := range cases {
		svc := &fakeService{emails: threeEmails()}
		a := newTestAssistant(svc)
		a.Process(context.Background(), "check emails")

		resp := a.Process(context.Background(), tc.utterance)
		assert.Contains(t, resp, fmt.Sprintf("What would you like to say to %s?", tc.wantName),
			"utterance: %q", tc.utterance)
	}
}

func TestNameReferentResolution(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	a.Process(context.Background(), "check emails")

	resp := a.Process(context.Background(), "reply to bob")
	assert.Contains(t, resp, "What would you like to say to Bob?")
	assert.Equal(t, ModeReplying, a.Mode())
}

func TestAmbiguousReplyRePrompts(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	a.Process(context.Background(), "check emails")

	resp := a.Process(context.Background(), "reply to that email")
	assert.Contains(t, resp, "Which email?")
	assert.Contains(t, resp, "Alice")
	assert.Contains(t, resp, "Bob")
	assert.Contains(t, resp, "Carol")
	// No draft was prepared and nothing is pending.
	assert.False(t, a.pendingConfirm)
	assert.Zero(t, svc.sendCount)
}

func TestReplyWithoutLoadedEmails(t *testing.T) {
	a := newTestAssistant(&fakeService{})
	resp := a.Process(context.Background(), "reply to alice")
	assert.Contains(t, resp, "Say 'check emails' first")
}

func TestFullReplyFlowSendsExactlyOnce(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	resp := a.Process(ctx, "reply to alice")
	require.Contains(t, resp, "What would you like to say to Alice?")

	resp = a.Process(ctx, "tell her i'll be late")
	require.Contains(t, resp, "Should I send it?")
	require.True(t, a.Active())

	resp = a.Process(ctx, "yes")
	assert.Contains(t, resp, "Email sent to alice!")
	assert.Equal(t, 1, svc.sendCount)
	assert.Equal(t, "alice@example.com", svc.lastTo)
	assert.Equal(t, "Re: Lunch tomorrow", svc.lastSubj)
	assert.Equal(t, ModeIdle, a.Mode())
	assert.False(t, a.Active())

	// A second "yes" lands in an idle session: no second send.
	a.Process(ctx, "yes")
	assert.Equal(t, 1, svc.sendCount)
}

func TestNegativeConfirmationDiscardsDraft(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	a.Process(ctx, "reply to bob")
	a.Process(ctx, "say sounds good to me")
	require.True(t, a.pendingConfirm)

	resp := a.Process(ctx, "no")
	assert.Contains(t, resp, "cancelled")
	assert.Equal(t, ModeIdle, a.Mode())

	// Old draft is gone: a later "yes" cannot send it.
	a.Process(ctx, "yes")
	assert.Zero(t, svc.sendCount)
}

func TestDontSendCancelsDespiteContainingSend(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	a.Process(ctx, "reply to carol")
	a.Process(ctx, "let her know the invoice is paid")
	require.True(t, a.pendingConfirm)

	a.Process(ctx, "don't send")
	assert.Zero(t, svc.sendCount)
	assert.Equal(t, ModeIdle, a.Mode())
}

func TestCancelEscapesChecking(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	require.Equal(t, ModeChecking, a.Mode())

	resp := a.Process(ctx, "cancel")
	assert.Contains(t, resp, "dropped that")
	assert.Equal(t, ModeIdle, a.Mode())
	assert.False(t, a.Active(), "the next turn must classify normally")
}

func TestCancelEscapesReplying(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	a.Process(ctx, "reply to alice")
	require.Equal(t, ModeReplying, a.Mode())

	// "cancel" is an escape, never a reply body to draft and confirm.
	resp := a.Process(ctx, "cancel")
	assert.NotContains(t, resp, "Should I send it?")
	assert.False(t, a.pendingConfirm)
	assert.Equal(t, ModeIdle, a.Mode())
	assert.Zero(t, svc.sendCount)
}

func TestCancelEscapesComposing(t *testing.T) {
	a := newTestAssistant(&fakeService{})
	ctx := context.Background()

	a.Process(ctx, "compose an email")
	require.Equal(t, ModeComposing, a.Mode())

	a.Process(ctx, "never mind")
	assert.Equal(t, ModeIdle, a.Mode())
	assert.False(t, a.Active())
}

func TestUnrecognizedConfirmationRePrompts(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	a.Process(ctx, "reply to bob")
	a.Process(ctx, "the meeting moved to thursday")
	require.True(t, a.pendingConfirm)

	resp := a.Process(ctx, "what's the weather like")
	assert.Contains(t, resp, "Say yes to send or no to cancel")
	assert.True(t, a.pendingConfirm)
	assert.Zero(t, svc.sendCount)
}

func TestSendFailureResetsToIdle(t *testing.T) {
	svc := &fakeService{emails: threeEmails(), sendErr: errors.New("smtp connection refused")}
	a := newTestAssistant(svc)
	ctx := context.Background()

	a.Process(ctx, "check emails")
	a.Process(ctx, "reply to alice")
	a.Process(ctx, "running ten minutes behind")
	resp := a.Process(ctx, "yes")

	assert.Contains(t, resp, "smtp connection refused")
	assert.Equal(t, 1, svc.sendCount)
	assert.Equal(t, ModeIdle, a.Mode())

	// No automatic retry: another "yes" in idle does nothing.
	a.Process(ctx, "yes")
	assert.Equal(t, 1, svc.sendCount)
}

func TestComposeRequiresAddress(t *testing.T) {
	a := newTestAssistant(&fakeService{})
	ctx := context.Background()

	resp := a.Process(ctx, "compose an email")
	assert.Contains(t, resp, "include their email address")
	assert.Equal(t, ModeComposing, a.Mode())

	resp = a.Process(ctx, "dave@example.com")
	assert.Contains(t, resp, "What would you like to say to dave@example.com?")
}

func TestComposeFlowWithInlineContent(t *testing.T) {
	svc := &fakeService{}
	a := newTestAssistant(svc)
	ctx := context.Background()

	resp := a.Process(ctx, "send email to dave@example.com thanks for the great demo")
	require.Contains(t, resp, "Should I send it?")

	a.Process(ctx, "send it")
	assert.Equal(t, 1, svc.sendCount)
	assert.Equal(t, "dave@example.com", svc.lastTo)
	assert.NotEmpty(t, svc.lastSubj)
}

func TestFetchFailureSurfacedVerbatim(t *testing.T) {
	svc := &fakeService{fetchErr: errors.New("imap timeout")}
	a := newTestAssistant(svc)

	resp := a.Process(context.Background(), "check emails")
	assert.Contains(t, resp, "imap timeout")
	assert.Equal(t, ModeIdle, a.Mode())
}

func TestDraftGenerationFailureKeepsReplying(t *testing.T) {
	svc := &fakeService{emails: threeEmails()}
	a := NewAssistant(svc, &fakeGenerator{err: errors.New("model offline")}, zap.NewNop())
	ctx := context.Background()

	a.Process(ctx, "check emails")
	a.Process(ctx, "reply to alice")
	resp := a.Process(ctx, "tell her hello")

	assert.Contains(t, resp, "model offline")
	assert.False(t, a.pendingConfirm)
	assert.Equal(t, ModeReplying, a.Mode())
}
