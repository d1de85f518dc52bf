package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/novakit/nova/internal/llm"
	"github.com/novakit/nova/internal/models"
)

// Mode is the current dialogue phase of one assistant session.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeChecking  Mode = "checking"
	ModeReplying  Mode = "replying"
	ModeComposing Mode = "composing"
)

// recentWindow bounds how many fetched emails are kept as referents.
const recentWindow = 3

// fetchLimit is how many emails one "check emails" turn reads.
const fetchLimit = 5

var (
	checkKeywords = []string{
		"check email", "read email", "new email", "unread email",
		"any email", "get email", "show email", "how many email",
	}
	replyKeywords   = []string{"reply", "respond", "answer that", "reply to", "send reply"}
	composeKeywords = []string{"compose", "send email to", "write email", "new email to"}

	// Negatives are tested before affirmatives so "don't send" cancels even
	// though it contains "send".
	confirmNo  = []string{"no", "nope", "cancel", "don't send", "dont send", "stop", "nevermind", "never mind"}
	confirmYes = []string{"yes", "yeah", "yep", "sure", "okay", "ok", "send it", "confirm", "go ahead", "send"}

	// cancelKeywords escape any non-idle phase back to idle, so the flow
	// never traps a user who changed their mind mid-dialogue.
	cancelKeywords = []string{"cancel", "never mind", "nevermind", "forget it"}

	addressPattern = regexp.MustCompile(`(?:email|send)\s+(?:to\s+)?([^\s]+@[^\s]+)`)
	bareAddress    = regexp.MustCompile(`[^\s]+@[^\s]+`)
)

// Assistant is the voice-email conversation state machine for one session.
// It owns its state exclusively; the router serializes turns per session, so
// no locking happens here.
type Assistant struct {
	svc    Service
	gen    llm.Generator
	logger *zap.Logger

	mode           Mode
	active         *models.EmailSummary
	recent         []models.EmailSummary
	draft          *models.Draft
	pendingConfirm bool
}

func NewAssistant(svc Service, gen llm.Generator, logger *zap.Logger) *Assistant {
	return &Assistant{
		svc:    svc,
		gen:    gen,
		logger: logger,
		mode:   ModeIdle,
	}
}

// Active reports whether this session's next turn belongs to the assistant
// regardless of what the utterance looks like. A pending confirmation claims
// the turn so a bare "yes" is never re-classified.
func (a *Assistant) Active() bool {
	return a.mode != ModeIdle || a.pendingConfirm
}

// Mode exposes the current phase for diagnostics.
func (a *Assistant) Mode() Mode { return a.mode }

// Reset returns the session to idle and discards any draft or referents.
func (a *Assistant) Reset() {
	a.mode = ModeIdle
	a.active = nil
	a.recent = nil
	a.draft = nil
	a.pendingConfirm = false
}

// Process consumes one utterance and returns the spoken-style response. It
// never returns an error: collaborator failures are surfaced verbatim in the
// response and reset the session, per the no-retry policy.
func (a *Assistant) Process(ctx context.Context, utterance string) string {
	q := strings.ToLower(strings.TrimSpace(utterance))

	if a.pendingConfirm {
		return a.handleConfirmation(ctx, q)
	}

	// A cancel word escapes checking/replying/composing back to idle before
	// the mode branches can read it as a selection or message body.
	if a.mode != ModeIdle && containsAny(q, cancelKeywords) {
		a.Reset()
		return "Okay, I've dropped that. What else can I help with?"
	}

	switch {
	case containsAny(q, checkKeywords):
		return a.checkEmails(ctx, q)
	case containsAny(q, replyKeywords):
		return a.replyToEmail(ctx, q)
	case containsAny(q, composeKeywords):
		return a.composeEmail(ctx, q)
	case a.mode == ModeChecking:
		return a.handleSelection(q)
	case a.mode == ModeReplying:
		return a.handleReplyContent(ctx, q)
	case a.mode == ModeComposing:
		return a.handleComposeContent(ctx, q)
	case strings.Contains(q, "email") && bareAddress.MatchString(q):
		// "email bob@example.com ..." without an explicit compose verb.
		return a.composeEmail(ctx, q)
	default:
		return "I'm not sure what you want me to do. Try saying 'check emails' or 'reply to that email'."
	}
}

func (a *Assistant) checkEmails(ctx context.Context, q string) string {
	unreadOnly := strings.Contains(q, "unread") || strings.Contains(q, "new")

	emails, err := a.svc.FetchRecent(ctx, fetchLimit, unreadOnly)
	if err != nil {
		a.logger.Error("Failed to fetch emails", zap.Error(err), zap.Bool("unread_only", unreadOnly))
		return fmt.Sprintf("Sorry, %v", err)
	}
	if len(emails) == 0 {
		return "No emails found."
	}

	window := emails
	if len(window) > recentWindow {
		window = window[:recentWindow]
	}
	a.recent = window
	a.mode = ModeChecking

	kind := "recent"
	if unreadOnly {
		kind = "unread"
	}
	var b strings.Builder
	if len(emails) == 1 {
		fmt.Fprintf(&b, "You have 1 %s email. ", kind)
	} else {
		fmt.Fprintf(&b, "You have %d %s emails. ", len(emails), kind)
	}
	for _, e := range window {
		if e.Urgent {
			b.WriteString("Urgent: ")
		}
		fmt.Fprintf(&b, "From %s: %s. ", e.DisplayName(), subjectOr(e.Subject))
	}
	if len(emails) > recentWindow {
		fmt.Fprintf(&b, "And %d more emails.", len(emails)-recentWindow)
	}
	return strings.TrimSpace(b.String())
}

func (a *Assistant) replyToEmail(ctx context.Context, q string) string {
	if len(a.recent) == 0 {
		return "I don't have any recent emails loaded. Say 'check emails' first."
	}

	target := a.resolveReferent(q)
	if target == nil {
		if len(a.recent) > 1 {
			// Ambiguous: list the candidates instead of guessing.
			names := make([]string, len(a.recent))
			for i, e := range a.recent {
				names[i] = e.DisplayName()
			}
			return fmt.Sprintf("Which email? I have emails from %s. Say 'reply to' followed by the name.",
				strings.Join(names, ", "))
		}
		target = &a.recent[0]
	}

	a.active = target
	a.mode = ModeReplying

	if content := extractReplyContent(q, target); content != "" {
		return a.prepareReply(ctx, content)
	}
	return fmt.Sprintf("What would you like to say to %s?", target.DisplayName())
}

// resolveReferent picks an email from the recent window: explicit ordinals
// first, then a sender name or address local-part mentioned in the query.
// Returns nil when nothing selects unambiguously.
func (a *Assistant) resolveReferent(q string) *models.EmailSummary {
	switch {
	case strings.Contains(q, "latest"), strings.Contains(q, "newest"),
		strings.Contains(q, "most recent"), strings.Contains(q, "first"):
		return &a.recent[0]
	case strings.Contains(q, "second") && len(a.recent) > 1:
		return &a.recent[1]
	case strings.Contains(q, "third") && len(a.recent) > 2:
		return &a.recent[2]
	case strings.Contains(q, "last"):
		return &a.recent[len(a.recent)-1]
	}

	for i := range a.recent {
		e := &a.recent[i]
		if name := strings.ToLower(e.FromName); name != "" && strings.Contains(q, name) {
			return e
		}
		if addr := strings.ToLower(e.From); addr != "" {
			local := addr
			if at := strings.IndexByte(addr, '@'); at > 0 {
				local = addr[:at]
			}
			if local != "" && strings.Contains(q, local) {
				return e
			}
		}
	}
	return nil
}

func (a *Assistant) handleSelection(q string) string {
	target := a.resolveReferent(q)
	if target == nil {
		return "I couldn't find that email. Try saying 'first email' or 'email from' followed by the name."
	}
	a.active = target
	return fmt.Sprintf("Email from %s. Subject: %s. Message: %s. Would you like to reply?",
		target.DisplayName(), subjectOr(target.Subject), target.Excerpt)
}

func (a *Assistant) handleReplyContent(ctx context.Context, q string) string {
	if a.active == nil {
		return "I don't have an email selected. Say 'check emails' first."
	}
	return a.prepareReply(ctx, q)
}

// prepareReply expands the casual text into a formal draft and arms the
// confirmation gate. Only a later affirmative turn actually sends.
func (a *Assistant) prepareReply(ctx context.Context, casual string) string {
	e := a.active
	prompt := fmt.Sprintf(`Convert this casual message into a professional email reply.

Original email subject: %s
From: %s
Original message excerpt: %s

Casual message: "%s"

Generate a formal, professional email reply. Keep it concise (2-4 sentences). Include:
1. Appropriate greeting (Hi/Dear %s)
2. Professional version of the casual message
3. Polite closing (Best regards/Thank you)

Reply:`, subjectOr(e.Subject), e.DisplayName(), clip(e.Excerpt, 200), casual, e.DisplayName())

	body, err := a.gen.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("Failed to generate reply draft", zap.Error(err))
		return fmt.Sprintf("Sorry, I had trouble generating the reply: %v", err)
	}

	subject := e.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subjectOr(subject)
	}
	a.draft = &models.Draft{To: e.From, Subject: subject, Body: body}
	a.pendingConfirm = true

	return fmt.Sprintf("I've prepared this reply: %s. Should I send it? Say yes to send or no to cancel.", body)
}

func (a *Assistant) composeEmail(ctx context.Context, q string) string {
	m := addressPattern.FindStringSubmatch(q)
	if m == nil {
		// No syntactic address; ask rather than guess a recipient.
		a.mode = ModeComposing
		a.draft = nil
		return "Who would you like to email? Please include their email address."
	}

	recipient := strings.Trim(m[1], ".,;:!?")
	content := strings.Trim(q[strings.Index(q, m[1])+len(m[1]):], " ,.:;!?")

	if len(content) < 5 {
		a.mode = ModeComposing
		a.draft = &models.Draft{To: recipient}
		return fmt.Sprintf("What would you like to say to %s?", recipient)
	}
	a.mode = ModeComposing
	a.draft = &models.Draft{To: recipient}
	return a.prepareCompose(ctx, content)
}

func (a *Assistant) handleComposeContent(ctx context.Context, q string) string {
	if a.draft == nil || a.draft.To == "" {
		if addr := bareAddress.FindString(q); addr != "" {
			a.draft = &models.Draft{To: strings.Trim(addr, ".,;:!?")}
			return fmt.Sprintf("What would you like to say to %s?", a.draft.To)
		}
		return "I still need an email address. Who would you like to email?"
	}
	return a.prepareCompose(ctx, q)
}

func (a *Assistant) prepareCompose(ctx context.Context, casual string) string {
	recipient := a.draft.To
	prompt := fmt.Sprintf(`Convert this casual message into a professional email.

Recipient: %s
Casual message: "%s"

Generate a formal, professional email. Keep it concise. Include:
1. Appropriate greeting
2. Professional version of the message
3. Polite closing

Email:`, recipient, casual)

	body, err := a.gen.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("Failed to generate email draft", zap.Error(err))
		return fmt.Sprintf("Sorry, I had trouble composing the email: %v", err)
	}

	a.draft = &models.Draft{To: recipient, Subject: subjectFromContent(casual), Body: body}
	a.pendingConfirm = true
	return fmt.Sprintf("I've prepared this email to %s: %s. Should I send it? Say yes to send or no to cancel.", recipient, body)
}

func (a *Assistant) handleConfirmation(ctx context.Context, q string) string {
	switch {
	case containsAny(q, confirmNo):
		a.Reset()
		return "Okay, I've cancelled the email. What else can I help with?"
	case containsAny(q, confirmYes):
		return a.send(ctx)
	default:
		// Never falls through to intent classification: the gate stays armed
		// until the user says yes or no.
		return "I didn't catch that. Say yes to send or no to cancel."
	}
}

// send performs the one side-effecting transition. State is reset before the
// collaborator call so a repeated "yes" lands in an idle session and can
// never re-send, and a failed send is not retried.
func (a *Assistant) send(ctx context.Context) string {
	draft := a.draft
	a.Reset()
	if draft == nil {
		return "Sorry, I lost the email context. Let's start over."
	}

	if err := a.svc.Send(ctx, draft.To, draft.Subject, draft.Body); err != nil {
		a.logger.Error("Failed to send email",
			zap.Error(err),
			zap.String("to", draft.To))
		return fmt.Sprintf("Sorry, the email failed to send: %v", err)
	}

	name := draft.To
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	return fmt.Sprintf("Email sent to %s!", name)
}

// replyFiller matches selector and reference words that carry no message
// content ("reply to the second one" is a selection, not a reply body).
var replyFiller = regexp.MustCompile(`\b(that|the|first|second|third|last|latest|newest|most|recent|one|email|emails|please)\b`)

func extractReplyContent(q string, target *models.EmailSummary) string {
	content := q
	for _, k := range replyKeywords {
		content = strings.ReplaceAll(content, k, "")
	}
	if target != nil {
		if name := strings.ToLower(target.FromName); name != "" {
			content = strings.ReplaceAll(content, name, "")
		}
		if at := strings.IndexByte(target.From, '@'); at > 0 {
			content = strings.ReplaceAll(content, strings.ToLower(target.From[:at]), "")
		}
	}
	content = bareAddress.ReplaceAllString(content, "")
	content = replyFiller.ReplaceAllString(content, "")
	content = strings.Join(strings.Fields(content), " ")
	content = strings.TrimPrefix(content, "to ")
	content = strings.Trim(content, " ,.:;!?")
	if len(content) > 5 {
		return content
	}
	return ""
}

func subjectFromContent(content string) string {
	words := strings.Fields(content)
	if len(words) > 5 {
		words = words[:5]
	}
	return clip(strings.Join(words, " "), 50)
}

func subjectOr(subject string) string {
	if strings.TrimSpace(subject) == "" {
		return "No subject"
	}
	return subject
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func containsAny(q string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
