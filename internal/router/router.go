// Package router owns the per-turn decision order: a pending schedule
// follow-up claims the turn first, then the fast-response cache, then an
// active email conversation, and only then the keyword classifier and its
// dispatch table. Every turn lands in rolling memory, whichever path answered.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/handler"
	"github.com/novakit/nova/internal/intent"
	"github.com/novakit/nova/internal/models"
	"github.com/novakit/nova/internal/schedule"
	"github.com/novakit/nova/internal/storage"
)

// Classifier maps free text to an intent. Satisfied by *intent.Classifier.
type Classifier interface {
	Classify(text string) intent.Intent
}

// Conversation is a multi-turn flow that can claim utterances while it is
// mid-dialogue, bypassing classification. Satisfied by *email.Assistant.
type Conversation interface {
	Active() bool
	Process(ctx context.Context, utterance string) string
}

// Scheduler arms a deferred task once the tracker has both a description and
// a time. Satisfied by *schedule.Worker.
type Scheduler interface {
	Schedule(ctx context.Context, sessionID string, req *schedule.Request) (string, error)
}

// Reply is a single turn's answer. Exactly one of Text or Chunks is set;
// streamed replies are persisted by the router after the channel closes.
type Reply struct {
	Text   string
	Chunks <-chan string
}

// Options configures a Router. Zero values fall back to sensible defaults.
type Options struct {
	FastReplies    map[string]string
	MaxContext     int
	PendingTTL     time.Duration
	HandlerTimeout time.Duration
	Clock          schedule.Clock
}

const (
	defaultMaxContext     = 10
	defaultHandlerTimeout = 15 * time.Second
)

type session struct {
	mu      sync.Mutex
	id      string
	email   Conversation
	tracker *schedule.Tracker
}

// Router fans user turns out to handlers and keeps per-session state alive
// between turns.
type Router struct {
	classifier  Classifier
	handlers    map[intent.Intent]handler.Handler
	scheduler   Scheduler
	store       storage.Store
	logger      *zap.Logger
	clock       schedule.Clock
	fastReplies map[string]string
	maxContext  int
	pendingTTL  time.Duration
	timeout     time.Duration

	newConversation func(sessionID string) Conversation

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds a Router. newConversation is called once per session to create
// its email flow; handlers maps every classified intent to its executor, with
// intent.Conversation acting as the fallback for unmapped intents.
func New(
	classifier Classifier,
	handlers map[intent.Intent]handler.Handler,
	scheduler Scheduler,
	store storage.Store,
	newConversation func(sessionID string) Conversation,
	logger *zap.Logger,
	opts Options,
) *Router {
	if opts.MaxContext <= 0 {
		opts.MaxContext = defaultMaxContext
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = defaultHandlerTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Router{
		classifier:      classifier,
		handlers:        handlers,
		scheduler:       scheduler,
		store:           store,
		logger:          logger,
		clock:           opts.Clock,
		fastReplies:     opts.FastReplies,
		maxContext:      opts.MaxContext,
		pendingTTL:      opts.PendingTTL,
		timeout:         opts.HandlerTimeout,
		newConversation: newConversation,
		sessions:        make(map[string]*session),
	}
}

// Handle processes one user turn. It never returns an error: failures are
// folded into the reply text so the user always hears something.
func (r *Router) Handle(ctx context.Context, sessionID, utterance string) *Reply {
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(utterance)
	q := strings.ToLower(trimmed)
	if q == "" {
		return &Reply{Text: "I didn't catch that. Could you say it again?"}
	}

	// A parked "remind me to X" waiting on a time gets the next turn
	// before anything else can reinterpret it.
	if s.tracker.HasPending() {
		resp := r.runSchedule(ctx, s, trimmed)
		r.remember(ctx, s.id, trimmed, resp)
		return &Reply{Text: resp}
	}

	if canned, ok := r.fastReplies[q]; ok {
		r.remember(ctx, s.id, trimmed, canned)
		return &Reply{Text: canned}
	}

	if s.email.Active() {
		resp := s.email.Process(ctx, trimmed)
		r.remember(ctx, s.id, trimmed, resp)
		return &Reply{Text: resp}
	}

	it := r.classifier.Classify(trimmed)
	r.logger.Debug("classified utterance",
		zap.String("session_id", s.id),
		zap.String("intent", string(it)))

	var resp string
	switch it {
	case intent.Schedule:
		resp = r.runSchedule(ctx, s, trimmed)
	case intent.Email:
		resp = s.email.Process(ctx, trimmed)
	default:
		h, ok := r.handlers[it]
		if !ok {
			h = r.handlers[intent.Conversation]
		}
		if h == nil {
			resp = "I'm not sure how to help with that."
			break
		}
		if av, isAv := h.(handler.Availability); isAv && !av.Available() {
			resp = av.UnavailableMessage()
			break
		}
		if st, isStream := h.(handler.Streamer); isStream {
			if reply := r.stream(ctx, s.id, trimmed, st); reply != nil {
				return reply
			}
			// Stream setup failed; fall through to the error text set below.
			resp = "Error: I couldn't reach the language model."
			break
		}
		resp = r.execute(ctx, h, it, trimmed)
	}

	r.remember(ctx, s.id, trimmed, resp)
	return &Reply{Text: resp}
}

// ClearSession drops a session's in-memory flows and persisted history.
func (r *Router) ClearSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return r.store.ClearSession(ctx, sessionID)
}

func (r *Router) session(id string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := &session{
		id:      id,
		email:   r.newConversation(id),
		tracker: schedule.NewTracker(r.clock, r.pendingTTL),
	}
	r.sessions[id] = s
	return s
}

func (r *Router) runSchedule(ctx context.Context, s *session, utterance string) string {
	req, resp := s.tracker.Process(utterance)
	if req == nil {
		return resp
	}
	confirmation, err := r.scheduler.Schedule(ctx, s.id, req)
	if err != nil {
		r.logger.Error("failed to arm scheduled task",
			zap.String("session_id", s.id),
			zap.Error(err))
		return fmt.Sprintf("Error: %s", err)
	}
	return confirmation
}

// execute runs a plain handler with a timeout and panic containment. A
// misbehaving handler produces an error line, never a crashed turn.
func (r *Router) execute(ctx context.Context, h handler.Handler, it intent.Intent, command string) (resp string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				zap.String("intent", string(it)),
				zap.Any("panic", rec))
			resp = fmt.Sprintf("Error: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := h.Execute(ctx, command)
	if err != nil {
		r.logger.Warn("handler returned error",
			zap.String("intent", string(it)),
			zap.Error(err))
		return fmt.Sprintf("Error: %s", err)
	}
	return out
}

// stream starts a streaming reply and persists the concatenated text once
// the source channel closes. A cancelled stream is discarded without
// touching memory, so an interrupt never leaves a half-turn behind.
func (r *Router) stream(ctx context.Context, sessionID, utterance string, st handler.Streamer) *Reply {
	history, err := r.store.RecentTurns(ctx, sessionID, r.maxContext)
	if err != nil {
		r.logger.Warn("failed to load conversation history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		history = nil
	}

	src, err := st.Stream(ctx, utterance, history)
	if err != nil {
		r.logger.Error("failed to open stream", zap.Error(err))
		return nil
	}

	out := make(chan string)
	go func() {
		defer close(out)
		var full strings.Builder
		for chunk := range src {
			full.WriteString(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Drain the source so its goroutine can exit, then
				// drop the partial answer.
				for range src {
				}
				return
			}
		}
		if ctx.Err() == nil {
			r.remember(context.WithoutCancel(ctx), sessionID, utterance, full.String())
		}
	}()
	return &Reply{Chunks: out}
}

// remember appends both halves of a turn to rolling memory. Persistence
// failures are logged and swallowed: memory is best-effort, replies are not.
func (r *Router) remember(ctx context.Context, sessionID, utterance, response string) {
	now := r.clock()
	turns := []*models.Turn{
		{ID: uuid.NewString(), SessionID: sessionID, Role: models.RoleUser, Content: utterance, CreatedAt: now},
		{ID: uuid.NewString(), SessionID: sessionID, Role: models.RoleAssistant, Content: response, CreatedAt: now},
	}
	for _, turn := range turns {
		if err := r.store.AppendTurn(ctx, turn); err != nil {
			r.logger.Warn("failed to persist turn",
				zap.String("session_id", sessionID),
				zap.String("role", turn.Role),
				zap.Error(err))
		}
	}
}
