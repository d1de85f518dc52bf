package handler

import (
	"context"
	"fmt"

	"github.com/novakit/nova/internal/models"
)

// Handler is the single contract every action family implements: one raw
// command string in, user-facing text out. Handlers do their own argument
// parsing and return error text inline when they can phrase it for the user;
// a returned error is converted to a generic message at the router boundary.
type Handler interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Streamer is implemented by handlers that produce their response lazily
// (generative replies). Each call starts a fresh, finite chunk sequence; the
// channel is closed when the response is complete or the context is done.
type Streamer interface {
	Stream(ctx context.Context, command string, history []models.Turn) (<-chan string, error)
}

// Availability lets a handler advertise that its backing feature is not
// configured. The router checks this before dispatch instead of interpreting
// a failed call as "feature missing".
type Availability interface {
	Available() bool
	// UnavailableMessage is what the user hears when Available is false.
	UnavailableMessage() string
}

// Func adapts a plain function to the Handler interface.
type Func func(ctx context.Context, command string) (string, error)

func (f Func) Execute(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

// Unavailable is a permanently-unconfigured handler that tells the user how
// to enable the feature rather than failing mid-call.
type Unavailable struct {
	Feature string
	Hint    string
}

func (u Unavailable) Available() bool { return false }

func (u Unavailable) UnavailableMessage() string {
	if u.Hint != "" {
		return fmt.Sprintf("%s is not set up. %s", u.Feature, u.Hint)
	}
	return fmt.Sprintf("%s is not set up.", u.Feature)
}

func (u Unavailable) Execute(ctx context.Context, command string) (string, error) {
	return u.UnavailableMessage(), nil
}
