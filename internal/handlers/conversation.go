package handlers

import (
	"context"

	"github.com/novakit/nova/internal/llm"
	"github.com/novakit/nova/internal/models"
)

// Conversation is the open-ended fallback handler: everything no rule
// claims goes to the language model with the rolling context attached.
type Conversation struct {
	gen llm.Generator
}

func NewConversation(gen llm.Generator) *Conversation {
	return &Conversation{gen: gen}
}

func (c *Conversation) Execute(ctx context.Context, command string) (string, error) {
	return c.gen.Complete(ctx, command)
}

// Stream produces the reply lazily so the caller can print as it arrives
// and abandon it on cancellation.
func (c *Conversation) Stream(ctx context.Context, command string, history []models.Turn) (<-chan string, error) {
	return c.gen.Stream(ctx, command, history)
}
