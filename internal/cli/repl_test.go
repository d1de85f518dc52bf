package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/router"
)

type fakeEngine struct {
	reply *router.Reply
}

func (e *fakeEngine) Handle(ctx context.Context, sessionID, utterance string) *router.Reply {
	return e.reply
}

func newTestREPL(reply *router.Reply) (*REPL, *bytes.Buffer) {
	var buf bytes.Buffer
	r := New(&fakeEngine{reply: reply}, "test", "Nova", zap.NewNop())
	r.out = &buf
	return r, &buf
}

func TestPrintTextReply(t *testing.T) {
	r, buf := newTestREPL(&router.Reply{Text: "It is sunny."})
	r.turn(context.Background(), "weather in paris")
	assert.Equal(t, "Nova> It is sunny.\n\n", buf.String())
}

func TestPrintStreamedReply(t *testing.T) {
	ch := make(chan string, 3)
	ch <- "Hello, "
	ch <- "world."
	close(ch)

	r, buf := newTestREPL(&router.Reply{Chunks: ch})
	r.turn(context.Background(), "say hi")
	assert.Equal(t, "Nova> Hello, world.\n\n", buf.String())
}

func TestCancelledStreamMarked(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "partial"
	close(ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, buf := newTestREPL(nil)
	r.print(ctx, &router.Reply{Chunks: ch})
	assert.Contains(t, buf.String(), "[cancelled]")
}
