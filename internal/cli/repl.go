// Package cli is the interactive text loop: read a line, run it through the
// router, print the reply. Ctrl-C during a streamed answer cancels that turn
// only; conversation state is untouched because cancelled streams are never
// persisted or interpreted.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/router"
)

// Engine is the router surface the REPL needs. Satisfied by *router.Router.
type Engine interface {
	Handle(ctx context.Context, sessionID, utterance string) *router.Reply
}

var exitWords = map[string]struct{}{
	"exit":    {},
	"quit":    {},
	"goodbye": {},
}

type REPL struct {
	engine    Engine
	sessionID string
	name      string
	logger    *zap.Logger
	out       io.Writer
}

func New(engine Engine, sessionID, name string, logger *zap.Logger) *REPL {
	return &REPL{
		engine:    engine,
		sessionID: sessionID,
		name:      name,
		logger:    logger,
		out:       os.Stdout,
	}
}

// Run blocks until the user exits or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	homeDir, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "you> ",
		HistoryFile:       filepath.Join(homeDir, ".nova-history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(r.out, "%s is listening. Say 'exit' or 'goodbye' to quit.\n\n", r.name)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		input, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			continue
		} else if err == io.EOF {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		} else if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if _, ok := exitWords[strings.ToLower(input)]; ok {
			fmt.Fprintln(r.out, "Goodbye! Have a great day!")
			return nil
		}

		r.turn(ctx, input)
	}
}

// turn runs one utterance through the engine and prints the reply. A SIGINT
// while a stream is printing cancels just this turn.
func (r *REPL) turn(ctx context.Context, input string) {
	turnCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	reply := r.engine.Handle(turnCtx, r.sessionID, input)
	r.print(turnCtx, reply)
}

func (r *REPL) print(ctx context.Context, reply *router.Reply) {
	if reply.Chunks == nil {
		fmt.Fprintf(r.out, "%s> %s\n\n", r.name, reply.Text)
		return
	}

	fmt.Fprintf(r.out, "%s> ", r.name)
	for chunk := range reply.Chunks {
		fmt.Fprint(r.out, chunk)
	}
	if ctx.Err() != nil {
		fmt.Fprint(r.out, " [cancelled]")
	}
	fmt.Fprint(r.out, "\n\n")
}
