package handlers

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// ExecRunner launches applications as detached OS processes. It is the
// default Runner; anything smarter (window focus, graceful shutdown) belongs
// to an external desktop-control collaborator.
type ExecRunner struct{}

func (ExecRunner) Launch(ctx context.Context, app string) error {
	cmd := exec.CommandContext(ctx, app)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", app, err)
	}
	// Detach: the assistant does not supervise launched applications.
	go func() { _ = cmd.Wait() }()
	return nil
}

func (ExecRunner) Close(ctx context.Context, app string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "taskkill", "/IM", app+".exe", "/F")
	} else {
		cmd = exec.CommandContext(ctx, "pkill", "-x", app)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("closing %s: %w (%s)", app, err, out)
	}
	return nil
}
