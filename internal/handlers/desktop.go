package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Runner launches or closes a named application. The real implementation
// shells out to the OS; tests substitute a fake.
type Runner interface {
	Launch(ctx context.Context, app string) error
	Close(ctx context.Context, app string) error
}

// Desktop handles immediate open/launch/close commands. Whether it may act
// at all is an explicit capability (Enabled), checked by the router before
// dispatch, not discovered through a failed call.
type Desktop struct {
	runner  Runner
	enabled bool
	allowed map[string]struct{}
	blocked map[string]struct{}
	logger  *zap.Logger
}

type DesktopConfig struct {
	Enabled     bool
	AllowedApps []string // empty = allow all
	BlockedApps []string
}

func NewDesktop(runner Runner, cfg DesktopConfig, logger *zap.Logger) *Desktop {
	d := &Desktop{
		runner:  runner,
		enabled: cfg.Enabled,
		allowed: make(map[string]struct{}, len(cfg.AllowedApps)),
		blocked: make(map[string]struct{}, len(cfg.BlockedApps)),
		logger:  logger,
	}
	for _, a := range cfg.AllowedApps {
		d.allowed[strings.ToLower(a)] = struct{}{}
	}
	for _, a := range cfg.BlockedApps {
		d.blocked[strings.ToLower(a)] = struct{}{}
	}
	return d
}

func (d *Desktop) Available() bool { return d.enabled && d.runner != nil }

func (d *Desktop) UnavailableMessage() string {
	return "Desktop control is disabled. Enable it in the configuration to open and close applications."
}

func (d *Desktop) Execute(ctx context.Context, command string) (string, error) {
	verb, app := splitDesktopCommand(command)
	if app == "" {
		return "Which application should I act on?", nil
	}
	if !d.permitted(app) {
		return fmt.Sprintf("I'm not allowed to control %s.", app), nil
	}

	switch verb {
	case "close":
		if err := d.runner.Close(ctx, app); err != nil {
			d.logger.Error("Failed to close application", zap.Error(err), zap.String("app", app))
			return fmt.Sprintf("I couldn't close %s: %v", app, err), nil
		}
		return fmt.Sprintf("Closed %s.", app), nil
	default:
		if err := d.runner.Launch(ctx, app); err != nil {
			d.logger.Error("Failed to launch application", zap.Error(err), zap.String("app", app))
			return fmt.Sprintf("I couldn't open %s: %v", app, err), nil
		}
		return fmt.Sprintf("Opening %s.", app), nil
	}
}

func (d *Desktop) permitted(app string) bool {
	key := strings.ToLower(app)
	if _, bad := d.blocked[key]; bad {
		return false
	}
	if len(d.allowed) == 0 {
		return true
	}
	_, ok := d.allowed[key]
	return ok
}

func splitDesktopCommand(command string) (verb, app string) {
	q := strings.ToLower(strings.TrimSpace(command))
	for _, v := range []string{"open", "launch", "start", "close", "run"} {
		if rest, ok := strings.CutPrefix(q, v+" "); ok {
			app = strings.Trim(rest, "?., ")
			app = strings.TrimPrefix(app, "the ")
			if v == "launch" || v == "start" || v == "run" {
				v = "open"
			}
			return v, strings.TrimSpace(app)
		}
	}
	// Verb buried mid-sentence ("please open notepad").
	for _, v := range []string{"open ", "launch ", "start ", "close "} {
		if idx := strings.Index(q, v); idx >= 0 {
			verb = strings.TrimSpace(v)
			app = strings.Trim(q[idx+len(v):], "?., ")
			app = strings.TrimPrefix(app, "the ")
			if verb != "close" {
				verb = "open"
			}
			return verb, strings.TrimSpace(app)
		}
	}
	return "", ""
}
