package email

import "context"

// Unconfigured stands in for the assistant when no mail service is connected.
// It never claims a turn and answers every email request the same way.
type Unconfigured struct{}

func (Unconfigured) Active() bool { return false }

func (Unconfigured) Process(_ context.Context, _ string) string {
	return "Email is not set up. Connect a mail account in the configuration to check or send email."
}
