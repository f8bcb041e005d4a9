// DamifeZion | 2026
// noop.go

package notify

import (
	"context"
	"log/slog"
)

// Noop stands in when no broker is configured. It logs the event so
// local development still shows what would have been sent.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Send(_ context.Context, email Email) error {
	slog.Info("mailer disabled, dropping email event",
		"to", email.To,
		"template", email.Template,
	)
	return nil
}

func (n *Noop) Close() error {
	return nil
}
