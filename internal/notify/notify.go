// DamifeZion | 2026
// notify.go

package notify

import (
	"context"
)

const (
	TemplateResetPassword     = "reset_password"
	TemplateEmailVerification = "email_verification"
	TemplateWelcome           = "welcome"
)

// Email is an outbound mail event. The mail worker owns rendering; the
// service only names the template and supplies its data.
type Email struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// Notifier delivers email events. Callers treat delivery as
// fire-and-forget: a failed send is logged, never rolled back into the
// operation that requested it.
type Notifier interface {
	Send(ctx context.Context, email Email) error
	Close() error
}
