package application

import "context"

// Notifier hands verification and reset emails to the outbound mail system.
// A nil error means the send attempt was accepted, not that mail was delivered.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string) error
}
