// Package mailer delivers transactional email. The service layer depends on
// the Notifier interface only; delivery failures are reported to the caller
// and never roll back the operation that triggered them.
package mailer

import "context"

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Notifier sends a rendered email.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}
