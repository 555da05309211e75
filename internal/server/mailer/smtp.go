package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier delivers mail over a plain SMTP submission endpoint.
type SMTPNotifier struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPNotifier configures delivery via host:port. If username is empty,
// the connection is unauthenticated (local relay / mailpit during dev).
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	n := &SMTPNotifier{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

func (n *SMTPNotifier) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.HTML)

	if err := sendMail(n.addr, n.auth, n.from, []string{email.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
