package dispatch

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailChannel delivers applications over SMTP.
type EmailChannel struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Deliver(ctx context.Context, d Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.Recipient == "" {
		return fmt.Errorf("email delivery for application %s has no recipient", d.ApplicationID)
	}

	subject := d.Subject
	if subject == "" {
		subject = fmt.Sprintf("Application: %s at %s", d.PostingTitle, d.Company)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", d.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(d.CoverLetter)
	if d.CoverLetter != "" && d.Message != "" {
		b.WriteString("\r\n\r\n")
	}
	b.WriteString(d.Message)

	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}

	sendFn := e.send
	if sendFn == nil {
		sendFn = smtp.SendMail
	}
	if err := sendFn(addr, auth, e.From, []string{d.Recipient}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
