package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTP sends notifications as plain-text email.
type SMTP struct {
	addr string
	from string
	to   []string
	auth smtp.Auth
}

// NewSMTP returns an email notifier. user may be empty to skip authentication.
func NewSMTP(addr, from string, to []string, user, pass string) *SMTP {
	s := &SMTP{addr: addr, from: from, to: to}

	if user != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		s.auth = smtp.PlainAuth("", user, pass, host)
	}

	return s
}

// Send implements Notifier.
func (s *SMTP) Send(subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	if err := smtp.SendMail(s.addr, s.auth, s.from, s.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", s.addr, err)
	}

	return nil
}
