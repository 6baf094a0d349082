// Package mail delivers directory email: verification codes for new
// accounts. SMTPMailer talks to a relay; LogMailer only logs, for nodes
// without one.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/directory"
)

// sendMail is a seam for tests.
var sendMail = smtp.SendMail

// SMTPMailer sends each message through one SMTP relay. Auth is PLAIN and
// only used when a user is configured.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger logging.Logger
}

func NewSMTPMailer(addr, from, user, password string, l logging.Logger) (*SMTPMailer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("bad smtp address %q: %w", addr, err)
	}
	m := &SMTPMailer{addr: addr, from: from, logger: l.With("module", "mail")}
	if user != "" {
		m.auth = smtp.PlainAuth("", user, password, host)
	}
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg directory.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("mail: header contains line break")
	}

	if err := sendMail(m.addr, m.auth, m.from, []string{msg.To}, compose(m.from, msg)); err != nil {
		m.logger.Error(ctx, "smtp send failed", "to", msg.To, "err", err)
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Info(ctx, "mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// compose renders an RFC 5322 message with CRLF line endings.
func compose(from string, msg directory.Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(l logging.Logger) *LogMailer {
	return &LogMailer{logger: l.With("module", "mail")}
}

func (m *LogMailer) Send(ctx context.Context, msg directory.Message) error {
	m.logger.Info(ctx, "mail not sent, no smtp relay configured", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
