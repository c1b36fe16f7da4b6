package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"roombook/pkg/logger"

	"github.com/google/uuid"
)

type Email struct {
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// New picks SMTP when a host is configured and falls back to logging.
func New(host string, port int, username, password, from string, log *logger.Logger) Mailer {
	if host == "" {
		log.Info("SMTP host not set, emails will only be logged")
		return NewLogMailer(log)
	}
	return NewSMTPMailer(host, port, username, password, from, log)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
	log  *logger.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, log *logger.Logger) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + strconv.Itoa(port),
		from: from,
		auth: auth,
		send: smtp.SendMail,
		log:  log,
	}
}

// Send gives up waiting when ctx ends; net/smtp itself has no cancellation,
// so the dial may finish in the background.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	msg := m.compose(email)

	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr, m.auth, m.from, email.To, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", m.addr, err)
		}
		m.log.Debug("Email sent", "to", email.To, "subject", email.Subject)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", m.addr, ctx.Err())
	}
}

func (m *SMTPMailer) compose(email Email) []byte {
	to := make([]string, len(email.To))
	for i, addr := range email.To {
		to[i] = headerValue(addr)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(m.from))
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerValue(email.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@roombook>\r\n", uuid.New().String())
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// headerValue strips line breaks so user input cannot add headers.
func headerValue(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("Email", "to", email.To, "subject", email.Subject, "body", email.Body)
	return nil
}
