package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"roombook/pkg/logger"
)

func TestSMTPMailer_Compose(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "", "", "rooms@example.com", logger.Discard())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), Email{
		To:      []string{"asha@example.com"},
		Subject: "Booking confirmed\r\nBcc: evil@example.com",
		Body:    "line one\nline two",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("unexpected addr %s", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "asha@example.com" {
		t.Errorf("unexpected recipients %v", gotTo)
	}
	if strings.Contains(gotMsg, "\r\nBcc:") {
		t.Error("subject line break must not create a header")
	}
	if !strings.Contains(gotMsg, "line one\r\nline two") {
		t.Error("body lines should use CRLF")
	}
}

func TestSMTPMailer_Errors(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "user", "pass", "rooms@example.com", logger.Discard())

	if err := m.Send(context.Background(), Email{}); err == nil {
		t.Error("expected error without recipients")
	}

	refused := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return refused }
	if err := m.Send(context.Background(), Email{To: []string{"a@b.co"}}); !errors.Is(err, refused) {
		t.Errorf("expected wrapped send error, got %v", err)
	}

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Send(ctx, Email{To: []string{"a@b.co"}}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestNew_FallsBackToLog(t *testing.T) {
	if _, ok := New("", 587, "", "", "rooms@example.com", logger.Discard()).(*LogMailer); !ok {
		t.Error("expected LogMailer without SMTP host")
	}
	if _, ok := New("smtp.example.com", 587, "", "", "rooms@example.com", logger.Discard()).(*SMTPMailer); !ok {
		t.Error("expected SMTPMailer with SMTP host")
	}
}
