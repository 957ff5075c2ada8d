package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/subtrackr/subtrackr/internal/conf"
)

type captureTransport struct {
	sent []*MailMessage
	err  error
}

func (t *captureTransport) Send(_ context.Context, msg *MailMessage) error {
	t.sent = append(t.sent, msg)
	return t.err
}

func TestEmailAdapterSend(t *testing.T) {
	t.Parallel()

	transport := &captureTransport{}
	adapter := NewEmailAdapterWithTransport(transport, nil)

	if !adapter.Ready() {
		t.Fatal("email adapter should always be ready")
	}

	rem := &Reminder{
		SubscriptionName: "Netflix",
		DueDate:          time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		Amount:           15.99,
	}
	msg := NewReminderMessage(rem, "https://example.com")
	msg.To = "alice@example.com"

	if err := adapter.Send(context.Background(), msg); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(transport.sent))
	}

	got := transport.sent[0]
	if got.To != "alice@example.com" {
		t.Errorf("to = %q", got.To)
	}
	if got.Subject != "Reminder: Netflix payment due soon" {
		t.Errorf("subject = %q", got.Subject)
	}
	if !strings.Contains(got.Text, "$15.99") {
		t.Errorf("text body missing amount: %q", got.Text)
	}
	if !strings.Contains(got.Text, "Monday, September 7, 2026") {
		t.Errorf("text body missing formatted due date: %q", got.Text)
	}
	if !strings.Contains(got.HTML, "<strong>Netflix</strong>") {
		t.Errorf("html body missing subscription name: %q", got.HTML)
	}
}

func TestEmailAdapterSendNoRecipient(t *testing.T) {
	t.Parallel()

	transport := &captureTransport{}
	adapter := NewEmailAdapterWithTransport(transport, nil)

	if err := adapter.Send(context.Background(), &Message{Title: "t", Body: "b"}); err == nil {
		t.Error("expected error for missing recipient")
	}
	if len(transport.sent) != 0 {
		t.Errorf("transport should not be called, sent %d", len(transport.sent))
	}
}

func TestEmailAdapterSubjectFallback(t *testing.T) {
	t.Parallel()

	transport := &captureTransport{}
	adapter := NewEmailAdapterWithTransport(transport, nil)

	msg := &Message{Title: "Fallback Title", Body: "fallback body", To: "bob@example.com"}
	if err := adapter.Send(context.Background(), msg); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := transport.sent[0]; got.Subject != "Fallback Title" || got.Text != "fallback body" {
		t.Errorf("subject/text fallback = %q / %q", got.Subject, got.Text)
	}
}

func TestNewEmailAdapterLogFallback(t *testing.T) {
	t.Parallel()

	// no SMTP host configured selects the log transport, and deliveries
	// through it still succeed
	adapter := NewEmailAdapter(&conf.SMTPSettings{}, nil)
	msg := NewTestMessage()
	msg.To = "carol@example.com"
	if err := adapter.Send(context.Background(), msg); err != nil {
		t.Errorf("log transport send should succeed, got %v", err)
	}
}
