package notification

import (
	"context"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/errors"
)

// MailMessage is a rendered outbound email.
type MailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// MailTransport submits rendered emails. The SMTP transport is swapped for a
// log-only one when no mail host is configured, so reminder flows behave the
// same in development as in production.
type MailTransport interface {
	Send(ctx context.Context, msg *MailMessage) error
}

type smtpTransport struct {
	client *mail.Client
	from   string
}

func newSMTPTransport(cfg *conf.SMTPSettings) (*smtpTransport, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.StartTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("smtp_host", cfg.Host).
			Build()
	}
	return &smtpTransport{client: client, from: cfg.From}, nil
}

func (t *smtpTransport) Send(ctx context.Context, msg *MailMessage) error {
	m := mail.NewMsg()
	if err := m.From(t.from); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("from", t.from).
			Build()
	}
	if err := m.To(msg.To); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryValidation).
			Context("to", msg.To).
			Build()
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryMailDelivery).
			Context("to", msg.To).
			Build()
	}
	return nil
}

// logTransport records the email instead of sending it. Deliveries through it
// still count as accepted.
type logTransport struct {
	log *slog.Logger
}

func (t *logTransport) Send(_ context.Context, msg *MailMessage) error {
	t.log.Info("mail transport not configured, logging email instead",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// EmailAdapter delivers reminder emails. It needs no per-user credentials, so
// it is always initialized and ready.
type EmailAdapter struct {
	transport MailTransport
	log       *slog.Logger
}

// NewEmailAdapter builds the email adapter from SMTP settings, falling back
// to the log-only transport when no host is configured or the client cannot
// be constructed.
func NewEmailAdapter(cfg *conf.SMTPSettings, log *slog.Logger) *EmailAdapter {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Host == "" {
		return &EmailAdapter{transport: &logTransport{log: log}, log: log}
	}

	transport, err := newSMTPTransport(cfg)
	if err != nil {
		log.Warn("failed to create mail client, falling back to log transport", "error", err)
		return &EmailAdapter{transport: &logTransport{log: log}, log: log}
	}
	return &EmailAdapter{transport: transport, log: log}
}

// NewEmailAdapterWithTransport builds an email adapter around an explicit
// transport.
func NewEmailAdapterWithTransport(transport MailTransport, log *slog.Logger) *EmailAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &EmailAdapter{transport: transport, log: log}
}

func (a *EmailAdapter) Name() Channel { return ChannelEmail }

func (a *EmailAdapter) Initialize(Credentials) error { return nil }

func (a *EmailAdapter) Ready() bool { return true }

func (a *EmailAdapter) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return errors.Newf("no recipient address for email notification").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	subject := msg.Subject
	if subject == "" {
		subject = msg.Title
	}
	text := msg.Text
	if text == "" {
		text = msg.Body
	}

	return a.transport.Send(ctx, &MailMessage{
		To:      msg.To,
		Subject: subject,
		Text:    text,
		HTML:    msg.HTML,
	})
}
