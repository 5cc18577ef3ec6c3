package notify

import (
	"context"
	"fmt"

	"bakehouse/config"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is a single transactional e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the provider named in cfg.
func New(cfg config.Mail, logger *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "postmark":
		return NewPostmark(cfg.PostmarkToken, cfg.From), nil
	case "sendgrid":
		return NewSendGrid(cfg.SendGridKey, cfg.From), nil
	case "log", "":
		return NewLog(logger), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
}

// Postmark sends through the Postmark API.
type Postmark struct {
	client *postmark.Client
	from   string
}

func NewPostmark(serverToken, from string) *Postmark {
	return &Postmark{client: postmark.NewClient(serverToken, ""), from: from}
}

func (p *Postmark) Send(ctx context.Context, msg Message) error {
	_, err := p.client.SendEmail(postmark.Email{
		From:     p.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTML,
		TextBody: msg.Text,
		Tag:      msg.Tag,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	return nil
}

// SendGrid sends through the SendGrid v3 API.
type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGrid(apiKey, from string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Bakehouse", from),
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
	if msg.Tag != "" {
		m.AddCategories(msg.Tag)
	}
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Log only writes the message to the logger. Used in development.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	l.logger.Info("mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
	)
	return nil
}
