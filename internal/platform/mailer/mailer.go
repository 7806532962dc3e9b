package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/maxg-dev/santiscl/internal/platform/config"
)

// Message is a plain notification email.
type Message struct {
	ToName  string
	ToEmail string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers messages through the SendGrid v3 API.
type SendGrid struct {
	client    sendClient
	fromName  string
	fromEmail string
}

// NewSendGrid constructs a SendGrid mailer from the mail configuration.
func NewSendGrid(cfg config.MailConfig) (*SendGrid, error) {
	if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
		return nil, errors.New("mailer: sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, errors.New("mailer: from address is required")
	}
	return &SendGrid{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromAddress,
	}, nil
}

// Send implements Mailer.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("mailer: recipient is required")
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	if reply := strings.TrimSpace(msg.ReplyTo); reply != "" {
		email.SetReplyTo(mail.NewEmail("", reply))
	}

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailer: sendgrid status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// Nop discards messages. It is used when no SendGrid key is configured.
type Nop struct{}

// Send implements Mailer.
func (Nop) Send(context.Context, Message) error { return nil }
