package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/maxg-dev/santiscl/internal/platform/config"
)

type fakeClient struct {
	resp *rest.Response
	err  error
	sent *mail.SGMailV3
}

func (f *fakeClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = email
	return f.resp, f.err
}

func TestSendGridSendsMessage(t *testing.T) {
	client := &fakeClient{resp: &rest.Response{StatusCode: 202}}
	m := &SendGrid{client: client, fromName: "Santis", fromEmail: "tienda@santis.cl"}

	err := m.Send(context.Background(), Message{
		ToEmail: "owner@santis.cl",
		ReplyTo: "ana@example.com",
		Subject: "Nuevo mensaje de contacto",
		Text:    "Hola",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.sent == nil || client.sent.Subject != "Nuevo mensaje de contacto" {
		t.Fatalf("unexpected message %+v", client.sent)
	}
	if client.sent.From.Address != "tienda@santis.cl" {
		t.Fatalf("unexpected sender %+v", client.sent.From)
	}
	if client.sent.ReplyTo == nil || client.sent.ReplyTo.Address != "ana@example.com" {
		t.Fatalf("expected reply-to to be set")
	}
}

func TestSendGridReportsFailures(t *testing.T) {
	m := &SendGrid{client: &fakeClient{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}}, fromEmail: "a@b.cl"}
	err := m.Send(context.Background(), Message{ToEmail: "x@y.cl"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}

	m = &SendGrid{client: &fakeClient{err: errors.New("network")}, fromEmail: "a@b.cl"}
	if err := m.Send(context.Background(), Message{ToEmail: "x@y.cl"}); err == nil {
		t.Fatal("expected transport error")
	}

	if err := m.Send(context.Background(), Message{}); err == nil {
		t.Fatal("expected missing recipient error")
	}
}

func TestNewSendGridValidatesConfig(t *testing.T) {
	if _, err := NewSendGrid(config.MailConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewSendGrid(config.MailConfig{SendGridAPIKey: "SG.x"}); err == nil {
		t.Fatal("expected error without from address")
	}
	if _, err := NewSendGrid(config.MailConfig{SendGridAPIKey: "SG.x", FromAddress: "a@b.cl"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
