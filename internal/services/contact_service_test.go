package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/events"
	"github.com/maxg-dev/santiscl/internal/platform/mailer"
	"github.com/maxg-dev/santiscl/internal/platform/pagination"
)

type stubContactRepository struct {
	created []domain.ContactMessage
	pager   domain.Pagination
	page    domain.CursorPage[domain.ContactMessage]
	err     error
}

func (s *stubContactRepository) Create(_ context.Context, msg domain.ContactMessage) (domain.ContactMessage, error) {
	if s.err != nil {
		return domain.ContactMessage{}, s.err
	}
	msg.ID = "c1"
	s.created = append(s.created, msg)
	return msg, nil
}

func (s *stubContactRepository) List(_ context.Context, pager domain.Pagination) (domain.CursorPage[domain.ContactMessage], error) {
	s.pager = pager
	return s.page, s.err
}

type stubMailer struct {
	sent []mailer.Message
	err  error
}

func (s *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestContactServiceSubmitStoresPublishesAndNotifies(t *testing.T) {
	repo := &stubContactRepository{}
	pub := &recordingPublisher{}
	mail := &stubMailer{}
	svc, err := NewContactService(ContactServiceDeps{
		Contacts:      repo,
		Events:        pub,
		Mailer:        mail,
		NotifyAddress: "tienda@santis.cl",
		Clock:         fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewContactService: %v", err)
	}

	msg, err := svc.Submit(context.Background(), SubmitContactCommand{
		Name:    "  Ana   Pérez ",
		Email:   " Ana@Example.CL ",
		Message: "¿Tienen la torre en color blanco?",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if msg.Name != "Ana Pérez" || msg.Email != "ana@example.cl" {
		t.Fatalf("unexpected normalisation %+v", msg)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeContactReceived || pub.events[0].Subject != "c1" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(mail.sent))
	}
	sent := mail.sent[0]
	if sent.ToEmail != "tienda@santis.cl" || sent.ReplyTo != "ana@example.cl" || !strings.Contains(sent.Text, "torre en color blanco") {
		t.Fatalf("unexpected notification %+v", sent)
	}
}

func TestContactServiceSubmitValidation(t *testing.T) {
	repo := &stubContactRepository{}
	svc, err := NewContactService(ContactServiceDeps{Contacts: repo})
	if err != nil {
		t.Fatalf("NewContactService: %v", err)
	}
	_, err = svc.Submit(context.Background(), SubmitContactCommand{Name: "Ana", Email: "no-es-correo", Message: "corto"})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if inputErr.Fields["email"] == "" || inputErr.Fields["message"] == "" {
		t.Fatalf("expected email and message errors, got %v", inputErr.Fields)
	}
	if len(repo.created) != 0 {
		t.Fatal("invalid submissions must not be stored")
	}
}

func TestContactServiceNotificationFailureIsLogged(t *testing.T) {
	logs := &eventLog{}
	svc, err := NewContactService(ContactServiceDeps{
		Contacts:      &stubContactRepository{},
		Mailer:        &stubMailer{err: errors.New("sendgrid: status 401")},
		NotifyAddress: "tienda@santis.cl",
		Logger:        logs.hook(),
	})
	if err != nil {
		t.Fatalf("NewContactService: %v", err)
	}
	if _, err := svc.Submit(context.Background(), SubmitContactCommand{Name: "Ana", Email: "ana@example.cl", Message: "Hola, quisiera cotizar."}); err != nil {
		t.Fatalf("Submit must succeed when email fails: %v", err)
	}
	if _, ok := logs.find("contact.notification_failed"); !ok {
		t.Fatal("expected notification failure log")
	}
}

func TestContactServiceListClampsPageSize(t *testing.T) {
	repo := &stubContactRepository{page: domain.CursorPage[domain.ContactMessage]{NextPageToken: "next"}}
	svc, err := NewContactService(ContactServiceDeps{Contacts: repo})
	if err != nil {
		t.Fatalf("NewContactService: %v", err)
	}
	page, err := svc.List(context.Background(), domain.Pagination{PageSize: 1000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.pager.PageSize != pagination.MaxPageSize || page.NextPageToken != "next" {
		t.Fatalf("unexpected pager %+v page %+v", repo.pager, page)
	}

	repo.err = pagination.ErrInvalidPageToken
	if _, err := svc.List(context.Background(), domain.Pagination{PageToken: "%%"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad token, got %v", err)
	}
}
