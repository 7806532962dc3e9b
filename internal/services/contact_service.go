package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/format"
	"github.com/maxg-dev/santiscl/internal/platform/events"
	"github.com/maxg-dev/santiscl/internal/platform/mailer"
	"github.com/maxg-dev/santiscl/internal/platform/pagination"
	"github.com/maxg-dev/santiscl/internal/platform/textutil"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

// ContactServiceDeps bundles collaborators for the contact form.
type ContactServiceDeps struct {
	Contacts repositories.ContactRepository
	Events   events.Publisher
	Mailer   mailer.Mailer
	// NotifyAddress receives a copy of every message. Empty disables notifications.
	NotifyAddress string
	Clock         func() time.Time
	Logger        func(context.Context, string, map[string]any)
}

type contactService struct {
	repo     repositories.ContactRepository
	events   events.Publisher
	mailer   mailer.Mailer
	notifyTo string
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ ContactService = (*contactService)(nil)

// NewContactService constructs the contact service.
func NewContactService(deps ContactServiceDeps) (ContactService, error) {
	if deps.Contacts == nil {
		return nil, errors.New("contact service: contact repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	m := deps.Mailer
	if m == nil {
		m = mailer.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &contactService{
		repo:     deps.Contacts,
		events:   publisher,
		mailer:   m,
		notifyTo: strings.TrimSpace(deps.NotifyAddress),
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *contactService) Submit(ctx context.Context, cmd SubmitContactCommand) (ContactMessage, error) {
	cmd.Name = textutil.CollapseSpaces(cmd.Name)
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.Subject = textutil.CollapseSpaces(cmd.Subject)
	cmd.Message = strings.TrimSpace(cmd.Message)
	if err := validateStruct(cmd); err != nil {
		return ContactMessage{}, err
	}

	stored, err := s.repo.Create(ctx, ContactMessage{
		Name:    cmd.Name,
		Email:   cmd.Email,
		Subject: cmd.Subject,
		Message: cmd.Message,
	})
	if err != nil {
		return ContactMessage{}, mapRepositoryError(err, nil)
	}

	if _, err := s.events.Publish(ctx, events.Event{
		Type:       events.TypeContactReceived,
		Subject:    stored.ID,
		OccurredAt: s.clock(),
		Data:       map[string]string{"email": stored.Email},
	}); err != nil {
		s.logger(ctx, "contact.event_publish_failed", map[string]any{"messageId": stored.ID, "error": err})
	}
	s.notify(ctx, stored)
	return stored, nil
}

func (s *contactService) List(ctx context.Context, pager Pagination) (domain.CursorPage[ContactMessage], error) {
	if pager.PageSize <= 0 {
		pager.PageSize = pagination.DefaultPageSize
	}
	if pager.PageSize > pagination.MaxPageSize {
		pager.PageSize = pagination.MaxPageSize
	}
	page, err := s.repo.List(ctx, pager)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.CursorPage[ContactMessage]{}, invalidField("pageToken", "no es válido")
		}
		return domain.CursorPage[ContactMessage]{}, mapRepositoryError(err, nil)
	}
	return page, nil
}

func (s *contactService) notify(ctx context.Context, msg ContactMessage) {
	if s.notifyTo == "" {
		return
	}
	subject := msg.Subject
	if subject == "" {
		subject = "Nuevo mensaje de contacto"
	}
	body := fmt.Sprintf("Nombre: %s\nCorreo: %s\nFecha: %s\n\n%s", msg.Name, msg.Email, format.Date(msg.CreatedAt), msg.Message)
	err := s.mailer.Send(ctx, mailer.Message{
		ToEmail: s.notifyTo,
		ReplyTo: msg.Email,
		Subject: textutil.Truncate("Contacto: "+subject, 150),
		Text:    body,
	})
	if err != nil {
		s.logger(ctx, "contact.notification_failed", map[string]any{"messageId": msg.ID, "error": err})
	}
}
