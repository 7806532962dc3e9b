package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/maxg-dev/santiscl/internal/domain"
	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
	"github.com/maxg-dev/santiscl/internal/platform/pagination"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const contactMessagesCollection = "contact_messages"

type contactDocument struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Subject   string    `firestore:"subject"`
	Message   string    `firestore:"message"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// ContactRepository persists contact form submissions.
type ContactRepository struct {
	store *pfirestore.Store[contactDocument]
	now   func() time.Time
}

var _ repositories.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository constructs a Firestore-backed contact repository.
func NewContactRepository(provider *pfirestore.Provider, clock func() time.Time) (*ContactRepository, error) {
	if provider == nil {
		return nil, errors.New("contact repository: firestore provider is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &ContactRepository{
		store: pfirestore.NewStore[contactDocument](provider, nil, nil),
		now:   func() time.Time { return clock().UTC() },
	}, nil
}

// Create implements repositories.ContactRepository.
func (r *ContactRepository) Create(ctx context.Context, msg domain.ContactMessage) (domain.ContactMessage, error) {
	msg.CreatedAt = r.now()
	id, err := r.store.Create(ctx, contactMessagesCollection, contactDocument{
		Name:      msg.Name,
		Email:     msg.Email,
		Subject:   msg.Subject,
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return domain.ContactMessage{}, err
	}
	msg.ID = id
	return msg, nil
}

// List implements repositories.ContactRepository.
func (r *ContactRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ContactMessage], error) {
	size := pager.PageSize
	if size <= 0 {
		size = pagination.DefaultPageSize
	}
	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.ContactMessage]{}, err
	}

	docs, err := r.store.Query(ctx, contactMessagesCollection, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !cursor.IsZero() {
			q = q.StartAfter(cursor.CreatedAt, cursor.ID)
		}
		return q.Limit(size + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.ContactMessage]{}, err
	}

	page := domain.CursorPage[domain.ContactMessage]{}
	for i, doc := range docs {
		if i == size {
			last := page.Items[len(page.Items)-1]
			page.NextPageToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		page.Items = append(page.Items, domain.ContactMessage{
			ID:        doc.ID,
			Name:      doc.Data.Name,
			Email:     doc.Data.Email,
			Subject:   doc.Data.Subject,
			Message:   doc.Data.Message,
			CreatedAt: doc.Data.CreatedAt,
		})
	}
	return page, nil
}
