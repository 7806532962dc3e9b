package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maxg-dev/santiscl/internal/domain"
	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const adminsCollection = "admins"

type adminDocument struct {
	Email     string    `firestore:"email"`
	IsAdmin   bool      `firestore:"isAdmin"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// AdminRepository reads the admins/{uid} registry.
type AdminRepository struct {
	store *pfirestore.Store[adminDocument]
	now   func() time.Time
}

var _ repositories.AdminRepository = (*AdminRepository)(nil)

// NewAdminRepository constructs a Firestore-backed admin registry.
func NewAdminRepository(provider *pfirestore.Provider, clock func() time.Time) (*AdminRepository, error) {
	if provider == nil {
		return nil, errors.New("admin repository: firestore provider is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &AdminRepository{
		store: pfirestore.NewStore[adminDocument](provider, nil, nil),
		now:   func() time.Time { return clock().UTC() },
	}, nil
}

// Get implements repositories.AdminRepository.
func (r *AdminRepository) Get(ctx context.Context, uid string) (domain.AdminAccount, error) {
	doc, err := r.store.Get(ctx, adminsCollection, strings.TrimSpace(uid))
	if err != nil {
		return domain.AdminAccount{}, err
	}
	return domain.AdminAccount{
		UID:       doc.ID,
		Email:     doc.Data.Email,
		IsAdmin:   doc.Data.IsAdmin,
		CreatedAt: doc.Data.CreatedAt,
	}, nil
}

// Upsert implements repositories.AdminRepository.
func (r *AdminRepository) Upsert(ctx context.Context, account domain.AdminAccount) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = r.now()
	}
	return r.store.Set(ctx, adminsCollection, account.UID, adminDocument{
		Email:     account.Email,
		IsAdmin:   account.IsAdmin,
		CreatedAt: account.CreatedAt,
	})
}
