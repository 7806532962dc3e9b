package repositories

import (
	"context"

	"github.com/maxg-dev/santiscl/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Catalog() CatalogRepository
	Contacts() ContactRepository
	Admins() AdminRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// VariantRef addresses one variant document.
type VariantRef struct {
	ParentID  string
	VariantID string
}

// CatalogRepository persists parent products and their variant subcollections.
type CatalogRepository interface {
	// ListParents returns every parent ordered by name.
	ListParents(ctx context.Context) ([]domain.ParentProduct, error)
	GetParent(ctx context.Context, parentID string) (domain.ParentProduct, error)
	CreateParent(ctx context.Context, parent domain.ParentProduct) (domain.ParentProduct, error)
	UpdateParent(ctx context.Context, parent domain.ParentProduct) (domain.ParentProduct, error)
	// DeleteParentCascade removes the parent and all of its variants and returns the removed variants.
	DeleteParentCascade(ctx context.Context, parentID string) ([]domain.ProductVariant, error)

	// ListVariants returns the variants of parentID ordered by variant name.
	ListVariants(ctx context.Context, parentID string) ([]domain.ProductVariant, error)
	// ListAllVariants returns every variant across parents.
	ListAllVariants(ctx context.Context) ([]domain.ProductVariant, error)
	GetVariant(ctx context.Context, parentID, variantID string) (domain.ProductVariant, error)
	CreateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error)
	UpdateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error)
	DeleteVariant(ctx context.Context, parentID, variantID string) error
	// SetDefaultVariant marks variantID as the only default variant of parentID.
	SetDefaultVariant(ctx context.Context, parentID, variantID string) error
	// SetStock writes stock to every referenced variant.
	SetStock(ctx context.Context, refs []VariantRef, stock int) error
}

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	Create(ctx context.Context, msg domain.ContactMessage) (domain.ContactMessage, error)
	// List returns messages newest first.
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ContactMessage], error)
}

// AdminRepository reads and writes the admin registry.
type AdminRepository interface {
	Get(ctx context.Context, uid string) (domain.AdminAccount, error)
	Upsert(ctx context.Context, account domain.AdminAccount) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
