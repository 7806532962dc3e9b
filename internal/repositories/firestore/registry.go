package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

// RegistryOption customises the registry.
type RegistryOption func(*Registry)

// WithCatalogDecorator wraps the catalog repository, e.g. with a cache.
func WithCatalogDecorator(decorate func(repositories.CatalogRepository) repositories.CatalogRepository) RegistryOption {
	return func(r *Registry) {
		if decorate != nil {
			r.catalog = decorate(r.catalog)
		}
	}
}

// WithHealth installs the health repository.
func WithHealth(health repositories.HealthRepository) RegistryOption {
	return func(r *Registry) {
		r.health = health
	}
}

// Registry implements repositories.Registry over one Firestore provider.
type Registry struct {
	provider *pfirestore.Provider
	catalog  repositories.CatalogRepository
	contacts repositories.ContactRepository
	admins   repositories.AdminRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every Firestore repository.
func NewRegistry(provider *pfirestore.Provider, clock func() time.Time, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}
	catalog, err := NewCatalogRepository(provider, clock)
	if err != nil {
		return nil, err
	}
	contacts, err := NewContactRepository(provider, clock)
	if err != nil {
		return nil, err
	}
	admins, err := NewAdminRepository(provider, clock)
	if err != nil {
		return nil, err
	}
	reg := &Registry{provider: provider, catalog: catalog, contacts: contacts, admins: admins}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}
	return reg, nil
}

func (r *Registry) Catalog() repositories.CatalogRepository  { return r.catalog }
func (r *Registry) Contacts() repositories.ContactRepository { return r.contacts }
func (r *Registry) Admins() repositories.AdminRepository     { return r.admins }
func (r *Registry) Health() repositories.HealthRepository    { return r.health }

// Close releases the Firestore client.
func (r *Registry) Close(context.Context) error {
	if err := r.provider.Close(); err != nil {
		return fmt.Errorf("close firestore provider: %w", err)
	}
	return nil
}

// Ping reads the admin registry collection to verify Firestore connectivity.
func Ping(provider *pfirestore.Provider) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		client, err := provider.Client(ctx)
		if err != nil {
			return err
		}
		iter := client.Collection(adminsCollection).Limit(1).Documents(ctx)
		defer iter.Stop()
		if _, err := iter.GetAll(); err != nil {
			return pfirestore.WrapError("health.ping", err)
		}
		return nil
	}
}
