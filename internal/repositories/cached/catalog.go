package cached

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/cache"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const (
	keyParents     = "parents"
	keyAllVariants = "variants:all"
)

// CatalogRepository serves catalog reads from a cache namespace and invalidates the
// whole namespace on every successful write. Cache failures fall through to the backing store.
type CatalogRepository struct {
	next   repositories.CatalogRepository
	ns     *cache.Namespace
	logger *zap.Logger
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository wraps next with ns.
func NewCatalogRepository(next repositories.CatalogRepository, ns *cache.Namespace, logger *zap.Logger) (*CatalogRepository, error) {
	if next == nil {
		return nil, errors.New("cached catalog: backing repository is required")
	}
	if ns == nil {
		return nil, errors.New("cached catalog: cache namespace is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRepository{next: next, ns: ns, logger: logger.Named("catalog_cache")}, nil
}

func (r *CatalogRepository) ListParents(ctx context.Context) ([]domain.ParentProduct, error) {
	return readThrough(ctx, r, keyParents, r.next.ListParents)
}

func (r *CatalogRepository) GetParent(ctx context.Context, parentID string) (domain.ParentProduct, error) {
	return readThrough(ctx, r, "parent:"+parentID, func(ctx context.Context) (domain.ParentProduct, error) {
		return r.next.GetParent(ctx, parentID)
	})
}

func (r *CatalogRepository) ListVariants(ctx context.Context, parentID string) ([]domain.ProductVariant, error) {
	return readThrough(ctx, r, "variants:"+parentID, func(ctx context.Context) ([]domain.ProductVariant, error) {
		return r.next.ListVariants(ctx, parentID)
	})
}

func (r *CatalogRepository) ListAllVariants(ctx context.Context) ([]domain.ProductVariant, error) {
	return readThrough(ctx, r, keyAllVariants, r.next.ListAllVariants)
}

// GetVariant is not cached; admin edits read it right before writing.
func (r *CatalogRepository) GetVariant(ctx context.Context, parentID, variantID string) (domain.ProductVariant, error) {
	return r.next.GetVariant(ctx, parentID, variantID)
}

func (r *CatalogRepository) CreateParent(ctx context.Context, parent domain.ParentProduct) (domain.ParentProduct, error) {
	out, err := r.next.CreateParent(ctx, parent)
	r.invalidate(ctx, err)
	return out, err
}

func (r *CatalogRepository) UpdateParent(ctx context.Context, parent domain.ParentProduct) (domain.ParentProduct, error) {
	out, err := r.next.UpdateParent(ctx, parent)
	r.invalidate(ctx, err)
	return out, err
}

func (r *CatalogRepository) DeleteParentCascade(ctx context.Context, parentID string) ([]domain.ProductVariant, error) {
	out, err := r.next.DeleteParentCascade(ctx, parentID)
	r.invalidate(ctx, err)
	return out, err
}

func (r *CatalogRepository) CreateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error) {
	out, err := r.next.CreateVariant(ctx, variant)
	r.invalidate(ctx, err)
	return out, err
}

func (r *CatalogRepository) UpdateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error) {
	out, err := r.next.UpdateVariant(ctx, variant)
	r.invalidate(ctx, err)
	return out, err
}

func (r *CatalogRepository) DeleteVariant(ctx context.Context, parentID, variantID string) error {
	err := r.next.DeleteVariant(ctx, parentID, variantID)
	r.invalidate(ctx, err)
	return err
}

func (r *CatalogRepository) SetDefaultVariant(ctx context.Context, parentID, variantID string) error {
	err := r.next.SetDefaultVariant(ctx, parentID, variantID)
	r.invalidate(ctx, err)
	return err
}

func (r *CatalogRepository) SetStock(ctx context.Context, refs []repositories.VariantRef, stock int) error {
	err := r.next.SetStock(ctx, refs, stock)
	// partial bulk writes still change documents
	r.invalidate(ctx, nil)
	return err
}

func (r *CatalogRepository) invalidate(ctx context.Context, writeErr error) {
	if writeErr != nil {
		return
	}
	if err := r.ns.Invalidate(ctx); err != nil {
		r.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func readThrough[T any](ctx context.Context, r *CatalogRepository, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	slot, hit, err := r.ns.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := slot.Set(ctx, value); err != nil {
		r.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
