package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxg-dev/santiscl/internal/catalog"
	domain "github.com/maxg-dev/santiscl/internal/domain"
)

func seededStorefront(t *testing.T, logs *eventLog) StorefrontService {
	t.Helper()
	repo := newMemoryCatalog()
	repo.addParent(domain.ParentProduct{ID: "p1", Name: "Mesa de Actividades", Category: catalog.CategoryPlayCorners},
		domain.ProductVariant{ID: "v1", VariantName: "Natural"})
	repo.addParent(domain.ParentProduct{ID: "p2", Name: "Bicicleta de equilibrio", Category: catalog.CategoryOnTheMove, Highlighted: true},
		domain.ProductVariant{ID: "v2", VariantName: "Roja"})
	repo.addParent(domain.ParentProduct{ID: "p3", Name: "Triángulo Pikler", Category: "legacy-tag"},
		domain.ProductVariant{ID: "v3", VariantName: "Grande"})
	repo.addParent(domain.ParentProduct{ID: "p4", Name: "Sonajero", Category: catalog.CategoryEarlyChildhood},
		domain.ProductVariant{ID: "v4", VariantName: "Mesa plegable"})

	catalogSvc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	require.NoError(t, err)
	var hook func(context.Context, string, map[string]any)
	if logs != nil {
		hook = logs.hook()
	}
	svc, err := NewStorefrontService(StorefrontServiceDeps{Catalog: catalogSvc, Logger: hook})
	require.NoError(t, err)
	return svc
}

func bucketIDs(listing StorefrontListing, key string) []string {
	for _, b := range listing.Buckets {
		if b.Category.Key == key {
			ids := make([]string, 0, len(b.Cards))
			for _, c := range b.Cards {
				ids = append(ids, c.Parent.ID)
			}
			return ids
		}
	}
	return nil
}

func TestStorefrontListingGroupsAndLogsFallbacks(t *testing.T) {
	logs := &eventLog{}
	svc := seededStorefront(t, logs)

	listing, err := svc.Listing(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, listing.Searching)
	require.Len(t, listing.Buckets, 5)
	assert.Equal(t, catalog.CategoryHighlighted, listing.Buckets[0].Category.Key)
	assert.Equal(t, []string{"p2"}, bucketIDs(listing, catalog.CategoryHighlighted))
	assert.Equal(t, []string{"p2"}, bucketIDs(listing, catalog.CategoryOnTheMove))
	assert.Equal(t, []string{"p1", "p3"}, bucketIDs(listing, catalog.CategoryPlayCorners))

	entry, ok := logs.find("storefront.category_fallback")
	require.True(t, ok)
	assert.Equal(t, []string{"p3"}, entry.fields["parentIds"])
}

func TestStorefrontListingSearchIgnoresCaseAndAccents(t *testing.T) {
	svc := seededStorefront(t, nil)

	listing, err := svc.Listing(context.Background(), "  MESA ")
	require.NoError(t, err)
	require.True(t, listing.Searching)
	ids := make([]string, 0, len(listing.Results))
	for _, c := range listing.Results {
		ids = append(ids, c.Parent.ID)
	}
	// p4 matches through its default variant name.
	assert.ElementsMatch(t, []string{"p1", "p4"}, ids)

	listing, err = svc.Listing(context.Background(), "triangulo")
	require.NoError(t, err)
	require.Len(t, listing.Results, 1)
	assert.Equal(t, "p3", listing.Results[0].Parent.ID)
}

func TestStorefrontCategoriesAndCategoryPage(t *testing.T) {
	svc := seededStorefront(t, nil)
	ctx := context.Background()

	summaries, err := svc.Categories(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, s := range summaries {
		counts[s.Category.Key] = s.Count
	}
	assert.Equal(t, 1, counts[catalog.CategoryHighlighted])
	assert.Equal(t, 2, counts[catalog.CategoryPlayCorners])
	assert.Equal(t, 0, counts[catalog.CategoryExplorationAndClimbing])

	page, err := svc.CategoryPage(ctx, catalog.CategoryHighlighted)
	require.NoError(t, err)
	require.True(t, page.Found)
	require.Len(t, page.Cards, 1)
	assert.Equal(t, "p2", page.Cards[0].Parent.ID)

	page, err = svc.CategoryPage(ctx, "juguetes")
	require.NoError(t, err)
	assert.False(t, page.Found)
	assert.Equal(t, "Categoría no encontrada", page.Category.Label)
	assert.Empty(t, page.Cards)
}
