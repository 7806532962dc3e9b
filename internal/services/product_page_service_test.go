package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxg-dev/santiscl/internal/catalog"
	domain "github.com/maxg-dev/santiscl/internal/domain"
)

func newProductPageFixture(t *testing.T, logs *eventLog) ProductPageService {
	t.Helper()
	repo := newMemoryCatalog()
	repo.addParent(domain.ParentProduct{
		ID:          "p1",
		Name:        "Torre de aprendizaje",
		Description: "Torre **plegable**",
		Category:    catalog.CategoryEarlyChildhood,
	},
		domain.ProductVariant{ID: "red-m", VariantName: "Roja M", Price: 199990, Stock: 1, Attributes: domain.Attributes{"color": "Red", "size": "M"}, Images: []string{"https://img/red-m.jpg"}},
		domain.ProductVariant{ID: "blue-m", VariantName: "Azul M", Price: 189990, Stock: 3, Attributes: domain.Attributes{"color": "Blue", "size": "M"}, IsDefault: true, Description: "Azul con *barniz* al agua", Dimensions: "90x45 cm"},
		domain.ProductVariant{ID: "blue-l", VariantName: "Azul L", Price: 209990, Stock: 0, Attributes: domain.Attributes{"color": "Blue", "size": "L"}},
	)
	repo.addParent(domain.ParentProduct{ID: "empty", Name: "Sin variantes"})
	catalogSvc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	require.NoError(t, err)
	var hook func(context.Context, string, map[string]any)
	if logs != nil {
		hook = logs.hook()
	}
	svc, err := NewProductPageService(ProductPageServiceDeps{
		Catalog:        catalogSvc,
		WhatsAppNumber: "+56 9 1234 5678",
		Logger:         hook,
	})
	require.NoError(t, err)
	return svc
}

func TestProductPageResolvesDefaultVariant(t *testing.T) {
	svc := newProductPageFixture(t, nil)

	page, err := svc.Resolve(context.Background(), ProductPageRequest{ParentID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "blue-m", page.Selected.ID)
	assert.Equal(t, "blue-m", page.CanonicalVariantID)
	assert.True(t, page.Matched)
	assert.True(t, page.ShowOptions)
	assert.Equal(t, catalog.PlaceholderImage, page.MainImage)
	require.Len(t, page.Axes, 2)
	assert.Equal(t, "color", page.Axes[0].Name)
	assert.Equal(t, catalog.Selection{"color": "blue", "size": "m"}, page.Selection)

	p := page.Presentation
	assert.Equal(t, "$189.990", p.Price)
	assert.Equal(t, "Stock: 3 unidades", p.StockLabel)
	assert.Equal(t, "Azul con *barniz* al agua", p.Description)
	assert.Contains(t, p.DescriptionHTML, "<em>barniz</em>")
	assert.Equal(t, "90x45 cm", p.Dimensions)
	assert.Equal(t, "Primera infancia", p.CategoryLabel)
	assert.True(t, strings.HasPrefix(p.InquiryLink, "https://wa.me/56912345678?text="))
}

func TestProductPageHonoursSharedReference(t *testing.T) {
	svc := newProductPageFixture(t, nil)

	page, err := svc.Resolve(context.Background(), ProductPageRequest{ParentID: "p1", VariantID: "red-m"})
	require.NoError(t, err)
	assert.Equal(t, "red-m", page.Selected.ID)
	assert.Equal(t, "https://img/red-m.jpg", page.MainImage)
	assert.Equal(t, "Stock: 1 unidad", page.Presentation.StockLabel)
	assert.Equal(t, "Torre **plegable**", page.Presentation.Description)

	page, err = svc.Resolve(context.Background(), ProductPageRequest{ParentID: "p1", VariantID: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, "blue-m", page.Selected.ID)
	assert.Equal(t, "blue-m", page.CanonicalVariantID)
}

func TestProductPageAttributeChange(t *testing.T) {
	logs := &eventLog{}
	svc := newProductPageFixture(t, logs)
	ctx := context.Background()

	page, err := svc.Resolve(ctx, ProductPageRequest{ParentID: "p1", VariantID: "blue-m", Choices: []AttributeChoice{{Axis: "size", Value: "L"}}})
	require.NoError(t, err)
	assert.True(t, page.Matched)
	assert.Equal(t, "blue-l", page.Selected.ID)
	assert.Equal(t, "blue-l", page.CanonicalVariantID)

	page, err = svc.Resolve(ctx, ProductPageRequest{ParentID: "p1", VariantID: "red-m", Choices: []AttributeChoice{{Axis: "size", Value: "L"}}})
	require.NoError(t, err)
	assert.False(t, page.Matched)
	assert.Equal(t, "red-m", page.Selected.ID)
	entry, ok := logs.find("storefront.variant_selection_miss")
	require.True(t, ok)
	assert.Equal(t, "size", entry.fields["axis"])
}

func TestProductPageAppliesChoicesInOrder(t *testing.T) {
	svc := newProductPageFixture(t, nil)
	ctx := context.Background()

	page, err := svc.Resolve(ctx, ProductPageRequest{ParentID: "p1", VariantID: "red-m", Choices: []AttributeChoice{
		{Axis: "color", Value: "Blue"},
		{Axis: "size", Value: "L"},
	}})
	require.NoError(t, err)
	assert.True(t, page.Matched)
	assert.Equal(t, "blue-l", page.CanonicalVariantID)

	// red has no L, so the first choice misses and the second still applies
	page, err = svc.Resolve(ctx, ProductPageRequest{ParentID: "p1", VariantID: "red-m", Choices: []AttributeChoice{
		{Axis: "size", Value: "L"},
		{Axis: "color", Value: "Blue"},
	}})
	require.NoError(t, err)
	assert.False(t, page.Matched)
	assert.Equal(t, "blue-m", page.CanonicalVariantID)
}

func TestProductPageErrors(t *testing.T) {
	svc := newProductPageFixture(t, nil)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, ProductPageRequest{ParentID: "missing"})
	assert.True(t, errors.Is(err, ErrProductNotFound))

	_, err = svc.Resolve(ctx, ProductPageRequest{ParentID: "empty"})
	assert.True(t, errors.Is(err, ErrProductNotFound))
}
