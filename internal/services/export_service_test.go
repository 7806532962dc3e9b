package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/maxg-dev/santiscl/internal/catalog"
	domain "github.com/maxg-dev/santiscl/internal/domain"
)

func TestExportCatalogWritesWorkbook(t *testing.T) {
	repo := newMemoryCatalog()
	repo.addParent(domain.ParentProduct{ID: "p1", Name: "Torre", Category: catalog.CategoryEarlyChildhood, Highlighted: true},
		domain.ProductVariant{ID: "v1", VariantName: "Natural", Price: 129990, Stock: 2, IsDefault: true, Attributes: domain.Attributes{"size": "M", "color": "Natural"}},
		domain.ProductVariant{ID: "v2", VariantName: "Blanca", Price: 139990},
	)
	svc, err := NewExportService(ExportServiceDeps{Catalog: repo})
	require.NoError(t, err)

	var buf bytes.Buffer
	summary, err := svc.ExportCatalog(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, ExportSummary{Parents: 1, Variants: 2}, summary)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	parents, err := f.GetRows("Productos")
	require.NoError(t, err)
	require.Len(t, parents, 2)
	assert.Equal(t, []string{"p1", "Torre", "Primera infancia", "Sí", "", "2"}, parents[1][:6])

	variants, err := f.GetRows("Variantes")
	require.NoError(t, err)
	require.Len(t, variants, 3)
	assert.Equal(t, "Blanca", variants[1][2])
	assert.Equal(t, "v1", variants[2][0])
	assert.Equal(t, "129990", variants[2][3])
	assert.Equal(t, "color=Natural; size=M", variants[2][6])
}
