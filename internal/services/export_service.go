package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/maxg-dev/santiscl/internal/catalog"
	"github.com/maxg-dev/santiscl/internal/format"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const (
	exportParentsSheet  = "Productos"
	exportVariantsSheet = "Variantes"
)

var (
	exportParentHeader  = []any{"ID", "Nombre", "Categoría", "Destacado", "Edad recomendada", "Variantes", "Creado"}
	exportVariantHeader = []any{"ID", "Producto", "Variante", "Precio", "Stock", "Predeterminada", "Atributos", "Imágenes", "Dimensiones"}
)

// ExportServiceDeps bundles collaborators for spreadsheet exports.
type ExportServiceDeps struct {
	Catalog repositories.CatalogRepository
}

type exportService struct {
	repo repositories.CatalogRepository
}

var _ ExportService = (*exportService)(nil)

// NewExportService constructs the export service.
func NewExportService(deps ExportServiceDeps) (ExportService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("export service: catalog repository is required")
	}
	return &exportService{repo: deps.Catalog}, nil
}

func (s *exportService) ExportCatalog(ctx context.Context, w io.Writer) (ExportSummary, error) {
	parents, err := s.repo.ListParents(ctx)
	if err != nil {
		return ExportSummary{}, mapRepositoryError(err, nil)
	}
	variants, err := s.repo.ListAllVariants(ctx)
	if err != nil {
		return ExportSummary{}, mapRepositoryError(err, nil)
	}

	names := make(map[string]string, len(parents))
	counts := make(map[string]int, len(parents))
	for _, p := range parents {
		names[p.ID] = p.Name
	}
	for _, v := range variants {
		counts[v.ParentID]++
	}
	sort.SliceStable(variants, func(i, j int) bool {
		if names[variants[i].ParentID] != names[variants[j].ParentID] {
			return names[variants[i].ParentID] < names[variants[j].ParentID]
		}
		return variants[i].VariantName < variants[j].VariantName
	})

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportParentsSheet); err != nil {
		return ExportSummary{}, fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(exportVariantsSheet); err != nil {
		return ExportSummary{}, fmt.Errorf("export: create sheet: %w", err)
	}

	parentRows := make([][]any, 0, len(parents)+1)
	parentRows = append(parentRows, exportParentHeader)
	for _, p := range parents {
		category, _ := catalog.LookupCategory(p.Category)
		parentRows = append(parentRows, []any{
			p.ID, p.Name, category.Label, yesNo(p.Highlighted), p.AgeRecommendation, counts[p.ID], format.Date(p.CreatedAt),
		})
	}
	variantRows := make([][]any, 0, len(variants)+1)
	variantRows = append(variantRows, exportVariantHeader)
	for _, v := range variants {
		variantRows = append(variantRows, []any{
			v.ID, names[v.ParentID], v.VariantName, v.Price, v.Stock, yesNo(v.IsDefault),
			formatAttributes(v.Attributes), len(v.Images), v.Dimensions,
		})
	}
	if err := writeRows(f, exportParentsSheet, parentRows); err != nil {
		return ExportSummary{}, err
	}
	if err := writeRows(f, exportVariantsSheet, variantRows); err != nil {
		return ExportSummary{}, err
	}

	if err := f.Write(w); err != nil {
		return ExportSummary{}, fmt.Errorf("export: write workbook: %w", err)
	}
	return ExportSummary{Parents: len(parents), Variants: len(variants)}, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export: cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatAttributes(attrs Attributes) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, "; ")
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
