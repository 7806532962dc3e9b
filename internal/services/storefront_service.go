package services

import (
	"context"
	"errors"
	"strings"

	"github.com/maxg-dev/santiscl/internal/catalog"
)

// StorefrontServiceDeps bundles collaborators for the public listing.
type StorefrontServiceDeps struct {
	Catalog CatalogService
	Logger  func(context.Context, string, map[string]any)
}

type storefrontService struct {
	catalog CatalogService
	logger  func(context.Context, string, map[string]any)
}

var _ StorefrontService = (*storefrontService)(nil)

// NewStorefrontService constructs the storefront listing service.
func NewStorefrontService(deps StorefrontServiceDeps) (StorefrontService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("storefront service: catalog service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &storefrontService{catalog: deps.Catalog, logger: logger}, nil
}

func (s *storefrontService) Listing(ctx context.Context, query string) (StorefrontListing, error) {
	cards, err := s.catalog.ListCards(ctx)
	if err != nil {
		return StorefrontListing{}, err
	}
	query = strings.TrimSpace(query)
	if query != "" {
		return StorefrontListing{Query: query, Searching: true, Results: catalog.Search(cards, query)}, nil
	}

	grouping := catalog.GroupByCategory(cards)
	if len(grouping.Fallbacks) > 0 {
		s.logger(ctx, "storefront.category_fallback", map[string]any{
			"parentIds": grouping.Fallbacks,
			"bucket":    catalog.FallbackCategory,
		})
	}
	return StorefrontListing{Buckets: grouping.Buckets}, nil
}

func (s *storefrontService) Categories(ctx context.Context) ([]CategorySummary, error) {
	cards, err := s.catalog.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	grouping := catalog.GroupByCategory(cards)
	out := make([]CategorySummary, 0, len(grouping.Buckets))
	for _, bucket := range grouping.Buckets {
		out = append(out, CategorySummary{Category: bucket.Category, Count: len(bucket.Cards)})
	}
	return out, nil
}

func (s *storefrontService) CategoryPage(ctx context.Context, slug string) (CategoryPage, error) {
	category, found := catalog.LookupCategory(slug)
	if !found {
		return CategoryPage{Category: category}, nil
	}
	cards, err := s.catalog.ListCards(ctx)
	if err != nil {
		return CategoryPage{}, err
	}
	return CategoryPage{
		Category: category,
		Found:    true,
		Cards:    catalog.FilterCategory(cards, category.Key),
	}, nil
}
