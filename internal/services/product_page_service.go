package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/maxg-dev/santiscl/internal/catalog"
	"github.com/maxg-dev/santiscl/internal/format"
	"github.com/maxg-dev/santiscl/internal/platform/observability"
	"github.com/maxg-dev/santiscl/internal/platform/richtext"
)

const productPageMeterName = "github.com/maxg-dev/santiscl/internal/services"

// ProductPageServiceDeps bundles collaborators for product page resolution.
type ProductPageServiceDeps struct {
	Catalog          CatalogService
	Renderer         *richtext.Renderer
	WhatsAppNumber   string
	PlaceholderImage string
	Meter            metric.Meter
	Logger           func(context.Context, string, map[string]any)
}

type productPageService struct {
	catalog     CatalogService
	renderer    *richtext.Renderer
	whatsapp    string
	placeholder string
	misses      metric.Int64Counter
	logger      func(context.Context, string, map[string]any)
}

var _ ProductPageService = (*productPageService)(nil)

// NewProductPageService constructs the product page resolver.
func NewProductPageService(deps ProductPageServiceDeps) (ProductPageService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("product page service: catalog service is required")
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = richtext.NewRenderer()
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(productPageMeterName)
	}
	misses, err := meter.Int64Counter(
		"storefront.variant_selection.misses",
		metric.WithDescription("Attribute changes that matched no variant"),
	)
	if err != nil {
		return nil, fmt.Errorf("product page service: create counter: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	placeholder := strings.TrimSpace(deps.PlaceholderImage)
	if placeholder == "" {
		placeholder = catalog.PlaceholderImage
	}
	return &productPageService{
		catalog:     deps.Catalog,
		renderer:    renderer,
		whatsapp:    strings.TrimSpace(deps.WhatsAppNumber),
		placeholder: placeholder,
		misses:      misses,
		logger:      logger,
	}, nil
}

func (s *productPageService) Resolve(ctx context.Context, req ProductPageRequest) (ProductPage, error) {
	location := catalog.NewQueryLocation(url.Values{catalog.VariantParam: {strings.TrimSpace(req.VariantID)}})
	sync := catalog.NewSynchronizer(location,
		catalog.WithSyncLogger(observability.FromContext(ctx)),
		catalog.WithPlaceholderImage(s.placeholder),
	)

	gen, _ := sync.Navigate(req.ParentID)
	detail, err := s.catalog.GetParentAndVariants(ctx, req.ParentID)
	if err != nil {
		sync.Fail(gen)
		return ProductPage{}, err
	}
	if err := sync.Deliver(gen, detail.Parent, detail.Variants); err != nil {
		if errors.Is(err, catalog.ErrNoVariants) {
			return ProductPage{}, fmt.Errorf("%w: %s has no variants", ErrProductNotFound, req.ParentID)
		}
		return ProductPage{}, err
	}

	matched := true
	for _, choice := range req.Choices {
		axis := strings.TrimSpace(choice.Axis)
		if axis == "" {
			continue
		}
		result, err := sync.SelectAttribute(axis, choice.Value)
		if err != nil {
			return ProductPage{}, err
		}
		if result.Matched {
			continue
		}
		matched = false
		s.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("axis", axis)))
		s.logger(ctx, "storefront.variant_selection_miss", map[string]any{
			"parentId":  detail.Parent.ID,
			"axis":      axis,
			"value":     choice.Value,
			"variantId": result.Variant.ID,
		})
	}

	selected, _ := sync.Current()
	index := sync.Index()
	variants := sync.Variants()
	page := ProductPage{
		Parent:             sync.Parent(),
		Variants:           variants,
		Selected:           selected,
		Axes:               index.Axes(),
		Selection:          catalog.SelectionOf(selected, index),
		ShowOptions:        catalog.ShowSelector(variants, index),
		Matched:            matched,
		MainImage:          sync.View().MainImage,
		CanonicalVariantID: location.VariantID(),
	}
	page.Presentation = s.present(ctx, page.Parent, selected)
	return page, nil
}

func (s *productPageService) present(ctx context.Context, parent ParentProduct, v ProductVariant) ProductPresentation {
	description := strings.TrimSpace(v.Description)
	if description == "" {
		description = parent.Description
	}
	html, err := s.renderer.HTML(description)
	if err != nil {
		s.logger(ctx, "storefront.description_render_failed", map[string]any{"parentId": parent.ID, "error": err})
		html = ""
	}
	category, _ := catalog.LookupCategory(parent.Category)
	return ProductPresentation{
		Price:           format.CLP(v.Price),
		StockLabel:      format.StockLabel(v.Stock),
		Description:     description,
		DescriptionHTML: html,
		Dimensions:      v.Dimensions,
		CategoryLabel:   category.Label,
		CategoryEmoji:   category.Emoji,
		InquiryLink:     format.WhatsAppLink(s.whatsapp, parent.Name, v.VariantName),
	}
}
