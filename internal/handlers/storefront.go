package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maxg-dev/santiscl/internal/catalog"
	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/format"
	"github.com/maxg-dev/santiscl/internal/platform/httpx"
	"github.com/maxg-dev/santiscl/internal/services"
)

const maxSearchQueryRunes = 100

// StorefrontHandlers exposes the public catalog.
type StorefrontHandlers struct {
	storefront services.StorefrontService
	pages      services.ProductPageService
}

// NewStorefrontHandlers constructs storefront handlers.
func NewStorefrontHandlers(storefront services.StorefrontService, pages services.ProductPageService) *StorefrontHandlers {
	return &StorefrontHandlers{storefront: storefront, pages: pages}
}

// Routes registers storefront endpoints.
func (h *StorefrontHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{parentID}", h.getProduct)
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{slug}", h.getCategory)
}

type productCardResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Highlighted bool   `json:"highlighted"`
	VariantID   string `json:"variantId"`
	VariantName string `json:"variantName"`
	Price       int64  `json:"price"`
	PriceLabel  string `json:"priceLabel"`
	Image       string `json:"image,omitempty"`
	Stock       int    `json:"stock"`
	URL         string `json:"url"`
}

type categoryResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	Count *int   `json:"count,omitempty"`
}

type bucketResponse struct {
	categoryResponse
	Products []productCardResponse `json:"products"`
}

type listingResponse struct {
	Query     string                `json:"query,omitempty"`
	Searching bool                  `json:"searching"`
	Buckets   []bucketResponse      `json:"buckets,omitempty"`
	Results   []productCardResponse `json:"results,omitempty"`
}

type optionResponse struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Standard   bool   `json:"standard"`
	Selected   bool   `json:"selected"`
	VariantID  string `json:"variantId"`
	PriceLabel string `json:"priceLabel"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

type axisResponse struct {
	Name    string           `json:"name"`
	Options []optionResponse `json:"options"`
}

type variantResponse struct {
	ID          string            `json:"id"`
	ParentID    string            `json:"parentId"`
	VariantName string            `json:"variantName"`
	Price       int64             `json:"price"`
	Images      []string          `json:"images"`
	Description string            `json:"description,omitempty"`
	Dimensions  string            `json:"dimensions,omitempty"`
	Stock       int               `json:"stock"`
	Attributes  map[string]string `json:"attributes"`
	IsDefault   bool              `json:"isDefault"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
}

type parentResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category"`
	Highlighted       bool   `json:"highlighted"`
	AgeRecommendation string `json:"ageRecommendation,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

type productPageResponse struct {
	Product            parentResponse    `json:"product"`
	Selected           variantResponse   `json:"selected"`
	Variants           []variantResponse `json:"variants"`
	Axes               []axisResponse    `json:"axes"`
	ShowOptions        bool              `json:"showOptions"`
	Matched            bool              `json:"matched"`
	MainImage          string            `json:"mainImage"`
	CanonicalVariantID string            `json:"canonicalVariantId"`
	CanonicalURL       string            `json:"canonicalUrl"`
	PriceLabel         string            `json:"priceLabel"`
	StockLabel         string            `json:"stockLabel"`
	Description        string            `json:"description,omitempty"`
	DescriptionHTML    string            `json:"descriptionHtml,omitempty"`
	Dimensions         string            `json:"dimensions,omitempty"`
	CategoryLabel      string            `json:"categoryLabel"`
	CategoryEmoji      string            `json:"categoryEmoji"`
	InquiryLink        string            `json:"inquiryLink,omitempty"`
}

type categoryPageResponse struct {
	Category categoryResponse      `json:"category"`
	Products []productCardResponse `json:"products"`
}

func (h *StorefrontHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.storefront == nil {
		writeUnavailable(ctx, w, "storefront")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) > maxSearchQueryRunes {
		query = string([]rune(query)[:maxSearchQueryRunes])
	}
	listing, err := h.storefront.Listing(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := listingResponse{Query: listing.Query, Searching: listing.Searching}
	if listing.Searching {
		resp.Results = cardsResponse(listing.Results)
	} else {
		resp.Buckets = make([]bucketResponse, 0, len(listing.Buckets))
		for _, b := range listing.Buckets {
			resp.Buckets = append(resp.Buckets, bucketResponse{
				categoryResponse: newCategoryResponse(b.Category, nil),
				Products:         cardsResponse(b.Cards),
			})
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *StorefrontHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pages == nil {
		writeUnavailable(ctx, w, "product page")
		return
	}
	parentID := strings.TrimSpace(chi.URLParam(r, "parentID"))
	query := r.URL.Query()
	choices, err := attributeChoices(query)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	page, err := h.pages.Resolve(ctx, services.ProductPageRequest{
		ParentID:  parentID,
		VariantID: query.Get(catalog.VariantParam),
		Choices:   choices,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := productPageResponse{
		Product:            newParentResponse(page.Parent),
		Selected:           newVariantResponse(page.Selected),
		Variants:           make([]variantResponse, 0, len(page.Variants)),
		Axes:               make([]axisResponse, 0, len(page.Axes)),
		ShowOptions:        page.ShowOptions,
		Matched:            page.Matched,
		MainImage:          page.MainImage,
		CanonicalVariantID: page.CanonicalVariantID,
		CanonicalURL:       productURL(page.Parent.ID, page.CanonicalVariantID),
		PriceLabel:         page.Presentation.Price,
		StockLabel:         page.Presentation.StockLabel,
		Description:        page.Presentation.Description,
		DescriptionHTML:    page.Presentation.DescriptionHTML,
		Dimensions:         page.Presentation.Dimensions,
		CategoryLabel:      page.Presentation.CategoryLabel,
		CategoryEmoji:      page.Presentation.CategoryEmoji,
		InquiryLink:        page.Presentation.InquiryLink,
	}
	for _, v := range page.Variants {
		resp.Variants = append(resp.Variants, newVariantResponse(v))
	}
	for _, axis := range page.Axes {
		ar := axisResponse{Name: axis.Name, Options: make([]optionResponse, 0, len(axis.Options))}
		for _, opt := range axis.Options {
			ar.Options = append(ar.Options, optionResponse{
				Value:      opt.Normalized,
				Label:      opt.Display,
				Standard:   opt.IsStandard(),
				Selected:   page.Selection[axis.Name] == opt.Normalized,
				VariantID:  opt.Representative.ID,
				PriceLabel: format.CLP(opt.Representative.Price),
				Thumbnail:  opt.Representative.PrimaryImage(),
			})
		}
		resp.Axes = append(resp.Axes, ar)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *StorefrontHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.storefront == nil {
		writeUnavailable(ctx, w, "storefront")
		return
	}
	summaries, err := h.storefront.Categories(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := make([]categoryResponse, 0, len(summaries))
	for _, s := range summaries {
		count := s.Count
		resp = append(resp, newCategoryResponse(s.Category, &count))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *StorefrontHandlers) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.storefront == nil {
		writeUnavailable(ctx, w, "storefront")
		return
	}
	page, err := h.storefront.CategoryPage(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if !page.Found {
		httpx.WriteError(ctx, w, httpx.NewError("category_not_found", page.Category.Label, http.StatusNotFound))
		return
	}
	count := len(page.Cards)
	httpx.WriteJSON(w, http.StatusOK, categoryPageResponse{
		Category: newCategoryResponse(page.Category, &count),
		Products: cardsResponse(page.Cards),
	})
}

func cardsResponse(cards []domain.ProductCard) []productCardResponse {
	out := make([]productCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, productCardResponse{
			ID:          c.Parent.ID,
			Name:        c.Parent.Name,
			Category:    c.Parent.Category,
			Highlighted: c.Parent.Highlighted,
			VariantID:   c.DefaultVariant.ID,
			VariantName: c.DefaultVariant.VariantName,
			Price:       c.DefaultVariant.Price,
			PriceLabel:  format.CLP(c.DefaultVariant.Price),
			Image:       c.DefaultVariant.PrimaryImage(),
			Stock:       c.DefaultVariant.Stock,
			URL:         productURL(c.Parent.ID, c.DefaultVariant.ID),
		})
	}
	return out
}

func newCategoryResponse(c catalog.Category, count *int) categoryResponse {
	return categoryResponse{Key: c.Key, Label: c.Label, Emoji: c.Emoji, Count: count}
}

func newParentResponse(p domain.ParentProduct) parentResponse {
	return parentResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Highlighted:       p.Highlighted,
		AgeRecommendation: p.AgeRecommendation,
		CreatedAt:         formatTime(p.CreatedAt),
		UpdatedAt:         formatTime(p.UpdatedAt),
	}
}

func newVariantResponse(v domain.ProductVariant) variantResponse {
	images := v.Images
	if images == nil {
		images = []string{}
	}
	attrs := map[string]string(v.Attributes)
	if attrs == nil {
		attrs = map[string]string{}
	}
	return variantResponse{
		ID:          v.ID,
		ParentID:    v.ParentID,
		VariantName: v.VariantName,
		Price:       v.Price,
		Images:      images,
		Description: v.Description,
		Dimensions:  v.Dimensions,
		Stock:       v.Stock,
		Attributes:  attrs,
		IsDefault:   v.IsDefault,
		CreatedAt:   formatTime(v.CreatedAt),
		UpdatedAt:   formatTime(v.UpdatedAt),
	}
}

func productURL(parentID, variantID string) string {
	u := "/productos/" + url.PathEscape(parentID)
	if variantID == "" {
		return u
	}
	return u + "?" + url.Values{catalog.VariantParam: {variantID}}.Encode()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// attributeChoices pairs repeated axis and value parameters positionally.
func attributeChoices(query url.Values) ([]services.AttributeChoice, error) {
	axes, values := query["axis"], query["value"]
	if len(axes) != len(values) {
		return nil, fmt.Errorf("axis and value must be given in pairs (%d axis, %d value)", len(axes), len(values))
	}
	if len(axes) == 0 {
		return nil, nil
	}
	choices := make([]services.AttributeChoice, len(axes))
	for i := range axes {
		choices[i] = services.AttributeChoice{Axis: axes[i], Value: values[i]}
	}
	return choices, nil
}
