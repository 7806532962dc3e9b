package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/platform/httpx"
	"github.com/maxg-dev/santiscl/internal/services"
)

const (
	maxCatalogRequestBody = 256 * 1024
	maxUploadFiles        = 12
	// multipart bodies are read in full; the media service enforces the per-file limit.
	maxMultipartMemory     = 8 << 20
	defaultUploadFileBytes = 5 << 20
	multipartOverhead      = 64 << 10
	exportContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AdminCatalogHandlers exposes catalog management endpoints.
type AdminCatalogHandlers struct {
	authn     *auth.Authenticator
	catalog   services.CatalogService
	media     services.MediaService
	inventory services.InventoryService
	export    services.ExportService
	fileBytes int64
}

// AdminCatalogOption customises admin catalog handlers.
type AdminCatalogOption func(*AdminCatalogHandlers)

// WithAdminMediaService enables the image upload endpoints.
func WithAdminMediaService(media services.MediaService) AdminCatalogOption {
	return func(h *AdminCatalogHandlers) { h.media = media }
}

// WithAdminInventoryService enables the bulk stock endpoint.
func WithAdminInventoryService(inventory services.InventoryService) AdminCatalogOption {
	return func(h *AdminCatalogHandlers) { h.inventory = inventory }
}

// WithAdminExportService enables the spreadsheet export.
func WithAdminExportService(export services.ExportService) AdminCatalogOption {
	return func(h *AdminCatalogHandlers) { h.export = export }
}

// WithAdminUploadLimit sets the per-file size the upload body is capped against.
func WithAdminUploadLimit(perFile int64) AdminCatalogOption {
	return func(h *AdminCatalogHandlers) {
		if perFile > 0 {
			h.fileBytes = perFile
		}
	}
}

// NewAdminCatalogHandlers constructs admin catalog handlers.
func NewAdminCatalogHandlers(authn *auth.Authenticator, catalog services.CatalogService, opts ...AdminCatalogOption) *AdminCatalogHandlers {
	h := &AdminCatalogHandlers{authn: authn, catalog: catalog, fileBytes: defaultUploadFileBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers admin catalog endpoints behind the admin guard.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(g chi.Router) {
		g.Use(h.authn.RequireAdmin())
		g.Route("/catalog", func(rt chi.Router) {
			rt.Get("/parents", h.listParents)
			rt.Post("/parents", h.createParent)
			rt.Get("/parents/{parentID}", h.getParent)
			rt.Put("/parents/{parentID}", h.updateParent)
			rt.Delete("/parents/{parentID}", h.deleteParent)
			rt.Post("/parents/{parentID}/variants", h.createVariant)
			rt.Put("/parents/{parentID}/variants/{variantID}", h.updateVariant)
			rt.Delete("/parents/{parentID}/variants/{variantID}", h.deleteVariant)
			rt.Post("/parents/{parentID}/variants/{variantID}/default", h.setDefaultVariant)
			rt.Post("/stock", h.setStock)
			rt.Get("/export.xlsx", h.exportCatalog)
		})
		g.Post("/media", h.uploadMedia)
		g.Delete("/media", h.deleteMedia)
	})
}

type adminParentRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Highlighted       bool   `json:"highlighted"`
	AgeRecommendation string `json:"ageRecommendation"`
}

type adminVariantRequest struct {
	VariantName string            `json:"variantName"`
	Price       int64             `json:"price"`
	Images      []string          `json:"images"`
	Description string            `json:"description"`
	Dimensions  string            `json:"dimensions"`
	Stock       int               `json:"stock"`
	Attributes  map[string]string `json:"attributes"`
	IsDefault   bool              `json:"isDefault"`
}

type adminStockRequest struct {
	Stock *int `json:"stock"`
}

type adminMediaDeleteRequest struct {
	URLs []string `json:"urls"`
}

type adminParentDetailResponse struct {
	Product  parentResponse    `json:"product"`
	Variants []variantResponse `json:"variants"`
}

type adminStockResponse struct {
	Updated int `json:"updated"`
	Stock   int `json:"stock"`
}

type uploadedImageResponse struct {
	URL         string `json:"url"`
	ObjectName  string `json:"objectName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type uploadResponse struct {
	Images []uploadedImageResponse `json:"images"`
}

func (h *AdminCatalogHandlers) listParents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	parents, err := h.catalog.ListParents(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := make([]parentResponse, 0, len(parents))
	for _, p := range parents {
		resp = append(resp, newParentResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminCatalogHandlers) getParent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	detail, err := h.catalog.GetParentAndVariants(ctx, chi.URLParam(r, "parentID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newParentDetailResponse(detail))
}

func (h *AdminCatalogHandlers) createParent(w http.ResponseWriter, r *http.Request) {
	h.saveParent(w, r, "")
}

func (h *AdminCatalogHandlers) updateParent(w http.ResponseWriter, r *http.Request) {
	h.saveParent(w, r, chi.URLParam(r, "parentID"))
}

func (h *AdminCatalogHandlers) saveParent(w http.ResponseWriter, r *http.Request, parentID string) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var req adminParentRequest
	if err := httpx.DecodeJSON(r, &req, maxCatalogRequestBody); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	cmd := services.UpsertParentCommand{
		ID:                parentID,
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Highlighted:       req.Highlighted,
		AgeRecommendation: req.AgeRecommendation,
		ActorID:           actorID(r),
	}

	var (
		parent domain.ParentProduct
		err    error
		status = http.StatusOK
	)
	if parentID == "" {
		parent, err = h.catalog.CreateParent(ctx, cmd)
		status = http.StatusCreated
	} else {
		parent, err = h.catalog.UpdateParent(ctx, cmd)
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, status, newParentResponse(parent))
}

func (h *AdminCatalogHandlers) deleteParent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	err := h.catalog.DeleteParent(ctx, services.DeleteParentCommand{
		ParentID: chi.URLParam(r, "parentID"),
		ActorID:  actorID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) createVariant(w http.ResponseWriter, r *http.Request) {
	h.saveVariant(w, r, "")
}

func (h *AdminCatalogHandlers) updateVariant(w http.ResponseWriter, r *http.Request) {
	h.saveVariant(w, r, chi.URLParam(r, "variantID"))
}

func (h *AdminCatalogHandlers) saveVariant(w http.ResponseWriter, r *http.Request, variantID string) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var req adminVariantRequest
	if err := httpx.DecodeJSON(r, &req, maxCatalogRequestBody); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	cmd := services.UpsertVariantCommand{
		ParentID:    chi.URLParam(r, "parentID"),
		VariantID:   variantID,
		VariantName: req.VariantName,
		Price:       req.Price,
		Images:      req.Images,
		Description: req.Description,
		Dimensions:  req.Dimensions,
		Stock:       req.Stock,
		Attributes:  req.Attributes,
		IsDefault:   req.IsDefault,
		ActorID:     actorID(r),
	}

	var (
		variant domain.ProductVariant
		err     error
		status  = http.StatusOK
	)
	if variantID == "" {
		variant, err = h.catalog.CreateVariant(ctx, cmd)
		status = http.StatusCreated
	} else {
		variant, err = h.catalog.UpdateVariant(ctx, cmd)
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, status, newVariantResponse(variant))
}

func (h *AdminCatalogHandlers) deleteVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	err := h.catalog.DeleteVariant(ctx, services.DeleteVariantCommand{
		ParentID:  chi.URLParam(r, "parentID"),
		VariantID: chi.URLParam(r, "variantID"),
		ActorID:   actorID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) setDefaultVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	parentID := chi.URLParam(r, "parentID")
	err := h.catalog.SetDefaultVariant(ctx, services.SetDefaultVariantCommand{
		ParentID:  parentID,
		VariantID: chi.URLParam(r, "variantID"),
		ActorID:   actorID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	detail, err := h.catalog.GetParentAndVariants(ctx, parentID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newParentDetailResponse(detail))
}

func (h *AdminCatalogHandlers) setStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeUnavailable(ctx, w, "inventory")
		return
	}
	var req adminStockRequest
	if err := httpx.DecodeJSON(r, &req, maxCatalogRequestBody); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	if req.Stock == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", msgInvalidInput, http.StatusBadRequest).
			WithFields(map[string]string{"stock": "es obligatorio"}))
		return
	}
	result, err := h.inventory.SetStockForAll(ctx, services.SetStockCommand{Stock: *req.Stock, ActorID: actorID(r)})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminStockResponse{Updated: result.Updated, Stock: result.Stock})
}

func (h *AdminCatalogHandlers) exportCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.export == nil {
		writeUnavailable(ctx, w, "export")
		return
	}
	var buf bytes.Buffer
	if _, err := h.export.ExportCatalog(ctx, &buf); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", exportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="catalogo.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *AdminCatalogHandlers) uploadMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		writeUnavailable(ctx, w, "media")
		return
	}
	limit := h.uploadBodyLimit()
	if r.ContentLength > limit {
		writeServiceError(ctx, w, services.ErrImageTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(ctx, w, services.ErrImageTooLarge)
			return
		}
		writeBadRequest(ctx, w, fmt.Errorf("invalid multipart body: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "No se recibieron archivos", http.StatusBadRequest))
		return
	}
	if len(headers) > maxUploadFiles {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("Máximo %d archivos por solicitud", maxUploadFiles), http.StatusBadRequest))
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFileFromHeader(fh))
	}
	images, err := h.media.Upload(ctx, files)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := uploadResponse{Images: make([]uploadedImageResponse, 0, len(images))}
	for _, img := range images {
		resp.Images = append(resp.Images, uploadedImageResponse{
			URL:         img.URL,
			ObjectName:  img.ObjectName,
			ContentType: img.ContentType,
			Size:        img.Size,
		})
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *AdminCatalogHandlers) deleteMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		writeUnavailable(ctx, w, "media")
		return
	}
	var req adminMediaDeleteRequest
	if err := httpx.DecodeJSON(r, &req, maxCatalogRequestBody); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	h.media.Delete(ctx, req.URLs...)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) uploadBodyLimit() int64 {
	return maxUploadFiles*h.fileBytes + multipartOverhead
}

func uploadFileFromHeader(fh *multipart.FileHeader) services.UploadFile {
	return services.UploadFile{
		FileName:    fh.Filename,
		ContentType: strings.TrimSpace(fh.Header.Get("Content-Type")),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func newParentDetailResponse(detail domain.ProductDetail) adminParentDetailResponse {
	resp := adminParentDetailResponse{
		Product:  newParentResponse(detail.Parent),
		Variants: make([]variantResponse, 0, len(detail.Variants)),
	}
	for _, v := range detail.Variants {
		resp.Variants = append(resp.Variants, newVariantResponse(v))
	}
	return resp
}

func actorID(r *http.Request) string {
	if admin, ok := auth.AdminFromContext(r.Context()); ok {
		return admin.UID
	}
	return ""
}
