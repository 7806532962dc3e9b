package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/httpx"
	"github.com/maxg-dev/santiscl/internal/platform/pagination"
	"github.com/maxg-dev/santiscl/internal/services"
)

const maxContactBodyBytes = 16 * 1024

// ContactHandlers serves the public contact form and the admin inbox.
type ContactHandlers struct {
	contacts services.ContactService
	limiter  rateLimiter
}

// ContactOption customises contact handlers.
type ContactOption func(*ContactHandlers)

// WithContactRateLimit allows each client address limit submissions, refilled evenly over window.
func WithContactRateLimit(limit int, window time.Duration, clock func() time.Time) ContactOption {
	return func(h *ContactHandlers) {
		h.limiter = newClientLimiter(limit, window, clock)
	}
}

// NewContactHandlers constructs contact handlers.
func NewContactHandlers(contacts services.ContactService, opts ...ContactOption) *ContactHandlers {
	h := &ContactHandlers{contacts: contacts}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// PublicRoutes registers the contact form endpoint.
func (h *ContactHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/contact", h.submit)
}

// AdminRoutes registers the inbox endpoint.
func (h *ContactHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/contacts", h.list)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type contactResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type contactListResponse struct {
	Items         []contactResponse `json:"items"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

func (h *ContactHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.contacts == nil {
		writeUnavailable(ctx, w, "contact")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "Demasiados mensajes. Intenta nuevamente más tarde.", http.StatusTooManyRequests))
		return
	}
	var req contactRequest
	if err := httpx.DecodeJSON(r, &req, maxContactBodyBytes); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	msg, err := h.contacts.Submit(ctx, services.SubmitContactCommand{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newContactResponse(msg))
}

func (h *ContactHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.contacts == nil {
		writeUnavailable(ctx, w, "contact")
		return
	}
	params, err := pagination.Parse(r.URL.Query())
	if err != nil {
		field := "pageToken"
		if errors.Is(err, pagination.ErrInvalidPageSize) {
			field = "pageSize"
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", msgInvalidInput, http.StatusBadRequest).
			WithFields(map[string]string{field: strings.TrimPrefix(err.Error(), "pagination: ")}))
		return
	}
	page, err := h.contacts.List(ctx, domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := contactListResponse{Items: make([]contactResponse, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, msg := range page.Items {
		resp.Items = append(resp.Items, newContactResponse(msg))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func newContactResponse(msg domain.ContactMessage) contactResponse {
	return contactResponse{
		ID:        msg.ID,
		Name:      msg.Name,
		Email:     msg.Email,
		Subject:   msg.Subject,
		Message:   msg.Message,
		CreatedAt: formatTime(msg.CreatedAt),
	}
}
