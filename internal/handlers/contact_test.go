package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/pagination"
	"github.com/maxg-dev/santiscl/internal/platform/validation"
	"github.com/maxg-dev/santiscl/internal/services"
)

const validContactBody = `{"name":"Ana","email":"ana@example.com","subject":"Hola","message":"Quisiera saber más del arco."}`

func newContactRouter(h *ContactHandlers) chi.Router {
	router := chi.NewRouter()
	h.PublicRoutes(router)
	h.AdminRoutes(router)
	return router
}

func TestContactHandlers_Submit(t *testing.T) {
	svc := &stubContactService{}
	router := newContactRouter(NewContactHandlers(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validContactBody)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.submitted) != 1 || svc.submitted[0].Email != "ana@example.com" {
		t.Fatalf("unexpected submissions %+v", svc.submitted)
	}
	var body contactResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "msg-1" {
		t.Fatalf("unexpected id %s", body.ID)
	}
}

func TestContactHandlers_SubmitValidationError(t *testing.T) {
	svc := &stubContactService{submitErr: &services.InputError{Fields: validation.FieldErrors{"email": "no es un correo válido"}}}
	router := newContactRouter(NewContactHandlers(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validContactBody)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid_request" || body.Fields["email"] == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestContactHandlers_SubmitRejectsUnknownFields(t *testing.T) {
	svc := &stubContactService{}
	router := newContactRouter(NewContactHandlers(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"name":"Ana","phone":"123"}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(svc.submitted) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestContactHandlers_RateLimit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := &stubContactService{}
	router := newContactRouter(NewContactHandlers(svc, WithContactRateLimit(2, time.Minute, clock)))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validContactBody))
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("10.0.0.1:1234"); code != http.StatusCreated {
		t.Fatalf("first: expected 201, got %d", code)
	}
	if code := send("10.0.0.1:5678"); code != http.StatusCreated {
		t.Fatalf("second: expected 201, got %d", code)
	}
	if code := send("10.0.0.1:9999"); code != http.StatusTooManyRequests {
		t.Fatalf("third: expected 429, got %d", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusCreated {
		t.Fatalf("other client: expected 201, got %d", code)
	}

	now = now.Add(time.Minute)
	if code := send("10.0.0.1:1234"); code != http.StatusCreated {
		t.Fatalf("after window: expected 201, got %d", code)
	}
}

func TestContactHandlers_List(t *testing.T) {
	created := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubContactService{page: domain.CursorPage[services.ContactMessage]{
		Items:         []services.ContactMessage{{ID: "m1", Name: "Ana", Email: "ana@example.com", Message: "Hola hola hola", CreatedAt: created}},
		NextPageToken: "next",
	}}
	router := newContactRouter(NewContactHandlers(svc))

	token := pagination.EncodeToken(pagination.Cursor{CreatedAt: created, ID: "m0"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contacts?pageSize=500&pageToken="+token, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.lastPager.PageSize != pagination.MaxPageSize || svc.lastPager.PageToken != token {
		t.Fatalf("unexpected pager %+v", svc.lastPager)
	}
	var body contactListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.NextPageToken != "next" || body.Items[0].CreatedAt != "2025-02-01T10:00:00Z" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestContactHandlers_ListInvalidPageSize(t *testing.T) {
	router := newContactRouter(NewContactHandlers(&stubContactService{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contacts?pageSize=abc", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["pageSize"] == "" {
		t.Fatalf("expected pageSize field error, got %+v", body.Fields)
	}
}
