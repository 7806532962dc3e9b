package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/platform/httpx"
	"github.com/maxg-dev/santiscl/internal/services"
)

const maxSessionRequestBody = 8 * 1024

// AdminSessionHandlers manage the admin session cookie.
type AdminSessionHandlers struct {
	authn         *auth.Authenticator
	sessions      services.AdminAuthService
	secureCookies bool
}

// NewAdminSessionHandlers constructs session handlers. secureCookies marks the cookie Secure.
func NewAdminSessionHandlers(authn *auth.Authenticator, sessions services.AdminAuthService, secureCookies bool) *AdminSessionHandlers {
	return &AdminSessionHandlers{authn: authn, sessions: sessions, secureCookies: secureCookies}
}

// Routes registers sign-in publicly and the remaining session endpoints behind the admin guard.
func (h *AdminSessionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/session", h.signIn)
	r.Group(func(g chi.Router) {
		g.Use(h.authn.RequireAdmin())
		g.Delete("/session", h.signOut)
		g.Get("/session/me", h.me)
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expiresIn,omitempty"`
}

func (h *AdminSessionHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		writeUnavailable(ctx, w, "admin auth")
		return
	}
	var req signInRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	session, err := h.sessions.SignIn(ctx, services.SignInCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	auth.SetSessionCookie(w, session.SessionCookie, time.Duration(session.ExpiresIn)*time.Second, h.secureCookies)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{UID: session.UID, Email: session.Email, ExpiresIn: session.ExpiresIn})
}

func (h *AdminSessionHandlers) signOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		writeUnavailable(ctx, w, "admin auth")
		return
	}
	if uid := actorID(r); uid != "" {
		if err := h.sessions.SignOut(ctx, uid); err != nil {
			writeServiceError(ctx, w, err)
			return
		}
	}
	auth.ClearSessionCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminSessionHandlers) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		writeUnavailable(ctx, w, "admin auth")
		return
	}
	identity, ok := h.sessions.CurrentAdmin(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{UID: identity.UID, Email: identity.Email})
}
