package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/maxg-dev/santiscl/internal/platform/httpx"
)

// SessionCookieName is the cookie carrying the Firebase session.
const SessionCookieName = "__session"

const defaultVerifyTimeout = 5 * time.Second

// SessionVerifier verifies Firebase session cookies and ID tokens.
type SessionVerifier interface {
	VerifySession(ctx context.Context, cookie string) (*firebaseauth.Token, error)
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// AdminChecker reports whether uid is registered as an administrator.
type AdminChecker func(ctx context.Context, uid string) (bool, error)

// Authenticator wires Firebase session verification and the admin registry into HTTP middleware.
type Authenticator struct {
	verifier SessionVerifier
	isAdmin  AdminChecker
	timeout  time.Duration
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithVerificationTimeout sets the timeout used when verifying credentials.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(verifier SessionVerifier, isAdmin AdminChecker, opts ...Option) *Authenticator {
	a := &Authenticator{
		verifier: verifier,
		isAdmin:  isAdmin,
		timeout:  defaultVerifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireAdmin admits requests carrying a valid session cookie (or bearer ID token) whose
// uid is present in the admin registry. Registry failures deny access.
func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil || a.verifier == nil || a.isAdmin == nil {
				respondAuthError(r.Context(), w, http.StatusServiceUnavailable, "auth_unavailable", "Autenticación no configurada.")
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
			defer cancel()

			token, err := a.verify(ctx, r)
			if err != nil {
				respondVerificationError(r.Context(), w, err)
				return
			}

			ok, err := a.isAdmin(ctx, token.UID)
			if err != nil {
				respondAuthError(r.Context(), w, http.StatusServiceUnavailable, "admin_registry_unavailable", "No se pudo verificar el acceso de administrador.")
				return
			}
			if !ok {
				respondAuthError(r.Context(), w, http.StatusForbidden, "not_admin", "No tienes permisos de administrador.")
				return
			}

			admin := &Admin{
				UID:   token.UID,
				Email: claimAsString(token.Claims, "email"),
			}
			if token.Expires > 0 {
				admin.ExpiresAt = time.Unix(token.Expires, 0).UTC()
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
		})
	}
}

var errMissingCredentials = errors.New("auth: credentials missing")

func (a *Authenticator) verify(ctx context.Context, r *http.Request) (*firebaseauth.Token, error) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return a.verifier.VerifySession(ctx, strings.TrimSpace(cookie.Value))
	}
	if bearer, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
		return a.verifier.VerifyIDToken(ctx, bearer)
	}
	return nil, errMissingCredentials
}

// SetSessionCookie writes the session cookie with the given lifetime.
func SetSessionCookie(w http.ResponseWriter, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func claimAsString(claims map[string]interface{}, key string) string {
	raw, ok := claims[key]
	if !ok {
		return ""
	}
	if v, ok := raw.(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondAuthError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	httpx.WriteError(ctx, w, httpx.NewError(code, message, status))
}

func respondVerificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingCredentials):
		respondAuthError(ctx, w, http.StatusUnauthorized, "unauthenticated", "Debes iniciar sesión.")
	case firebaseauth.IsSessionCookieExpired(err), firebaseauth.IsIDTokenExpired(err):
		respondAuthError(ctx, w, http.StatusUnauthorized, "session_expired", "La sesión expiró.")
	case firebaseauth.IsSessionCookieRevoked(err), firebaseauth.IsIDTokenRevoked(err):
		respondAuthError(ctx, w, http.StatusUnauthorized, "session_revoked", "La sesión fue revocada.")
	default:
		respondAuthError(ctx, w, http.StatusUnauthorized, "invalid_session", "La sesión no es válida.")
	}
}
