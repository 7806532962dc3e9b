package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

var (
	// ErrInvalidCredentials is returned when the email or password is rejected.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrSignInUnavailable is returned when the sign-in backend cannot be reached or is not configured.
	ErrSignInUnavailable = errors.New("auth: sign-in unavailable")
)

// SignInResult is the outcome of a successful email/password sign-in.
type SignInResult struct {
	UID     string
	Email   string
	IDToken string
}

// PasswordSignIn verifies email/password credentials through the Identity Toolkit API.
type PasswordSignIn struct {
	service *identitytoolkit.Service
}

// NewPasswordSignIn builds a client authenticated with the project's web API key.
func NewPasswordSignIn(ctx context.Context, apiKey string, opts ...option.ClientOption) (*PasswordSignIn, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: web api key is required", ErrSignInUnavailable)
	}
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise identity toolkit: %w", err)
	}
	return &PasswordSignIn{service: svc}, nil
}

// SignIn exchanges credentials for an ID token.
func (p *PasswordSignIn) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	if p == nil || p.service == nil {
		return SignInResult{}, ErrSignInUnavailable
	}
	resp, err := p.service.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return SignInResult{}, classifySignInError(err)
	}
	return SignInResult{UID: resp.LocalId, Email: resp.Email, IDToken: resp.IdToken}, nil
}

func classifySignInError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrSignInUnavailable, err)
}
