package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/maxg-dev/santiscl/internal/platform/config"
)

const defaultCallTimeout = 5 * time.Second

var errVerifierNotInitialised = errors.New("auth: firebase client not initialised")

// FirebaseClient coordinates Firebase Admin SDK calls used for admin sessions.
type FirebaseClient struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// FirebaseOption customises FirebaseClient instances.
type FirebaseOption func(*FirebaseClient)

// WithFirebaseTimeout overrides the timeout used for Admin SDK calls.
func WithFirebaseTimeout(d time.Duration) FirebaseOption {
	return func(c *FirebaseClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewFirebaseClient constructs a FirebaseClient backed by the Admin SDK.
func NewFirebaseClient(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*FirebaseClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	c := &FirebaseClient{client: authClient, timeout: defaultCallTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// VerifySession verifies a session cookie and rejects revoked sessions.
func (c *FirebaseClient) VerifySession(ctx context.Context, cookie string) (*firebaseauth.Token, error) {
	if c == nil || c.client == nil {
		return nil, errVerifierNotInitialised
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.VerifySessionCookieAndCheckRevoked(ctx, cookie)
}

// VerifyIDToken verifies a Firebase ID token and rejects revoked tokens.
func (c *FirebaseClient) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if c == nil || c.client == nil {
		return nil, errVerifierNotInitialised
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
}

// SessionCookie exchanges an ID token for a session cookie valid for ttl.
func (c *FirebaseClient) SessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error) {
	if c == nil || c.client == nil {
		return "", errVerifierNotInitialised
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.SessionCookie(ctx, idToken, ttl)
}

// RevokeSessions revokes every refresh token issued to uid.
func (c *FirebaseClient) RevokeSessions(ctx context.Context, uid string) error {
	if c == nil || c.client == nil {
		return errVerifierNotInitialised
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.RevokeRefreshTokens(ctx, uid)
}

// CreateUser registers an email/password account and returns its uid. An existing account
// with the same email is reused.
func (c *FirebaseClient) CreateUser(ctx context.Context, email, password string) (string, error) {
	if c == nil || c.client == nil {
		return "", errVerifierNotInitialised
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := (&firebaseauth.UserToCreate{}).Email(email).Password(password)
	record, err := c.client.CreateUser(ctx, params)
	if firebaseauth.IsEmailAlreadyExists(err) {
		record, err = c.client.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return "", err
	}
	return record.UID, nil
}

func (c *FirebaseClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
