package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const (
	minAdminPasswordLength = 6
	defaultSessionTTL      = 5 * 24 * time.Hour
)

// PasswordVerifier exchanges email/password credentials for an ID token.
type PasswordVerifier interface {
	SignIn(ctx context.Context, email, password string) (auth.SignInResult, error)
}

// IdentityAdmin manages identity provider accounts and sessions.
type IdentityAdmin interface {
	SessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error)
	RevokeSessions(ctx context.Context, uid string) error
	CreateUser(ctx context.Context, email, password string) (string, error)
}

// AdminAuthServiceDeps bundles collaborators for admin sign-in.
type AdminAuthServiceDeps struct {
	Passwords  PasswordVerifier
	Identity   IdentityAdmin
	Admins     repositories.AdminRepository
	SessionTTL time.Duration
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type adminAuthService struct {
	passwords  PasswordVerifier
	identity   IdentityAdmin
	admins     repositories.AdminRepository
	sessionTTL time.Duration
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

var _ AdminAuthService = (*adminAuthService)(nil)

// NewAdminAuthService constructs the admin authentication service.
func NewAdminAuthService(deps AdminAuthServiceDeps) (AdminAuthService, error) {
	if deps.Identity == nil {
		return nil, errors.New("admin auth service: identity admin is required")
	}
	if deps.Admins == nil {
		return nil, errors.New("admin auth service: admin repository is required")
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &adminAuthService{
		passwords:  deps.Passwords,
		identity:   deps.Identity,
		admins:     deps.Admins,
		sessionTTL: ttl,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

// AdminRegistryChecker adapts the admin registry to the auth middleware. Missing entries are not admins.
func AdminRegistryChecker(admins repositories.AdminRepository) auth.AdminChecker {
	return func(ctx context.Context, uid string) (bool, error) {
		account, err := admins.Get(ctx, uid)
		if err != nil {
			if repositories.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return account.IsAdmin, nil
	}
}

func (s *adminAuthService) SignIn(ctx context.Context, cmd SignInCommand) (AdminSession, error) {
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	if err := validateStruct(cmd); err != nil {
		return AdminSession{}, err
	}
	if s.passwords == nil {
		return AdminSession{}, ErrAuthUnavailable
	}

	result, err := s.passwords.SignIn(ctx, cmd.Email, cmd.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger(ctx, "admin_auth.sign_in_rejected", map[string]any{"email": cmd.Email})
		return AdminSession{}, ErrInvalidCredentials
	case err != nil:
		return AdminSession{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	isAdmin, err := AdminRegistryChecker(s.admins)(ctx, result.UID)
	if err != nil {
		return AdminSession{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if !isAdmin {
		if err := s.identity.RevokeSessions(ctx, result.UID); err != nil {
			s.logger(ctx, "admin_auth.revoke_failed", map[string]any{"uid": result.UID, "error": err})
		}
		s.logger(ctx, "admin_auth.non_admin_sign_in", map[string]any{"uid": result.UID})
		return AdminSession{}, ErrNotAdmin
	}

	cookie, err := s.identity.SessionCookie(ctx, result.IDToken, s.sessionTTL)
	if err != nil {
		return AdminSession{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	s.logger(ctx, "admin_auth.signed_in", map[string]any{"uid": result.UID})
	return AdminSession{
		UID:           result.UID,
		Email:         result.Email,
		SessionCookie: cookie,
		ExpiresIn:     int64(s.sessionTTL / time.Second),
	}, nil
}

func (s *adminAuthService) SignOut(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil
	}
	if err := s.identity.RevokeSessions(ctx, uid); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	s.logger(ctx, "admin_auth.signed_out", map[string]any{"uid": uid})
	return nil
}

func (s *adminAuthService) CurrentAdmin(ctx context.Context) (AdminIdentity, bool) {
	admin, ok := auth.AdminFromContext(ctx)
	if !ok || admin == nil {
		return AdminIdentity{}, false
	}
	return AdminIdentity{UID: admin.UID, Email: admin.Email}, true
}

func (s *adminAuthService) CreateAdmin(ctx context.Context, cmd CreateAdminCommand) (AdminAccount, error) {
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	if err := validateStruct(cmd); err != nil {
		return AdminAccount{}, err
	}
	if len([]rune(cmd.Password)) < minAdminPasswordLength {
		return AdminAccount{}, ErrWeakPassword
	}
	uid, err := s.identity.CreateUser(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return AdminAccount{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	account := AdminAccount{UID: uid, Email: cmd.Email, IsAdmin: true, CreatedAt: s.clock()}
	if err := s.admins.Upsert(ctx, account); err != nil {
		return AdminAccount{}, mapRepositoryError(err, nil)
	}
	s.logger(ctx, "admin_auth.admin_created", map[string]any{"uid": uid, "email": cmd.Email})
	return account, nil
}
