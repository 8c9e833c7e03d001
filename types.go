package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider resolves named, scoped loggers (e.g. "auth.authenticator").
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ResolveLogger picks the logger for a component: an explicit logger wins,
// then a provider-scoped logger, then the package default. The resolved
// provider is returned so builders can hand it down to sub-components.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		return provider, logger
	}

	if provider != nil {
		if scoped := provider.GetLogger(name); scoped != nil {
			return provider, scoped
		}
	}

	return provider, defLogger{}
}

// Authenticator holds the session lifecycle operations
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, challengeToken, code string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, accessToken string)
}

// UserStore is the credential store adapter. The orchestrator never touches
// persistence directly; everything flows through this interface so the
// backing store (bun repository here) stays swappable.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// UpdateLoginState persists the single lockout update produced by the
	// LockoutPolicy. It must be one self-contained write.
	UpdateLoginState(ctx context.Context, id uuid.UUID, update LockoutUpdate) error
	// RolesAndPermissions loads the principal's roles with their permission
	// relations populated.
	RolesAndPermissions(ctx context.Context, id uuid.UUID) ([]*Role, error)
	StageTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error
	ActivateTwoFactor(ctx context.Context, id uuid.UUID) error
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) (*LoginResult, error)
	VerifyTwoFactor(c router.Context, challengeToken, code string) (*LoginResult, error)
	Refresh(c router.Context) (*LoginResult, error)
	Logout(c router.Context)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetChallengeTokenTTL() time.Duration
	GetLockoutThreshold() int
	GetLockoutDuration() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetSigningMethod() string
	GetCookieSecure() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
