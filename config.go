package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Default lifetimes and lockout tuning. Lifetimes are deliberately short for
// access tokens and long for refresh tokens; the challenge token only needs
// to survive the round trip to an authenticator app.
const (
	DefaultAccessTokenTTL    = 15 * time.Minute
	DefaultRefreshTokenTTL   = 7 * 24 * time.Hour
	DefaultChallengeTokenTTL = 5 * time.Minute
	DefaultLockoutThreshold  = 5
	DefaultLockoutDuration   = 30 * time.Minute
)

// SimpleConfig is a plain struct implementation of Config with sane
// defaults. Zero values fall back to the defaults above.
type SimpleConfig struct {
	AccessSigningKey  string
	RefreshSigningKey string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ChallengeTokenTTL time.Duration
	LockoutThreshold  int
	LockoutDuration   time.Duration
	Issuer            string
	Audience          []string
	AccessCookieName  string
	RefreshCookieName string
	ContextKey        string
	TokenLookup       string
	AuthScheme        string
	SigningMethod     string
	CookieSecure      bool
}

var _ Config = (*SimpleConfig)(nil)

// Validate rejects configurations that would silently weaken the token
// isolation boundary: both secrets must be set and must differ.
func (c *SimpleConfig) Validate() error {
	if c.AccessSigningKey == "" || c.RefreshSigningKey == "" {
		return goerrors.New("both signing keys must be configured", goerrors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	if c.AccessSigningKey == c.RefreshSigningKey {
		return goerrors.New("access and refresh signing keys must differ", goerrors.CategoryValidation).
			WithTextCode("SHARED_SIGNING_KEY")
	}

	return nil
}

func (c *SimpleConfig) GetAccessSigningKey() string  { return c.AccessSigningKey }
func (c *SimpleConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }

func (c *SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c *SimpleConfig) GetChallengeTokenTTL() time.Duration {
	if c.ChallengeTokenTTL <= 0 {
		return DefaultChallengeTokenTTL
	}
	return c.ChallengeTokenTTL
}

func (c *SimpleConfig) GetLockoutThreshold() int {
	if c.LockoutThreshold <= 0 {
		return DefaultLockoutThreshold
	}
	return c.LockoutThreshold
}

func (c *SimpleConfig) GetLockoutDuration() time.Duration {
	if c.LockoutDuration <= 0 {
		return DefaultLockoutDuration
	}
	return c.LockoutDuration
}

func (c *SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetAccessCookieName() string {
	if c.AccessCookieName == "" {
		return "accessToken"
	}
	return c.AccessCookieName
}

func (c *SimpleConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "refreshToken"
	}
	return c.RefreshCookieName
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "cookie:" + c.GetAccessCookieName() + ",header:Authorization"
	}
	return c.TokenLookup
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c *SimpleConfig) GetCookieSecure() bool { return c.CookieSecure }
