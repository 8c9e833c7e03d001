package auth

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-memberauth/middleware/jwtware"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Middleware is the protected-route surface of the HTTP authenticator.
type Middleware interface {
	ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error
}

// RouteAuthenticator binds the session lifecycle to HTTP transport: cookie
// handling, the JWT middleware, and the transparent refresh path. Both
// session cookies are HttpOnly and SameSite Strict, so scripts never see
// tokens and cross-site requests never send them.
type RouteAuthenticator struct {
	auth             *Auther
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// ProtectedRoute guards a route group with the JWT middleware. The error
// handler receives verification failures, including expiry; pair it with
// MakeClientRouteAuthErrorHandler to get transparent refresh.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: NewAccessTokenValidator(a.auth.TokenService()),
		SigningKey: jwtware.SigningKey{
			Key:    []byte(a.cfg.GetAccessSigningKey()),
			JWTAlg: a.cfg.GetSigningMethod(),
		},
		AuthScheme:      a.cfg.GetAuthScheme(),
		ContextKey:      a.cfg.GetContextKey(),
		TokenLookup:     a.cfg.GetTokenLookup(),
		ContextEnricher: ContextEnricherAdapter,
	})
}

// Login runs the password step and, when it fully succeeds, installs the
// session cookie pair. A two-factor challenge sets no cookies; the client
// holds only the challenge token until verification.
func (a *RouteAuthenticator) Login(c router.Context, payload LoginPayload) (*LoginResult, error) {
	var result *LoginResult
	var err error

	if payload.GetExtendedSession() {
		result, err = a.auth.LoginExtended(c.Context(), payload.GetIdentifier(), payload.GetPassword())
	} else {
		result, err = a.auth.Login(c.Context(), payload.GetIdentifier(), payload.GetPassword())
	}

	if err != nil {
		a.Logger.Error("login error: %v", err)
		return nil, err
	}

	if result.RequiresTwoFactor {
		return result, nil
	}

	a.setAuthCookies(c, result, payload.GetExtendedSession())
	return result, nil
}

// VerifyTwoFactor completes a challenged login and installs the cookie pair.
func (a *RouteAuthenticator) VerifyTwoFactor(c router.Context, challengeToken, code string) (*LoginResult, error) {
	result, err := a.auth.VerifyTwoFactor(c.Context(), challengeToken, code)
	if err != nil {
		a.Logger.Error("two factor verification error: %v", err)
		return nil, err
	}

	a.setAuthCookies(c, result, result.ExtendedSession)
	return result, nil
}

// Refresh rotates the session from the refresh cookie.
func (a *RouteAuthenticator) Refresh(c router.Context) (*LoginResult, error) {
	raw := c.Cookies(a.cfg.GetRefreshCookieName())
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}

	result, err := a.auth.Refresh(c.Context(), raw)
	if err != nil {
		a.Logger.Error("refresh error: %v", err)
		a.clearAuthCookies(c)
		return nil, err
	}

	a.setAuthCookies(c, result, false)
	return result, nil
}

// Logout records the logout, revokes the refresh token and clears both
// cookies. It never fails; a missing or invalid session still clears state.
func (a *RouteAuthenticator) Logout(c router.Context) {
	access := c.Cookies(a.cfg.GetAccessCookieName())
	a.auth.Logout(c.Context(), access)

	if refresh := c.Cookies(a.cfg.GetRefreshCookieName()); refresh != "" {
		a.auth.RevokeRefreshToken(c.Context(), refresh)
	}

	a.clearAuthCookies(c)
}

// MakeClientRouteAuthErrorHandler builds the middleware error handler. A
// genuinely expired access token triggers one transparent refresh attempt
// from the refresh cookie; every other failure, malformed tokens included,
// goes straight to the error path.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		if IsTokenExpiredError(err) {
			if result, rerr := a.Refresh(ctx); rerr == nil {
				// the retried request needs the refreshed identity in place,
				// same as the middleware success path installs it
				claims, verr := a.auth.TokenService().Verify(result.AccessToken, TokenTypeAccess)
				if verr == nil {
					ctx.Locals(a.cfg.GetContextKey(), claims)
					ctx.SetContext(WithClaimsContext(ctx.Context(), claims))
					a.Logger.Debug("access token refreshed transparently for %s", result.User.ID)
					return ctx.Next()
				}
				a.Logger.Error("refreshed access token failed verification: %v", verr)
			}
		}

		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenInvalid
		} else if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setAuthCookies(c router.Context, result *LoginResult, extended bool) {
	accessTTL := a.cfg.GetAccessTokenTTL()
	refreshTTL := a.cfg.GetRefreshTokenTTL()
	if extended {
		refreshTTL = refreshTTL * 2
	}

	a.setCookie(c, a.cfg.GetAccessCookieName(), result.AccessToken, accessTTL)
	a.setCookie(c, a.cfg.GetRefreshCookieName(), result.RefreshToken, refreshTTL)
}

func (a *RouteAuthenticator) clearAuthCookies(c router.Context) {
	a.cookieDel(c, a.cfg.GetAccessCookieName())
	a.cookieDel(c, a.cfg.GetRefreshCookieName())
}

func (a *RouteAuthenticator) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info("authentication error on %s: %s (%s)", c.OriginalURL(), richErr.Message, richErr.TextCode)

	return c.JSON(richErr.Code, router.ViewContext{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"middleware error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(richErr.Code, router.ViewContext{
			"error": "internal server error",
		})
	}
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
