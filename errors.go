package auth

import (
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes exposed on structured errors so HTTP layers and clients can
// branch without string matching the message.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	TextCodeTwoFactorRequired  = "TWO_FACTOR_REQUIRED"
	TextCodeInvalidTwoFactor   = "INVALID_TWO_FACTOR_CODE"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	TextCodeInsufficientPerms  = "INSUFFICIENT_PERMISSIONS"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeTwoFactorNotStaged = "TWO_FACTOR_NOT_STAGED"
)

// ErrInvalidCredentials is returned for a missing principal or a password
// mismatch. The message is intentionally identical for both cases so a
// probing client cannot enumerate accounts.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(http.StatusUnauthorized)

// ErrAccountLocked is returned while the lockout window is open. Remaining
// minutes travel in the error metadata, see LockedError.
var ErrAccountLocked = goerrors.New("account temporarily locked", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeAccountLocked).
	WithCode(http.StatusLocked)

// ErrAccountDeactivated is returned when the principal exists and the
// password matched but the account is suspended or archived.
var ErrAccountDeactivated = goerrors.New("account is deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(http.StatusForbidden)

// ErrTwoFactorRequired signals that password verification succeeded and the
// caller must complete the TOTP step before tokens are issued. It is a
// control signal, not a failure: the HTTP layer maps it to a 200 response
// carrying the challenge token.
var ErrTwoFactorRequired = goerrors.New("two-factor verification required", goerrors.CategoryAuth).
	WithTextCode(TextCodeTwoFactorRequired).
	WithCode(http.StatusOK)

// ErrInvalidTwoFactorCode is returned for a wrong TOTP code. It never
// increments the password lockout counter.
var ErrInvalidTwoFactorCode = goerrors.New("invalid two-factor code", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidTwoFactor).
	WithCode(http.StatusUnauthorized)

// ErrTokenExpired is returned when signature and shape are fine but the
// token is past its expiry. This is the only verification failure that may
// trigger a transparent refresh at the route boundary.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(http.StatusUnauthorized)

// ErrTokenInvalid covers bad signatures, malformed payloads, and token-type
// mismatches. It must never trigger a transparent refresh.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(http.StatusUnauthorized)

// ErrInvalidRefreshToken is the refresh-endpoint flavor of ErrTokenInvalid:
// bad signature, expiry, revoked id, or an access token presented in the
// refresh slot.
var ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefresh).
	WithCode(http.StatusUnauthorized)

// ErrInsufficientPermissions is the only authorization failure clients see.
// The missing permission is recorded in the security audit event, not here.
var ErrInsufficientPermissions = goerrors.New("insufficient permissions", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPerms).
	WithCode(http.StatusForbidden)

// ErrTooManyLoginAttempts is returned by the injected login throttle before
// the store is ever consulted.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrIdentityNotFound is used by store adapters; the orchestrator converts
// it to ErrInvalidCredentials before anything reaches a client.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(http.StatusNotFound)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(http.StatusBadRequest)

// ErrMismatchedHashAndPassword is the low-level bcrypt mismatch; callers
// surface ErrInvalidCredentials instead.
var ErrMismatchedHashAndPassword = goerrors.New("hash and password mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(http.StatusUnauthorized)

// ErrUnableToFindSession is returned when a request carries no auth cookie.
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(http.StatusUnauthorized)

// ErrUnableToDecodeSession is returned when the cookie payload cannot be
// decoded into claims.
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(http.StatusUnauthorized)

// ErrUnableToMapClaims is returned when a parsed token carries claims of an
// unexpected shape.
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError).
	WithCode(http.StatusUnauthorized)

// ErrTwoFactorNotStaged is returned when activation is attempted without a
// prior BeginTwoFactorSetup call.
var ErrTwoFactorNotStaged = goerrors.New("no staged two-factor secret", goerrors.CategoryConflict).
	WithTextCode(TextCodeTwoFactorNotStaged).
	WithCode(http.StatusConflict)

// LockedError clones ErrAccountLocked and attaches the remaining lock
// duration, rounded up to whole minutes for client display.
func LockedError(remaining time.Duration) error {
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	clone := ErrAccountLocked.Clone()
	if clone == nil {
		return ErrAccountLocked
	}
	clone.Source = ErrAccountLocked
	return clone.WithMetadata(map[string]any{
		"retry_after_minutes": minutes,
	})
}

// IsTokenExpiredError will check for expired tokens, including legacy
// string-matched errors from upstream JWT middleware.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed/tampered token errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenInvalid {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsAccountLockedError reports whether err carries the lockout text code.
func IsAccountLockedError(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeAccountLocked
}

// IsTwoFactorRequired reports whether err is the step-up control signal.
func IsTwoFactorRequired(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTwoFactorRequired
}
