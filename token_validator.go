package auth

import (
	"github.com/goliatone/go-memberauth/middleware/jwtware"
)

// accessTokenValidator adapts the TokenService to the jwtware middleware,
// pinning verification to the access token class.
type accessTokenValidator struct {
	tokens TokenService
}

// NewAccessTokenValidator exposes the token service to jwtware. Only access
// tokens pass; refresh and challenge tokens presented on protected routes
// fail like any other invalid token.
func NewAccessTokenValidator(tokens TokenService) jwtware.TokenValidator {
	return &accessTokenValidator{tokens: tokens}
}

func (v *accessTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Verify(tokenString, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// jwtware.AuthClaims mirrors the resolver subset of AuthClaims, so the
// concrete claims satisfy both.
var _ jwtware.AuthClaims = (*JWTClaims)(nil)
