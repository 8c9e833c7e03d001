package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goerrors "github.com/goliatone/go-errors"
)

// TokenService issues and verifies the three token classes. Access and
// two-factor challenge tokens share the access secret; refresh tokens are
// signed with a distinct secret, so a leaked access secret never lets an
// attacker mint refresh tokens.
type TokenService interface {
	IssueAccessToken(user *User, roles []string, perms []string) (string, *JWTClaims, error)
	IssueRefreshToken(user *User, extended bool) (string, *JWTClaims, error)
	IssueTwoFactorToken(user *User, extended bool) (string, *JWTClaims, error)
	Verify(raw string, expected TokenType) (*JWTClaims, error)
}

type tokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	challengeTTL  time.Duration
	issuer        string
	audience      jwt.ClaimStrings
	method        jwt.SigningMethod
	logger        Logger
}

// NewTokenService builds a TokenService from the given config.
func NewTokenService(cfg Config) (TokenService, error) {
	if cfg.GetAccessSigningKey() == "" || cfg.GetRefreshSigningKey() == "" {
		return nil, goerrors.New("token service requires both signing keys", goerrors.CategoryBadInput)
	}

	if cfg.GetAccessSigningKey() == cfg.GetRefreshSigningKey() {
		return nil, goerrors.New("access and refresh signing keys must differ", goerrors.CategoryBadInput)
	}

	method := jwt.GetSigningMethod(cfg.GetSigningMethod())
	if method == nil {
		method = jwt.SigningMethodHS256
	}

	var audience jwt.ClaimStrings
	if aud := cfg.GetAudience(); len(aud) > 0 {
		audience = jwt.ClaimStrings(aud)
	}

	return &tokenService{
		accessSecret:  []byte(cfg.GetAccessSigningKey()),
		refreshSecret: []byte(cfg.GetRefreshSigningKey()),
		accessTTL:     cfg.GetAccessTokenTTL(),
		refreshTTL:    cfg.GetRefreshTokenTTL(),
		challengeTTL:  cfg.GetChallengeTokenTTL(),
		issuer:        cfg.GetIssuer(),
		audience:      audience,
		method:        method,
		logger:        defLogger{},
	}, nil
}

func (s *tokenService) IssueAccessToken(user *User, roles []string, perms []string) (string, *JWTClaims, error) {
	claims := s.baseClaims(user, TokenTypeAccess, s.accessTTL)
	claims.RoleSet = roles
	claims.PermSet = perms
	signed, err := s.sign(claims, s.accessSecret)
	return signed, claims, err
}

func (s *tokenService) IssueRefreshToken(user *User, extended bool) (string, *JWTClaims, error) {
	ttl := s.refreshTTL
	if extended {
		ttl = ttl * 2
	}
	claims := s.baseClaims(user, TokenTypeRefresh, ttl)
	signed, err := s.sign(claims, s.refreshSecret)
	return signed, claims, err
}

// IssueTwoFactorToken mints the step-up challenge. The extended flag records
// the remember-me choice made at the password step so completing the
// challenge can honor it.
func (s *tokenService) IssueTwoFactorToken(user *User, extended bool) (string, *JWTClaims, error) {
	claims := s.baseClaims(user, TokenTypeTwoFactor, s.challengeTTL)
	claims.Extended = extended
	signed, err := s.sign(claims, s.accessSecret)
	return signed, claims, err
}

// Verify parses and validates raw against the secret for the expected token
// class. A structurally valid token of the wrong class fails with
// ErrTokenInvalid, never ErrTokenExpired, so callers can trust expiry errors
// to mean a genuinely expired token of the right class.
func (s *tokenService) Verify(raw string, expected TokenType) (*JWTClaims, error) {
	secret := s.accessSecret
	if expected == TokenTypeRefresh {
		secret = s.refreshSecret
	}

	claims := &JWTClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// expiry is only meaningful for the right class
			if claims.Type == expected {
				return nil, ErrTokenExpired
			}
			return nil, ErrTokenInvalid
		}
		// the parse error stays in the log; clients only see the text code
		s.logger.Debug("token verification failed: %v", err)
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.Type != expected {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (s *tokenService) baseClaims(user *User, typ TokenType, ttl time.Duration) *JWTClaims {
	now := time.Now()
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			Audience:  s.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UID:       user.ID.String(),
		UserEmail: user.Email,
		Type:      typ,
	}
}

func (s *tokenService) sign(claims *JWTClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to sign token")
	}
	return signed, nil
}
