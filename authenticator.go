package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoginResult is the outcome of a successful lifecycle operation. When the
// principal has a second factor enrolled, Login returns RequiresTwoFactor
// with only the challenge token set; session tokens are withheld until
// VerifyTwoFactor succeeds.
type LoginResult struct {
	User              *PublicUser `json:"user,omitempty"`
	AccessToken       string      `json:"access_token,omitempty"`
	RefreshToken      string      `json:"refresh_token,omitempty"`
	ExpiresAt         time.Time   `json:"expires_at,omitempty"`
	RequiresTwoFactor bool        `json:"requires_two_factor,omitempty"`
	ChallengeToken    string      `json:"challenge_token,omitempty"`
	ExtendedSession   bool        `json:"-"`
}

// Auther orchestrates the session lifecycle: login, second factor
// verification, refresh rotation and logout. It composes the pure pieces
// (lockout policy, token service, TOTP verifier) around the UserStore and
// never reaches into persistence directly.
type Auther struct {
	store         UserStore
	tokens        TokenService
	lockout       LockoutPolicy
	limiter       LoginLimiter
	revoked       RevocationSet
	activitySink  ActivitySink
	logger        Logger
	issuer        string
	refreshMaxAge time.Duration
}

// NewAuthenticator returns a new Auther wired with safe defaults: no
// throttle, no revocation tracking, no audit sink. Production callers attach
// those through the With* builders.
func NewAuthenticator(store UserStore, cfg Config) (*Auther, error) {
	tokens, err := NewTokenService(cfg)
	if err != nil {
		return nil, err
	}

	return &Auther{
		store:         store,
		tokens:        tokens,
		lockout:       NewLockoutPolicy(cfg),
		limiter:       allowAllLimiter{},
		revoked:       noopRevocationSet{},
		activitySink:  noopActivitySink{},
		logger:        defLogger{},
		issuer:        cfg.GetIssuer(),
		refreshMaxAge: cfg.GetRefreshTokenTTL(),
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithLoginLimiter attaches a per-principal attempt throttle checked before
// any credential work.
func (s *Auther) WithLoginLimiter(limiter LoginLimiter) *Auther {
	s.limiter = normalizeLoginLimiter(limiter)
	return s
}

// WithRevocationSet attaches refresh token revocation tracking, enabling
// rotation reuse detection.
func (s *Auther) WithRevocationSet(set RevocationSet) *Auther {
	s.revoked = normalizeRevocationSet(set)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login implements the password step of the lifecycle. The failure paths are
// ordered so an attacker learns as little as possible: throttle, unknown
// identifier, active lock, password mismatch and deactivated account each
// exit with their own audit event but unknown-identifier and bad-password
// both surface as ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	return s.login(ctx, identifier, password, false)
}

// LoginExtended behaves like Login but issues a refresh token with double
// the configured lifetime, backing a remember-me style session.
func (s *Auther) LoginExtended(ctx context.Context, identifier, password string) (*LoginResult, error) {
	return s.login(ctx, identifier, password, true)
}

func (s *Auther) login(ctx context.Context, identifier, password string, extended bool) (*LoginResult, error) {
	now := time.Now()

	// registration stores emails lowercased; fold the identifier the same
	// way so lookups and throttle keys are case-insensitive
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	if !s.limiter.Allow(identifier) {
		s.logger.Warn("login throttled for %q", identifier)
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventLoginThrottled,
			Identifier: identifier,
			OccurredAt: now,
		})
		return nil, ErrTooManyLoginAttempts
	}

	user, err := s.store.FindUserByEmail(ctx, identifier)
	if err != nil || user == nil {
		s.logger.Debug("login identifier not found: %q", identifier)
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			Identifier: identifier,
			Metadata:   map[string]any{"reason": "unknown_identifier"},
			OccurredAt: now,
		})
		return nil, ErrInvalidCredentials
	}

	state, remaining, locked := s.lockout.Check(user.LockoutState(), now)
	if locked {
		s.logger.Warn("login rejected, account locked: %s", user.ID)
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventLoginLocked,
			UserID:     user.ID.String(),
			Identifier: identifier,
			Metadata:   map[string]any{"retry_after": remaining.String()},
			OccurredAt: now,
		})
		return nil, LockedError(remaining)
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		update := s.lockout.Failure(state, now)
		if perr := s.store.UpdateLoginState(ctx, user.ID, update); perr != nil {
			s.logger.Error("unable to persist failed attempt for %s: %v", user.ID, perr)
		}

		meta := map[string]any{
			"reason":             "password_mismatch",
			"attempts_remaining": s.lockout.AttemptsRemaining(LockoutState{FailedAttempts: update.FailedAttempts, LockedUntil: update.LockedUntil}),
		}
		if update.LockedUntil != nil {
			meta["locked_until"] = update.LockedUntil.Format(time.RFC3339)
		}

		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			UserID:     user.ID.String(),
			Identifier: identifier,
			Metadata:   meta,
			OccurredAt: now,
		})
		return nil, ErrInvalidCredentials
	}

	if err := s.store.UpdateLoginState(ctx, user.ID, s.lockout.Success(now)); err != nil {
		s.logger.Error("unable to reset lockout state for %s: %v", user.ID, err)
	}

	user.EnsureStatus()
	if !user.IsActive() {
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			UserID:     user.ID.String(),
			Identifier: identifier,
			Metadata:   map[string]any{"reason": "status", "status": string(user.Status)},
			OccurredAt: now,
		})
		return nil, statusAuthError(user.Status)
	}

	if user.TwoFactorEnabled {
		challenge, _, err := s.tokens.IssueTwoFactorToken(user, extended)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			User:              user.Public(),
			RequiresTwoFactor: true,
			ChallengeToken:    challenge,
		}, nil
	}

	return s.issueSession(ctx, user, extended, ActivityEventLoginSuccess, identifier)
}

// VerifyTwoFactor completes a login that returned RequiresTwoFactor. The
// challenge token proves the password step already passed; the code proves
// possession of the enrolled device. A challenge is consumed on first
// success: its jti joins the revocation set, so replaying the token within
// its TTL cannot mint a second session.
func (s *Auther) VerifyTwoFactor(ctx context.Context, challengeToken, code string) (*LoginResult, error) {
	claims, err := s.tokens.Verify(challengeToken, TokenTypeTwoFactor)
	if err != nil {
		return nil, err
	}

	used, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("challenge revocation lookup failed for %s: %v", claims.ID, err)
	}
	if used {
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventTwoFactorFailure,
			UserID:     claims.UserID(),
			Metadata:   map[string]any{"reason": "challenge_reuse", "jti": claims.ID},
			OccurredAt: time.Now(),
		})
		return nil, ErrTokenInvalid
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == "" {
		return nil, ErrInvalidTwoFactorCode
	}

	if !VerifyTOTP(user.TwoFactorSecret, code, time.Now()) {
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventTwoFactorFailure,
			UserID:     user.ID.String(),
			OccurredAt: time.Now(),
		})
		return nil, ErrInvalidTwoFactorCode
	}

	user.EnsureStatus()
	if !user.IsActive() {
		return nil, statusAuthError(user.Status)
	}

	if err := s.revoked.Revoke(ctx, claims.UserID(), claims.ID, claims.Expires()); err != nil {
		s.logger.Error("unable to consume challenge token %s: %v", claims.ID, err)
	}

	return s.issueSession(ctx, user, claims.Extended, ActivityEventTwoFactorSuccess, user.Email)
}

// Refresh rotates a refresh token: the presented token is verified, checked
// against the revocation set, revoked, and a brand new access/refresh pair
// is issued. Presenting an already rotated token is treated as theft
// evidence and audited as reuse.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	now := time.Now()

	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		// an expired refresh token is just an invalid one; there is no
		// softer failure mode at this entry point
		reason := "invalid_token"
		if IsTokenExpiredError(err) {
			reason = "expired"
		}
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventRefreshFailure,
			Metadata:   map[string]any{"reason": reason},
			OccurredAt: now,
		})
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation lookup failed for %s: %v", claims.ID, err)
	}
	if revoked {
		s.logger.Warn("refresh token reuse detected for user %s", claims.UserID())
		s.emit(ctx, ActivityEvent{
			EventType:  ActivityEventRefreshReuse,
			UserID:     claims.UserID(),
			Metadata:   map[string]any{"jti": claims.ID},
			OccurredAt: now,
		})
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	user.EnsureStatus()
	if !user.IsActive() {
		return nil, statusAuthError(user.Status)
	}

	if err := s.revoked.Revoke(ctx, claims.UserID(), claims.ID, claims.Expires()); err != nil {
		s.logger.Error("unable to revoke rotated token %s: %v", claims.ID, err)
	}

	return s.issueSession(ctx, user, false, ActivityEventRefreshSuccess, user.Email)
}

// Logout records the end of a session. Tokens are stateless, so this is an
// audit operation plus revocation of the session's refresh token when the
// caller supplies it; cookie clearing happens at the transport layer.
func (s *Auther) Logout(ctx context.Context, accessToken string) {
	now := time.Now()
	event := ActivityEvent{
		EventType:  ActivityEventLogout,
		OccurredAt: now,
	}

	if claims, err := s.tokens.Verify(accessToken, TokenTypeAccess); err == nil {
		event.UserID = claims.UserID()
		event.Identifier = claims.Email()
	}

	s.emit(ctx, event)
}

// RevokeRefreshToken invalidates a refresh token ahead of its expiry,
// typically alongside Logout.
func (s *Auther) RevokeRefreshToken(ctx context.Context, refreshToken string) {
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return
	}
	if err := s.revoked.Revoke(ctx, claims.UserID(), claims.ID, claims.Expires()); err != nil {
		s.logger.Error("unable to revoke token %s: %v", claims.ID, err)
	}
}

// BeginTwoFactorSetup stages a fresh secret for the principal and returns
// the provisioning material. The secret stays pending until
// ConfirmTwoFactorSetup proves the user's device can produce codes from it.
func (s *Auther) BeginTwoFactorSetup(ctx context.Context, userID uuid.UUID) (*TwoFactorSetup, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		return nil, ErrIdentityNotFound
	}

	secret, err := GenerateTwoFactorSecret()
	if err != nil {
		return nil, err
	}

	if err := s.store.StageTwoFactorSecret(ctx, userID, secret); err != nil {
		return nil, err
	}

	return &TwoFactorSetup{
		Secret:          secret,
		ProvisioningURI: TwoFactorProvisioningURI(secret, s.issuer, user.Email),
	}, nil
}

// ConfirmTwoFactorSetup activates a staged secret once the user submits a
// valid code generated from it.
func (s *Auther) ConfirmTwoFactorSetup(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		return ErrIdentityNotFound
	}

	if user.TwoFactorPending == "" {
		return ErrTwoFactorNotStaged
	}

	if !VerifyTOTP(user.TwoFactorPending, code, time.Now()) {
		return ErrInvalidTwoFactorCode
	}

	if err := s.store.ActivateTwoFactor(ctx, userID); err != nil {
		return err
	}

	s.emit(ctx, ActivityEvent{
		EventType:  ActivityEventTwoFactorEnrolled,
		UserID:     userID.String(),
		OccurredAt: time.Now(),
	})
	return nil
}

// DisableTwoFactor turns the second factor off for the principal.
func (s *Auther) DisableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DisableTwoFactor(ctx, userID); err != nil {
		return err
	}
	s.emit(ctx, ActivityEvent{
		EventType:  ActivityEventTwoFactorDisabled,
		UserID:     userID.String(),
		OccurredAt: time.Now(),
	})
	return nil
}

// issueSession loads authorization data and mints the access/refresh pair.
func (s *Auther) issueSession(ctx context.Context, user *User, extended bool, event ActivityEventType, identifier string) (*LoginResult, error) {
	roles, err := s.store.RolesAndPermissions(ctx, user.ID)
	if err != nil {
		s.logger.Error("unable to load roles for %s: %v", user.ID, err)
		roles = nil
	}

	access, accessClaims, err := s.tokens.IssueAccessToken(user, RoleNames(roles), FlattenPermissions(roles))
	if err != nil {
		return nil, err
	}

	refresh, _, err := s.tokens.IssueRefreshToken(user, extended)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEvent{
		EventType:  event,
		UserID:     user.ID.String(),
		Identifier: identifier,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		OccurredAt: time.Now(),
	})

	return &LoginResult{
		User:            user.Public(),
		AccessToken:     access,
		RefreshToken:    refresh,
		ExpiresAt:       accessClaims.Expires(),
		ExtendedSession: extended,
	}, nil
}

func (s *Auther) userFromClaims(ctx context.Context, claims *JWTClaims) (*User, error) {
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.store.FindUserByID(ctx, id)
	if err != nil || user == nil {
		return nil, ErrIdentityNotFound
	}
	return user, nil
}

// emit records an activity event without letting sink failures surface.
func (s *Auther) emit(ctx context.Context, event ActivityEvent) {
	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Error("activity sink error for %s: %v", event.EventType, err)
	}
}

var _ Authenticator = (*Auther)(nil)
