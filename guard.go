package auth

import (
	"time"

	"github.com/goliatone/go-router"
)

// Guard builds authorization middleware over claims placed in the router
// context by the JWT middleware. Denials are audited with the required
// versus held capabilities; the client only ever sees the generic
// insufficient-permissions error.
type Guard struct {
	contextKey   string
	activitySink ActivitySink
	logger       Logger
}

func NewGuard(cfg Config) *Guard {
	key := "user"
	if cfg != nil && cfg.GetContextKey() != "" {
		key = cfg.GetContextKey()
	}
	return &Guard{
		contextKey:   key,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

func (g *Guard) WithActivitySink(sink ActivitySink) *Guard {
	g.activitySink = normalizeActivitySink(sink)
	return g
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// RequireRole passes when the claims carry any of the given roles.
func (g *Guard) RequireRole(roles ...string) router.MiddlewareFunc {
	return g.middleware(func(claims AuthClaims) bool {
		return claims.HasRole(roles...)
	}, map[string]any{"required_roles": roles})
}

// RequirePermission passes when the claims carry the (resource, action)
// capability.
func (g *Guard) RequirePermission(resource, action string) router.MiddlewareFunc {
	return g.middleware(func(claims AuthClaims) bool {
		return claims.HasPermission(resource, action)
	}, map[string]any{"required_permission": PermissionKey(resource, action)})
}

// RequireAnyPermission passes when at least one key is present.
func (g *Guard) RequireAnyPermission(keys ...string) router.MiddlewareFunc {
	return g.middleware(func(claims AuthClaims) bool {
		return claims.HasAnyPermission(keys...)
	}, map[string]any{"required_any": keys})
}

// RequireAllPermissions passes only when every key is present.
func (g *Guard) RequireAllPermissions(keys ...string) router.MiddlewareFunc {
	return g.middleware(func(claims AuthClaims) bool {
		return claims.HasAllPermissions(keys...)
	}, map[string]any{"required_all": keys})
}

// RequireOwnerOrAdmin resolves the owner id from the request and applies the
// ownership rule, admin bypass first.
func (g *Guard) RequireOwnerOrAdmin(ownerID func(router.Context) string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims, ok := GetRouterClaims(c, g.contextKey)
			if !ok {
				return ErrTokenInvalid
			}

			owner := ""
			if ownerID != nil {
				owner = ownerID(c)
			}

			if !claims.IsOwnerOrAdmin(owner) {
				g.deny(c, claims, map[string]any{"owner_id": owner})
				return ErrInsufficientPermissions
			}

			return c.Next()
		}
	}
}

func (g *Guard) middleware(allowed func(AuthClaims) bool, required map[string]any) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims, ok := GetRouterClaims(c, g.contextKey)
			if !ok {
				return ErrTokenInvalid
			}

			if !allowed(claims) {
				g.deny(c, claims, required)
				return ErrInsufficientPermissions
			}

			return c.Next()
		}
	}
}

// deny audits the refusal with the full required-versus-held picture. The
// detail stays server side.
func (g *Guard) deny(c router.Context, claims AuthClaims, required map[string]any) {
	metadata := map[string]any{
		"path":       c.OriginalURL(),
		"held_roles": claims.Roles(),
		"held_perms": claims.Permissions(),
	}
	for k, v := range required {
		metadata[k] = v
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccessDenied,
		UserID:     claims.UserID(),
		Actor:      ActorRef{ID: claims.UserID(), Type: "user"},
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := g.activitySink.Record(c.Context(), event); err != nil {
		g.logger.Error("activity sink error for %s: %v", event.EventType, err)
	}
}
