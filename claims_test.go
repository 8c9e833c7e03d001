package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-memberauth"
	"github.com/stretchr/testify/assert"
)

func premiumClaims() *auth.JWTClaims {
	return &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "b6a7c2a0-0000-4000-8000-000000000001",
		},
		UID:     "b6a7c2a0-0000-4000-8000-000000000001",
		Type:    auth.TokenTypeAccess,
		RoleSet: []string{"PREMIUM"},
		PermSet: []string{
			"events:view",
			"events:create",
			"announcements:view",
			"resources:view",
			"resources:upload",
		},
	}
}

func TestJWTClaims_HasRole(t *testing.T) {
	claims := premiumClaims()

	t.Run("matches a held role", func(t *testing.T) {
		assert.True(t, claims.HasRole("PREMIUM"))
	})

	t.Run("any-of semantics", func(t *testing.T) {
		assert.True(t, claims.HasRole("ADMIN", "PREMIUM"))
		assert.False(t, claims.HasRole("ADMIN", "STAFF"))
	})

	t.Run("empty query never matches", func(t *testing.T) {
		assert.False(t, claims.HasRole())
	})
}

func TestJWTClaims_HasPermission(t *testing.T) {
	claims := premiumClaims()

	assert.True(t, claims.HasPermission("events", "view"))
	assert.True(t, claims.HasPermission("resources", "upload"))
	assert.False(t, claims.HasPermission("events", "delete"))
	assert.False(t, claims.HasPermission("billing", "view"))
}

func TestJWTClaims_HasAnyPermission(t *testing.T) {
	claims := premiumClaims()

	assert.True(t, claims.HasAnyPermission("events:delete", "events:view"))
	assert.False(t, claims.HasAnyPermission("events:delete", "billing:view"))
	assert.False(t, claims.HasAnyPermission())
}

func TestJWTClaims_HasAllPermissions(t *testing.T) {
	claims := premiumClaims()

	assert.True(t, claims.HasAllPermissions("events:view", "resources:upload"))
	assert.False(t, claims.HasAllPermissions("events:view", "events:delete"))

	t.Run("empty list is vacuously true", func(t *testing.T) {
		assert.True(t, claims.HasAllPermissions())
	})
}

func TestJWTClaims_IsOwnerOrAdmin(t *testing.T) {
	t.Run("owner passes", func(t *testing.T) {
		claims := premiumClaims()
		assert.True(t, claims.IsOwnerOrAdmin(claims.UserID()))
	})

	t.Run("non-owner without admin fails", func(t *testing.T) {
		claims := premiumClaims()
		assert.False(t, claims.IsOwnerOrAdmin("someone-else"))
	})

	t.Run("admin passes regardless of ownership", func(t *testing.T) {
		claims := premiumClaims()
		claims.RoleSet = []string{auth.RoleAdmin}
		assert.True(t, claims.IsOwnerOrAdmin("someone-else"))
	})

	t.Run("empty owner id never matches by ownership", func(t *testing.T) {
		claims := premiumClaims()
		claims.UID = ""
		claims.RegisteredClaims.Subject = ""
		assert.False(t, claims.IsOwnerOrAdmin(""))
	})

	t.Run("overridden AdminRoles grant the bypass", func(t *testing.T) {
		original := auth.AdminRoles
		auth.AdminRoles = []string{"SUPERUSER"}
		defer func() { auth.AdminRoles = original }()

		claims := premiumClaims()
		claims.RoleSet = []string{"SUPERUSER"}
		assert.True(t, claims.IsOwnerOrAdmin("someone-else"))

		claims.RoleSet = []string{auth.RoleAdmin}
		assert.False(t, claims.IsOwnerOrAdmin("someone-else"))
	})
}

func TestJWTClaims_UserIDFallsBackToSubject(t *testing.T) {
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
	}
	assert.Equal(t, "subject-id", claims.UserID())
}
