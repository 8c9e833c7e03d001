package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-memberauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	user := &auth.User{ID: uuid.New(), Email: "member@example.com"}

	ctx := auth.WithContext(context.Background(), user)

	got, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, user, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	claims := premiumClaims()

	ctx := auth.WithClaimsContext(context.Background(), claims)

	got, ok := auth.GetClaims(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.UserID(), got.UserID())

	_, ok = auth.GetClaims(context.Background())
	assert.False(t, ok)
}

func TestCan(t *testing.T) {
	ctx := auth.WithClaimsContext(context.Background(), premiumClaims())

	assert.True(t, auth.Can(ctx, "events", "view"))
	assert.False(t, auth.Can(ctx, "events", "delete"))
	assert.False(t, auth.Can(context.Background(), "events", "view"))
}

func TestIsOwnerOrAdminFromContext(t *testing.T) {
	claims := premiumClaims()
	ctx := auth.WithClaimsContext(context.Background(), claims)

	assert.True(t, auth.IsOwnerOrAdmin(ctx, claims.UserID()))
	assert.False(t, auth.IsOwnerOrAdmin(ctx, "someone-else"))
	assert.False(t, auth.IsOwnerOrAdmin(context.Background(), "anyone"))

	admin := premiumClaims()
	admin.RoleSet = []string{auth.RoleAdmin}
	adminCtx := auth.WithClaimsContext(context.Background(), admin)
	assert.True(t, auth.IsOwnerOrAdmin(adminCtx, "someone-else"))
}

func TestGetRouterClaims(t *testing.T) {
	t.Run("reads claims from locals", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(premiumClaims())

		claims, ok := auth.GetRouterClaims(ctx, "")
		assert.True(t, ok)
		assert.Equal(t, []string{"PREMIUM"}, claims.Roles())
	})

	t.Run("missing local fails", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "jwt").Return(nil)

		_, ok := auth.GetRouterClaims(ctx, "jwt")
		assert.False(t, ok)
	})

	t.Run("wrong type fails", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return("not claims")

		_, ok := auth.GetRouterClaims(ctx, "user")
		assert.False(t, ok)
	})
}
