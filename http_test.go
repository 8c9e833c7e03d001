package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-memberauth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHTTPFixture(t *testing.T, user *auth.User) (*auth.RouteAuthenticator, *memUserStore) {
	t.Helper()
	store := newMemUserStore(user)
	auther := newTestAuther(t, store)

	httpAuth, err := auth.NewHTTPAuthenticator(auther, tokenTestConfig())
	require.NoError(t, err)
	return httpAuth, store
}

func TestRouteAuthenticator_Login(t *testing.T) {
	t.Run("successful login sets both cookies", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		var cookies []*router.Cookie
		ctx := &MockContext{}
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookies = append(cookies, args.Get(0).(*router.Cookie))
		})

		result, err := httpAuth.Login(ctx, MockLoginPayload{
			Identifier: user.Email,
			Password:   testPassword,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)

		require.Len(t, cookies, 2)
		names := []string{cookies[0].Name, cookies[1].Name}
		assert.Contains(t, names, "accessToken")
		assert.Contains(t, names, "refreshToken")
		for _, c := range cookies {
			assert.True(t, c.HTTPOnly)
			assert.Equal(t, "Strict", c.SameSite)
		}
	})

	t.Run("two-factor challenge sets no cookies", func(t *testing.T) {
		user := newTestUser(t)
		user.TwoFactorEnabled = true
		user.TwoFactorSecret = rfc6238Secret
		httpAuth, _ := newHTTPFixture(t, user)

		ctx := &MockContext{}
		ctx.On("Context").Return(context.Background())

		result, err := httpAuth.Login(ctx, MockLoginPayload{
			Identifier: user.Email,
			Password:   testPassword,
		})
		require.NoError(t, err)

		assert.True(t, result.RequiresTwoFactor)
		assert.NotEmpty(t, result.ChallengeToken)
		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})

	t.Run("bad credentials surface the error, no cookies", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		ctx := &MockContext{}
		ctx.On("Context").Return(context.Background())

		_, err := httpAuth.Login(ctx, MockLoginPayload{
			Identifier: user.Email,
			Password:   "wrong",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestRouteAuthenticator_Refresh(t *testing.T) {
	t.Run("missing cookie is an invalid refresh", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		ctx := &MockContext{}
		ctx.On("Cookies", "refreshToken").Return("")

		_, err := httpAuth.Refresh(ctx)
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})

	t.Run("valid cookie rotates the session", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		loginCtx := &MockContext{}
		loginCtx.On("Context").Return(context.Background())
		loginCtx.On("Cookie", mock.Anything)

		session, err := httpAuth.Login(loginCtx, MockLoginPayload{
			Identifier: user.Email,
			Password:   testPassword,
		})
		require.NoError(t, err)

		var cookies []*router.Cookie
		refreshCtx := &MockContext{}
		refreshCtx.On("Context").Return(context.Background())
		refreshCtx.On("Cookies", "refreshToken").Return(session.RefreshToken)
		refreshCtx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookies = append(cookies, args.Get(0).(*router.Cookie))
		})

		rotated, err := httpAuth.Refresh(refreshCtx)
		require.NoError(t, err)
		assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
		assert.Len(t, cookies, 2)
	})

	t.Run("garbage cookie clears auth state", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		var cookies []*router.Cookie
		ctx := &MockContext{}
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookies", "refreshToken").Return("garbage")
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookies = append(cookies, args.Get(0).(*router.Cookie))
		})

		_, err := httpAuth.Refresh(ctx)
		assert.Error(t, err)

		// both cookies cleared with an expiry in the past
		require.Len(t, cookies, 2)
		for _, c := range cookies {
			assert.Empty(t, c.Value)
		}
	})
}

func TestRouteAuthenticator_Logout(t *testing.T) {
	user := newTestUser(t)
	httpAuth, _ := newHTTPFixture(t, user)

	var cookies []*router.Cookie
	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", "accessToken").Return("")
	ctx.On("Cookies", "refreshToken").Return("")
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookies = append(cookies, args.Get(0).(*router.Cookie))
	})

	httpAuth.Logout(ctx)

	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
	}
}

func TestRouteAuthenticator_TransparentRefresh(t *testing.T) {
	t.Run("expired access cookie refreshes and the request proceeds with claims", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		session, err := httpAuth.Login(loginContext(t), MockLoginPayload{
			Identifier: user.Email,
			Password:   testPassword,
		})
		require.NoError(t, err)

		// an access token that is already expired, signed with the same keys
		stale, err := auth.NewTokenService(expiredTTLConfig{tokenTestConfig()})
		require.NoError(t, err)
		expiredAccess, _, err := stale.IssueAccessToken(user, nil, nil)
		require.NoError(t, err)

		var cookies []*router.Cookie
		var stored any
		ctx := &MockContext{}
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookies", "accessToken").Return(expiredAccess)
		ctx.On("Cookies", "refreshToken").Return(session.RefreshToken)
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookies = append(cookies, args.Get(0).(*router.Cookie))
		})
		ctx.On("Locals", "user", mock.Anything).Run(func(args mock.Arguments) {
			stored = args.Get(1)
		}).Return(nil)
		ctx.On("SetContext", mock.Anything)

		protected := httpAuth.ProtectedRoute(httpAuth.MakeClientRouteAuthErrorHandler(false))
		handler := protected(func(c router.Context) error { return nil })

		require.NoError(t, handler(ctx))
		assert.True(t, ctx.NextCalled)

		// the retried request sees the refreshed identity
		claims, ok := stored.(auth.AuthClaims)
		require.True(t, ok)
		assert.Equal(t, user.ID.String(), claims.UserID())

		// and the rotated cookie pair is installed
		require.Len(t, cookies, 2)
		names := []string{cookies[0].Name, cookies[1].Name}
		assert.Contains(t, names, "accessToken")
		assert.Contains(t, names, "refreshToken")
	})

	t.Run("malformed token never triggers a refresh", func(t *testing.T) {
		user := newTestUser(t)
		httpAuth, _ := newHTTPFixture(t, user)

		session, err := httpAuth.Login(loginContext(t), MockLoginPayload{
			Identifier: user.Email,
			Password:   testPassword,
		})
		require.NoError(t, err)

		handled := false
		httpAuth.ErrorHandler = func(c router.Context, err error) error {
			handled = true
			return err
		}

		ctx := &MockContext{}
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookies", "accessToken").Return("garbage")
		ctx.On("Cookies", "refreshToken").Return(session.RefreshToken)

		protected := httpAuth.ProtectedRoute(httpAuth.MakeClientRouteAuthErrorHandler(false))
		handler := protected(func(c router.Context) error { return nil })

		assert.Error(t, handler(ctx))
		assert.True(t, handled)
		assert.False(t, ctx.NextCalled)
		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

// loginContext builds a context that accepts the login cookie writes.
func loginContext(t *testing.T) *MockContext {
	t.Helper()
	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything)
	return ctx
}

func TestRouteAuthenticator_VerifyTwoFactor(t *testing.T) {
	user := newTestUser(t)
	user.TwoFactorEnabled = true
	user.TwoFactorSecret = rfc6238Secret
	httpAuth, _ := newHTTPFixture(t, user)

	loginCtx := &MockContext{}
	loginCtx.On("Context").Return(context.Background())

	challenge, err := httpAuth.Login(loginCtx, MockLoginPayload{
		Identifier: user.Email,
		Password:   testPassword,
	})
	require.NoError(t, err)
	require.True(t, challenge.RequiresTwoFactor)

	var cookies []*router.Cookie
	verifyCtx := &MockContext{}
	verifyCtx.On("Context").Return(context.Background())
	verifyCtx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookies = append(cookies, args.Get(0).(*router.Cookie))
	})

	result, err := httpAuth.VerifyTwoFactor(verifyCtx, challenge.ChallengeToken, currentTOTP(t, rfc6238Secret))
	require.NoError(t, err)

	assert.NotEmpty(t, result.AccessToken)
	assert.Len(t, cookies, 2)
}
