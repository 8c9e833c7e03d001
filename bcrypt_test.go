package auth_test

import (
	"strings"
	"testing"

	auth "github.com/goliatone/go-memberauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})

	t.Run("produces a bcrypt digest with cost 12", func(t *testing.T) {
		hash, err := auth.HashPassword("some password")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$12$"))
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		a, err := auth.HashPassword("some password")
		require.NoError(t, err)
		b, err := auth.HashPassword("some password")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	t.Run("matching password verifies", func(t *testing.T) {
		assert.NoError(t, auth.ComparePasswordAndHash("correct horse battery staple", hash))
	})

	t.Run("wrong password is a mismatch", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("wrong", hash)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("garbage hash errors", func(t *testing.T) {
		assert.Error(t, auth.ComparePasswordAndHash("whatever", "not-a-hash"))
	})
}
