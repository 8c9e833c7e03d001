package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-memberauth"
	"github.com/stretchr/testify/assert"
)

func TestLockoutPolicy_Failure(t *testing.T) {
	policy := auth.LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("increments counter below threshold", func(t *testing.T) {
		state := auth.LockoutState{}

		for i := 1; i < 5; i++ {
			update := policy.Failure(state, now)
			assert.Equal(t, i, update.FailedAttempts)
			assert.Nil(t, update.LockedUntil)
			state = auth.LockoutState{FailedAttempts: update.FailedAttempts}
		}
	})

	t.Run("fifth failure arms the lock and resets the counter", func(t *testing.T) {
		state := auth.LockoutState{FailedAttempts: 4}

		update := policy.Failure(state, now)

		assert.Equal(t, 0, update.FailedAttempts)
		assert.NotNil(t, update.LockedUntil)
		assert.Equal(t, now.Add(30*time.Minute), *update.LockedUntil)
	})

	t.Run("stamps the attempt time", func(t *testing.T) {
		update := policy.Failure(auth.LockoutState{}, now)
		assert.NotNil(t, update.AttemptAt)
		assert.Equal(t, now, *update.AttemptAt)
	})
}

func TestLockoutPolicy_Check(t *testing.T) {
	policy := auth.LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("open window rejects with remaining duration", func(t *testing.T) {
		until := now.Add(10 * time.Minute)
		state := auth.LockoutState{LockedUntil: &until}

		_, remaining, locked := policy.Check(state, now)

		assert.True(t, locked)
		assert.Equal(t, 10*time.Minute, remaining)
	})

	t.Run("elapsed lock is consumed", func(t *testing.T) {
		until := now.Add(-time.Second)
		state := auth.LockoutState{FailedAttempts: 3, LockedUntil: &until}

		effective, remaining, locked := policy.Check(state, now)

		assert.False(t, locked)
		assert.Zero(t, remaining)
		assert.Equal(t, 0, effective.FailedAttempts)
		assert.Nil(t, effective.LockedUntil)
	})

	t.Run("no lock passes through unchanged", func(t *testing.T) {
		state := auth.LockoutState{FailedAttempts: 2}

		effective, _, locked := policy.Check(state, now)

		assert.False(t, locked)
		assert.Equal(t, 2, effective.FailedAttempts)
	})
}

func TestLockoutPolicy_Success(t *testing.T) {
	policy := auth.LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	update := policy.Success(now)

	assert.Equal(t, 0, update.FailedAttempts)
	assert.Nil(t, update.LockedUntil)
	assert.NotNil(t, update.LoggedInAt)
	assert.Equal(t, now, *update.LoggedInAt)
}

func TestLockoutPolicy_AttemptsRemaining(t *testing.T) {
	policy := auth.LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute}

	assert.Equal(t, 5, policy.AttemptsRemaining(auth.LockoutState{}))
	assert.Equal(t, 2, policy.AttemptsRemaining(auth.LockoutState{FailedAttempts: 3}))
	assert.Equal(t, 0, policy.AttemptsRemaining(auth.LockoutState{FailedAttempts: 9}))
}

func TestNewLockoutPolicy_Defaults(t *testing.T) {
	policy := auth.NewLockoutPolicy(&auth.SimpleConfig{})

	assert.Equal(t, auth.DefaultLockoutThreshold, policy.Threshold)
	assert.Equal(t, auth.DefaultLockoutDuration, policy.Duration)
}
