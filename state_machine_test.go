package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-memberauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStatusStore records UpdateStatus calls and applies them to the user.
type memStatusStore struct {
	users map[uuid.UUID]*auth.User
	calls int
}

func (s *memStatusStore) UpdateStatus(ctx context.Context, id uuid.UUID, status auth.UserStatus, at time.Time) (*auth.User, error) {
	s.calls++
	user, ok := s.users[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	user.Status = status
	switch status {
	case auth.UserStatusSuspended:
		user.SuspendedAt = &at
	case auth.UserStatusArchived:
		user.ArchivedAt = &at
	}
	return user, nil
}

func newStatusFixture(status auth.UserStatus) (*memStatusStore, *auth.User) {
	user := &auth.User{ID: uuid.New(), Status: status}
	store := &memStatusStore{users: map[uuid.UUID]*auth.User{user.ID: user}}
	return store, user
}

func TestUserStateMachine_Transition(t *testing.T) {
	ctx := context.Background()
	actor := auth.ActorRef{ID: "admin-1", Type: "admin"}

	t.Run("active to suspended", func(t *testing.T) {
		store, user := newStatusFixture(auth.UserStatusActive)
		sink := &recordingSink{}
		sm := auth.NewUserStateMachine(store, auth.WithStateMachineActivitySink(sink))

		updated, err := sm.Transition(ctx, actor, user, auth.UserStatusSuspended,
			auth.WithTransitionReason("late payment"))
		require.NoError(t, err)

		assert.Equal(t, auth.UserStatusSuspended, updated.Status)
		assert.NotNil(t, updated.SuspendedAt)
		require.True(t, sink.has(auth.ActivityEventUserStatusChanged))

		event := sink.events[len(sink.events)-1]
		assert.Equal(t, auth.UserStatusActive, event.FromStatus)
		assert.Equal(t, auth.UserStatusSuspended, event.ToStatus)
		assert.Equal(t, "late payment", event.Metadata["reason"])
		assert.Equal(t, actor, event.Actor)
	})

	t.Run("suspended back to active", func(t *testing.T) {
		store, user := newStatusFixture(auth.UserStatusSuspended)
		sm := auth.NewUserStateMachine(store)

		updated, err := sm.Transition(ctx, actor, user, auth.UserStatusActive)
		require.NoError(t, err)
		assert.Equal(t, auth.UserStatusActive, updated.Status)
	})

	t.Run("archived is terminal", func(t *testing.T) {
		store, user := newStatusFixture(auth.UserStatusArchived)
		sm := auth.NewUserStateMachine(store)

		_, err := sm.Transition(ctx, actor, user, auth.UserStatusActive)
		assert.Error(t, err)
		assert.Equal(t, 0, store.calls)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		store, user := newStatusFixture(auth.UserStatusActive)
		sm := auth.NewUserStateMachine(store)

		updated, err := sm.Transition(ctx, actor, user, auth.UserStatusActive)
		require.NoError(t, err)
		assert.Equal(t, user, updated)
		assert.Equal(t, 0, store.calls)
	})

	t.Run("empty target is invalid", func(t *testing.T) {
		store, user := newStatusFixture(auth.UserStatusActive)
		sm := auth.NewUserStateMachine(store)

		_, err := sm.Transition(ctx, actor, user, "")
		assert.Error(t, err)
	})

	t.Run("nil user is invalid", func(t *testing.T) {
		store, _ := newStatusFixture(auth.UserStatusActive)
		sm := auth.NewUserStateMachine(store)

		_, err := sm.Transition(ctx, actor, nil, auth.UserStatusSuspended)
		assert.Error(t, err)
	})

	t.Run("injected clock stamps the transition", func(t *testing.T) {
		store, user := newStatusFixture(auth.UserStatusActive)
		frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		sm := auth.NewUserStateMachine(store,
			auth.WithStateMachineClock(func() time.Time { return frozen }))

		updated, err := sm.Transition(ctx, actor, user, auth.UserStatusArchived)
		require.NoError(t, err)
		require.NotNil(t, updated.ArchivedAt)
		assert.Equal(t, frozen, *updated.ArchivedAt)
	})
}

func TestUserStateMachine_CurrentStatus(t *testing.T) {
	store, _ := newStatusFixture(auth.UserStatusActive)
	sm := auth.NewUserStateMachine(store)

	assert.Equal(t, auth.UserStatusActive, sm.CurrentStatus(&auth.User{}))
	assert.Equal(t, auth.UserStatusSuspended, sm.CurrentStatus(&auth.User{Status: auth.UserStatusSuspended}))
	assert.Equal(t, "", sm.CurrentStatus(nil))
}
