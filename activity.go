package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventLoginLocked       ActivityEventType = "auth.login.locked"
	ActivityEventLoginThrottled    ActivityEventType = "auth.login.throttled"
	ActivityEventTwoFactorSuccess  ActivityEventType = "auth.2fa.success"
	ActivityEventTwoFactorFailure  ActivityEventType = "auth.2fa.failure"
	ActivityEventTwoFactorEnrolled ActivityEventType = "auth.2fa.enrolled"
	ActivityEventTwoFactorDisabled ActivityEventType = "auth.2fa.disabled"
	ActivityEventRefreshSuccess    ActivityEventType = "auth.refresh.success"
	ActivityEventRefreshFailure    ActivityEventType = "auth.refresh.failure"
	ActivityEventRefreshReuse      ActivityEventType = "auth.refresh.reuse"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventAccessDenied      ActivityEventType = "authz.denied"
	ActivityEventUserRegistered    ActivityEventType = "user.registered"
	ActivityEventUserStatusChanged ActivityEventType = "user.status.changed"
)

// ActorRef identifies who performed an action. Most auth events are
// self-initiated, so Actor and UserID match; administrative status changes
// carry the operator instead.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Identifier string
	FromStatus UserStatus
	ToStatus   UserStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Recording is best effort: sink failures are logged by the caller and
// never abort the operation being audited.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
