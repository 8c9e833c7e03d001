package auth

import "time"

// LockoutState is the accounting pair read off the principal before a login
// attempt is evaluated.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// LockoutUpdate is the single persisted write a lockout decision produces.
// The policy computes it; the orchestrator applies it through the store.
type LockoutUpdate struct {
	FailedAttempts int
	LockedUntil    *time.Time
	// AttemptAt stamps the attempt for audit trails; nil on success resets.
	AttemptAt *time.Time
	// LoggedInAt is set on the success branch only.
	LoggedInAt *time.Time
}

// LockoutPolicy is a pure decision function over the lockout window. It has
// no side effects: every method returns the update to persist and touches
// nothing itself.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// NewLockoutPolicy builds a policy from config, falling back to defaults.
func NewLockoutPolicy(cfg Config) LockoutPolicy {
	policy := LockoutPolicy{
		Threshold: DefaultLockoutThreshold,
		Duration:  DefaultLockoutDuration,
	}

	if cfg != nil {
		if t := cfg.GetLockoutThreshold(); t > 0 {
			policy.Threshold = t
		}
		if d := cfg.GetLockoutDuration(); d > 0 {
			policy.Duration = d
		}
	}

	return policy
}

// Check gates an attempt before the password is even compared. When the
// window is still open it returns locked=true with the remaining duration.
// An elapsed lock is consumed: the effective state starts a fresh window.
func (p LockoutPolicy) Check(state LockoutState, now time.Time) (effective LockoutState, remaining time.Duration, locked bool) {
	if state.LockedUntil != nil {
		if state.LockedUntil.After(now) {
			return state, state.LockedUntil.Sub(now), true
		}
		// Lock elapsed: consume it so the next failure counts from zero.
		state.FailedAttempts = 0
		state.LockedUntil = nil
	}

	return state, 0, false
}

// Failure is the password-mismatch branch. Reaching the threshold arms the
// lock and resets the counter so a fresh window starts after unlock.
func (p LockoutPolicy) Failure(state LockoutState, now time.Time) LockoutUpdate {
	attempts := state.FailedAttempts + 1
	update := LockoutUpdate{
		FailedAttempts: attempts,
		AttemptAt:      &now,
	}

	if attempts >= p.Threshold {
		until := now.Add(p.Duration)
		update.FailedAttempts = 0
		update.LockedUntil = &until
	}

	return update
}

// Success resets the window: counter to zero, lock cleared.
func (p LockoutPolicy) Success(now time.Time) LockoutUpdate {
	return LockoutUpdate{
		FailedAttempts: 0,
		LockedUntil:    nil,
		LoggedInAt:     &now,
	}
}

// AttemptsRemaining reports how many failures are left before the lock
// arms. Audit metadata only; clients get at most this number.
func (p LockoutPolicy) AttemptsRemaining(state LockoutState) int {
	remaining := p.Threshold - state.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
