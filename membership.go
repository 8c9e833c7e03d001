package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-featuregate/gate/guard"
)

// ErrMembershipRequired is returned when a feature is gated behind a higher
// membership tier than the principal holds.
var ErrMembershipRequired = errors.New("membership tier does not include this feature", errors.CategoryAuthz).
	WithTextCode("MEMBERSHIP_REQUIRED").
	WithCode(errors.CodeForbidden)

// tierRank orders tiers for comparison. Gating is by rank, so premium
// members pass every basic gate.
var tierRank = map[MembershipTier]int{
	TierFree:    0,
	TierBasic:   1,
	TierPremium: 2,
}

// TierAtLeast reports whether have meets or exceeds want. An expired
// membership downgrades to free regardless of the stored tier.
func TierAtLeast(user *User, want MembershipTier, now time.Time) bool {
	if user == nil {
		return false
	}

	have := user.MembershipTier
	if have == "" {
		have = TierFree
	}
	if user.MembershipExpiry != nil && user.MembershipExpiry.Before(now) {
		have = TierFree
	}

	return tierRank[have] >= tierRank[want]
}

// RequireTier checks the principal's tier and returns ErrMembershipRequired
// with tier metadata when it falls short.
func RequireTier(user *User, want MembershipTier, now time.Time) error {
	if TierAtLeast(user, want, now) {
		return nil
	}

	have := TierFree
	if user != nil && user.MembershipTier != "" {
		have = user.MembershipTier
	}

	return ErrMembershipRequired.Clone().WithMetadata(map[string]any{
		"required_tier": want,
		"current_tier":  have,
	})
}

func normalizeFeatureGateError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}

	return errors.Wrap(err, errors.CategoryAuthz, "Feature gate check failed").
		WithCode(errors.CodeForbidden)
}

// RequireFeatureGate consults the feature gate for a tier-scoped feature
// key. Disabled features surface as ErrMembershipRequired so transports can
// map them to 403 without special cases.
func RequireFeatureGate(ctx context.Context, featureGate gate.FeatureGate, key string) error {
	return guard.Require(ctx, featureGate, key,
		guard.WithDisabledError(ErrMembershipRequired),
		guard.WithErrorMapper(normalizeFeatureGateError),
	)
}
