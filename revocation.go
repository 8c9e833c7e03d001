package auth

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// RevocationSet tracks refresh token ids that must no longer be honored.
// A refresh token lands here when it is rotated, when its session logs out,
// or when reuse of an already rotated token is detected.
type RevocationSet interface {
	Revoke(ctx context.Context, principalID, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LRURevocationSet is an in-memory RevocationSet backed by an expirable LRU.
// Entries age out with the refresh token lifetime, so the set stays bounded
// without a sweeper.
type LRURevocationSet struct {
	cache *lru.LRU[string, string]
}

// NewLRURevocationSet sizes the set for maxEntries revoked tokens, each held
// for ttl. The ttl should match the refresh token lifetime; a revoked token
// that has also expired no longer needs tracking.
func NewLRURevocationSet(maxEntries int, ttl time.Duration) *LRURevocationSet {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	return &LRURevocationSet{
		cache: lru.NewLRU[string, string](maxEntries, nil, ttl),
	}
}

// Revoke marks tokenID as unusable.
func (s *LRURevocationSet) Revoke(ctx context.Context, principalID, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	s.cache.Add(tokenID, principalID)
	return nil
}

// IsRevoked reports whether tokenID has been revoked and not yet aged out.
func (s *LRURevocationSet) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	_, ok := s.cache.Get(tokenID)
	return ok, nil
}

type noopRevocationSet struct{}

func (noopRevocationSet) Revoke(context.Context, string, string, time.Time) error {
	return nil
}

func (noopRevocationSet) IsRevoked(context.Context, string) (bool, error) {
	return false, nil
}

func normalizeRevocationSet(s RevocationSet) RevocationSet {
	if s == nil {
		return noopRevocationSet{}
	}
	return s
}
