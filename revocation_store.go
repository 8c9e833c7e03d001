package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// StoredRevocationSet keeps revocations in the revoked tokens repository
// with an in-memory LRU in front, so the hot path (every refresh) rarely
// touches the database.
type StoredRevocationSet struct {
	tokens repository.Repository[*RevokedToken]
	cache  *LRURevocationSet
}

// NewStoredRevocationSet builds a persistent RevocationSet. The cache
// parameters mirror NewLRURevocationSet.
func NewStoredRevocationSet(tokens repository.Repository[*RevokedToken], maxEntries int, ttl time.Duration) *StoredRevocationSet {
	return &StoredRevocationSet{
		tokens: tokens,
		cache:  NewLRURevocationSet(maxEntries, ttl),
	}
}

// Revoke persists the revocation and seeds the cache.
func (s *StoredRevocationSet) Revoke(ctx context.Context, principalID, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}

	record := &RevokedToken{
		ID:          uuid.New(),
		TokenID:     tokenID,
		PrincipalID: principalID,
	}
	if !expiresAt.IsZero() {
		record.ExpiresAt = &expiresAt
	}

	if _, err := s.tokens.Create(ctx, record); err != nil {
		return err
	}

	return s.cache.Revoke(ctx, principalID, tokenID, expiresAt)
}

// IsRevoked answers from the cache when possible, falling back to the
// repository. A database hit back-fills the cache.
func (s *StoredRevocationSet) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	if hit, _ := s.cache.IsRevoked(ctx, tokenID); hit {
		return true, nil
	}

	record, err := s.tokens.GetByIdentifier(ctx, tokenID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if record != nil {
		_ = s.cache.Revoke(ctx, record.PrincipalID, tokenID, time.Time{})
		return true, nil
	}

	return false, nil
}

var _ RevocationSet = (*StoredRevocationSet)(nil)
