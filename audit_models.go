package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditEntry is the persisted form of a normalized activity event.
type AuditEntry struct {
	bun.BaseModel `bun:"table:audit_entries,alias:aud"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ActorID    string         `bun:"actor_id" json:"actor_id,omitempty"`
	Verb       string         `bun:"verb,notnull" json:"verb,omitempty"`
	ObjectType string         `bun:"object_type" json:"object_type,omitempty"`
	ObjectID   string         `bun:"object_id" json:"object_id,omitempty"`
	Channel    string         `bun:"channel" json:"channel,omitempty"`
	Metadata   map[string]any `bun:"metadata" json:"metadata,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at,omitempty"`
	CreatedAt  *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// RevokedToken is the persisted form of a refresh token revocation. Rows
// past their expiry can be swept; an expired token fails verification on
// its own.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rvt"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TokenID     string     `bun:"token_id,notnull,unique" json:"token_id,omitempty"`
	PrincipalID string     `bun:"principal_id" json:"principal_id,omitempty"`
	ExpiresAt   *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
