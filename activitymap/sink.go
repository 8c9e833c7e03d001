package activitymap

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-memberauth"
)

// RepositorySink persists normalized activity events through the audit
// entries repository. It implements auth.ActivitySink; recording is best
// effort on the caller's side, so errors are returned untouched.
type RepositorySink struct {
	entries repository.Repository[*auth.AuditEntry]
	opts    []Option
}

// NewRepositorySink builds a sink over the given repository. Normalize
// options apply to every recorded event.
func NewRepositorySink(entries repository.Repository[*auth.AuditEntry], opts ...Option) *RepositorySink {
	return &RepositorySink{
		entries: entries,
		opts:    opts,
	}
}

// Record implements auth.ActivitySink.
func (s *RepositorySink) Record(ctx context.Context, event auth.ActivityEvent) error {
	normalized := Normalize(event, s.opts...)

	entry := &auth.AuditEntry{
		ID:         uuid.New(),
		ActorID:    normalized.ActorID,
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Metadata:   normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}

	_, err := s.entries.Create(ctx, entry)
	return err
}

var _ auth.ActivitySink = (*RepositorySink)(nil)
