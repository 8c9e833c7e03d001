package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Roles() repository.Repository[*Role]
	Permissions() repository.Repository[*Permission]
	RevokedTokens() repository.Repository[*RevokedToken]
	AuditEntries() repository.Repository[*AuditEntry]
}

func NewRolesRepository(db *bun.DB) repository.Repository[*Role] {
	handlers := repository.ModelHandlers[*Role]{
		NewRecord: func() *Role {
			return &Role{}
		},
		GetID: func(record *Role) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Role, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "name"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewPermissionsRepository(db *bun.DB) repository.Repository[*Permission] {
	handlers := repository.ModelHandlers[*Permission]{
		NewRecord: func() *Permission {
			return &Permission{}
		},
		GetID: func(record *Permission) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Permission, id uuid.UUID) {
			record.ID = id
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewRevokedTokensRepository(db *bun.DB) repository.Repository[*RevokedToken] {
	handlers := repository.ModelHandlers[*RevokedToken]{
		NewRecord: func() *RevokedToken {
			return &RevokedToken{}
		},
		GetID: func(record *RevokedToken) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *RevokedToken, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "token_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewAuditEntriesRepository(db *bun.DB) repository.Repository[*AuditEntry] {
	handlers := repository.ModelHandlers[*AuditEntry]{
		NewRecord: func() *AuditEntry {
			return &AuditEntry{}
		},
		GetID: func(record *AuditEntry) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *AuditEntry, id uuid.UUID) {
			record.ID = id
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db            *bun.DB
	users         Users
	roles         repository.Repository[*Role]
	permissions   repository.Repository[*Permission]
	revokedTokens repository.Repository[*RevokedToken]
	auditEntries  repository.Repository[*AuditEntry]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		roles:         NewRolesRepository(db),
		permissions:   NewPermissionsRepository(db),
		revokedTokens: NewRevokedTokensRepository(db),
		auditEntries:  NewAuditEntriesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	if m.permissions == nil {
		return errors.New("repository permissions should be initialized")
	}

	if m.revokedTokens == nil {
		return errors.New("repository revokedTokens should be initialized")
	}

	if m.auditEntries == nil {
		return errors.New("repository auditEntries should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Roles() repository.Repository[*Role] {
	return m.roles
}

func (m mngr) Permissions() repository.Repository[*Permission] {
	return m.permissions
}

func (m mngr) RevokedTokens() repository.Repository[*RevokedToken] {
	return m.revokedTokens
}

func (m mngr) AuditEntries() repository.Repository[*AuditEntry] {
	return m.auditEntries
}
