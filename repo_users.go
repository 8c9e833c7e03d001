package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateLoginStateSQL resets or advances the lockout accounting in one
// write. The ORM update path skips zero values, which would leave a stale
// counter behind on reset, so this stays raw SQL.
var UpdateLoginStateSQL = `UPDATE "users" AS "usr"
SET
	"login_attempts" = ?,
	"locked_until" = ?,
	"login_attempt_at" = ?,
	"loggedin_at" = COALESCE(?, "usr"."loggedin_at")
WHERE
	("usr"."id" = ?)
	AND "usr"."deleted_at" IS NULL;`

var ActivateTwoFactorSQL = `UPDATE "users" AS "usr"
SET
	"two_factor_secret" = "usr"."two_factor_pending",
	"two_factor_pending" = '',
	"two_factor_enabled" = TRUE
WHERE
	("usr"."id" = ?)
	AND "usr"."two_factor_pending" <> ''
	AND "usr"."deleted_at" IS NULL
RETURNING *;`

var DisableTwoFactorSQL = `UPDATE "users" AS "usr"
SET
	"two_factor_secret" = '',
	"two_factor_pending" = '',
	"two_factor_enabled" = FALSE
WHERE
	("usr"."id" = ?)
	AND "usr"."deleted_at" IS NULL;`

// Users is the repository surface for principals. It embeds the generic
// repository and layers the credential, lockout and lifecycle operations on
// top.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetWithAuthorization(ctx context.Context, id uuid.UUID) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	UpdateLoginState(ctx context.Context, id uuid.UUID, update LockoutUpdate) error
	UpdateLoginStateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update LockoutUpdate) error

	StageTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error
	ActivateTwoFactor(ctx context.Context, id uuid.UUID) error
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, at time.Time) (*User, error)
	Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Reinstate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Archive(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	trimmed := strings.TrimSpace(email)
	if !isEmail(trimmed) {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": email,
			})
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", trimmed).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetWithAuthorization loads a principal with its roles and their
// permission relations populated.
func (a *users) GetWithAuthorization(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Roles").
		Relation("Roles.Permissions").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) UpdateLoginState(ctx context.Context, id uuid.UUID, update LockoutUpdate) error {
	return a.UpdateLoginStateTx(ctx, a.db, id, update)
}

func (a *users) UpdateLoginStateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update LockoutUpdate) error {
	_, err := tx.NewRaw(
		UpdateLoginStateSQL,
		update.FailedAttempts,
		update.LockedUntil,
		update.AttemptAt,
		update.LoggedInAt,
		id,
	).Exec(ctx)
	return err
}

func (a *users) StageTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("two_factor_pending = ?", secret).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	return err
}

func (a *users) ActivateTwoFactor(ctx context.Context, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, a.db, ActivateTwoFactorSQL, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return ErrTwoFactorNotStaged
	}

	return nil
}

func (a *users) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(DisableTwoFactorSQL, id.String()).Exec(ctx)
	return err
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, at time.Time) (*User, error) {
	record := &User{
		ID:     id,
		Status: status,
	}

	switch status {
	case UserStatusSuspended:
		record.SuspendedAt = &at
	case UserStatusArchived:
		record.ArchivedAt = &at
	}

	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

func (a *users) Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusSuspended, opts...)
}

func (a *users) Reinstate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

func (a *users) Archive(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusArchived, opts...)
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.MembershipTier == "" {
		record.MembershipTier = TierFree
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// storeAdapter narrows the Users repository to the UserStore interface the
// orchestrator consumes.
type storeAdapter struct {
	users Users
}

// NewUserStore adapts a Users repository into the orchestrator's UserStore.
func NewUserStore(users Users) UserStore {
	return &storeAdapter{users: users}
}

func (s *storeAdapter) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *storeAdapter) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.users.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *storeAdapter) UpdateLoginState(ctx context.Context, id uuid.UUID, update LockoutUpdate) error {
	return s.users.UpdateLoginState(ctx, id, update)
}

func (s *storeAdapter) RolesAndPermissions(ctx context.Context, id uuid.UUID) ([]*Role, error) {
	user, err := s.users.GetWithAuthorization(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user.Roles, nil
}

func (s *storeAdapter) StageTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return s.users.StageTwoFactorSecret(ctx, id, secret)
}

func (s *storeAdapter) ActivateTwoFactor(ctx context.Context, id uuid.UUID) error {
	return s.users.ActivateTwoFactor(ctx, id)
}

func (s *storeAdapter) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	return s.users.DisableTwoFactor(ctx, id)
}

var _ UserStore = (*storeAdapter)(nil)
