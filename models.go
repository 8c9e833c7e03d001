package auth

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle state of a principal. Deactivation is always a
// status change; this core never hard-deletes users.
type UserStatus = string

const (
	// UserStatusActive can authenticate
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended is temporarily deactivated, reversible
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusArchived is terminal, the account is retired
	UserStatusArchived UserStatus = "archived"
)

// MembershipTier labels the commercial tier of a principal. Tiers gate
// product features, not authorization; permissions still come from roles.
type MembershipTier = string

const (
	TierFree    MembershipTier = "free"
	TierBasic   MembershipTier = "basic"
	TierPremium MembershipTier = "premium"
)

// User is the principal model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID               uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName        string         `bun:"first_name" json:"first_name,omitempty"`
	LastName         string         `bun:"last_name" json:"last_name,omitempty"`
	Email            string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone            string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash     string         `bun:"password_hash" json:"-"`
	Status           UserStatus     `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	EmailVerified    bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoginAttempts    int            `bun:"login_attempts" json:"-"`
	LoginAttemptAt   *time.Time     `bun:"login_attempt_at" json:"-"`
	LockedUntil      *time.Time     `bun:"locked_until,nullzero" json:"-"`
	LoggedInAt       *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	TwoFactorSecret  string         `bun:"two_factor_secret" json:"-"`
	TwoFactorPending string         `bun:"two_factor_pending" json:"-"`
	TwoFactorEnabled bool           `bun:"two_factor_enabled" json:"two_factor_enabled,omitempty"`
	MembershipTier   MembershipTier `bun:"membership_tier,default:'free'" json:"membership_tier,omitempty"`
	MembershipExpiry *time.Time     `bun:"membership_expiry,nullzero" json:"membership_expiry,omitempty"`
	SuspendedAt      *time.Time     `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	ArchivedAt       *time.Time     `bun:"archived_at,nullzero" json:"archived_at,omitempty"`
	Metadata         map[string]any `bun:"metadata" json:"metadata,omitempty"`
	Roles            []*Role        `bun:"m2m:user_roles,join:User=Role" json:"roles,omitempty"`
	CreatedAt        *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt        *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults an unset status to active, which keeps legacy rows
// created before the status column usable.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the principal may authenticate.
func (u *User) IsActive() bool {
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

// LockoutState extracts the lockout accounting fields for the policy.
func (u *User) LockoutState() LockoutState {
	return LockoutState{
		FailedAttempts: u.LoginAttempts,
		LockedUntil:    u.LockedUntil,
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// statusAuthError maps a non-active status to the client-facing auth error.
func statusAuthError(status UserStatus) error {
	switch status {
	case "", UserStatusActive:
		return nil
	default:
		return ErrAccountDeactivated
	}
}

// Role is a named bundle of permissions; many-to-many with users.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID          uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name        string        `bun:"name,notnull,unique" json:"name,omitempty"`
	Description string        `bun:"description" json:"description,omitempty"`
	Permissions []*Permission `bun:"m2m:role_permissions,join:Role=Permission" json:"permissions,omitempty"`
	CreatedAt   *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Permission is a single (resource, action) capability.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:prm"`

	ID       uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Resource string    `bun:"resource,notnull" json:"resource,omitempty"`
	Action   string    `bun:"action,notnull" json:"action,omitempty"`
}

// Key returns the canonical "resource:action" permission key.
func (p *Permission) Key() string {
	return PermissionKey(p.Resource, p.Action)
}

// UserRoleAssignment is the users<->roles join table.
type UserRoleAssignment struct {
	bun.BaseModel `bun:"table:user_roles,alias:usrrol"`

	UserID uuid.UUID `bun:"user_id,pk,type:uuid"`
	User   *User     `bun:"rel:belongs-to,join:user_id=id"`
	RoleID uuid.UUID `bun:"role_id,pk,type:uuid"`
	Role   *Role     `bun:"rel:belongs-to,join:role_id=id"`
}

// RolePermissionAssignment is the roles<->permissions join table.
type RolePermissionAssignment struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rolprm"`

	RoleID       uuid.UUID   `bun:"role_id,pk,type:uuid"`
	Role         *Role       `bun:"rel:belongs-to,join:role_id=id"`
	PermissionID uuid.UUID   `bun:"permission_id,pk,type:uuid"`
	Permission   *Permission `bun:"rel:belongs-to,join:permission_id=id"`
}

// RegisterModels registers the join tables with bun so m2m relations load.
// Call once per *bun.DB before using the repositories.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(
		(*UserRoleAssignment)(nil),
		(*RolePermissionAssignment)(nil),
	)
}

// PermissionKey joins a resource and an action into the canonical
// "resource:action" string embedded in access tokens.
func PermissionKey(resource, action string) string {
	return resource + ":" + action
}

// RoleNames extracts the role names in stable order.
func RoleNames(roles []*Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		if role == nil || role.Name == "" {
			continue
		}
		names = append(names, role.Name)
	}
	sort.Strings(names)
	return names
}

// FlattenPermissions collapses a role set into the sorted, de-duplicated
// union of its permission keys. It operates on already-loaded domain
// objects; the storage shape never leaks into the resolver.
func FlattenPermissions(roles []*Role) []string {
	seen := map[string]struct{}{}
	for _, role := range roles {
		if role == nil {
			continue
		}
		for _, perm := range role.Permissions {
			if perm == nil {
				continue
			}
			seen[perm.Key()] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// PublicUser is the client-safe projection of a principal: no password
// hash, no two-factor secrets, no lockout accounting.
type PublicUser struct {
	ID               uuid.UUID      `json:"id"`
	FirstName        string         `json:"first_name,omitempty"`
	LastName         string         `json:"last_name,omitempty"`
	Email            string         `json:"email"`
	Status           UserStatus     `json:"status"`
	EmailVerified    bool           `json:"is_email_verified"`
	TwoFactorEnabled bool           `json:"two_factor_enabled"`
	MembershipTier   MembershipTier `json:"membership_tier,omitempty"`
	MembershipExpiry *time.Time     `json:"membership_expiry,omitempty"`
	Roles            []string       `json:"roles,omitempty"`
}

// Public builds the client-safe projection.
func (u *User) Public() *PublicUser {
	u.EnsureStatus()
	return &PublicUser{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		Status:           u.Status,
		EmailVerified:    u.EmailVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		MembershipTier:   u.MembershipTier,
		MembershipExpiry: u.MembershipExpiry,
		Roles:            RoleNames(u.Roles),
	}
}
