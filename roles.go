package auth

// Well-known role names seeded by the membership platform. Roles are plain
// strings everywhere; these constants only exist so call sites don't
// scatter literals.
const (
	// RoleAdmin bypasses ownership checks, see IsOwnerOrAdmin
	RoleAdmin = "ADMIN"
	// RoleStaff manages day-to-day content
	RoleStaff = "STAFF"
	// RoleMember is the baseline authenticated member
	RoleMember = "MEMBER"
	// RolePremium unlocks premium member capabilities
	RolePremium = "PREMIUM"
)

// AdminRoles are the roles granted the ownership bypass. Override before
// wiring the package if your deployment names its admin tier differently.
var AdminRoles = []string{RoleAdmin}

func isAdminRole(name string) bool {
	for _, role := range AdminRoles {
		if role == name {
			return true
		}
	}
	return false
}
