package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts
// and are stored in users.role.
const (
	// RoleAdmin manages rates, pulse configuration and users.
	RoleAdmin = "admin"
	// RoleOperator records calls, manages contacts and runs invoicing.
	RoleOperator = "operator"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// Valid reports whether role is a known role name.
func Valid(role string) bool { return role == RoleAdmin || role == RoleOperator }
