package domain

// Role is the capability tag embedded in access tokens.
type Role string

// Standard Roles
const (
	RoleCustomer   Role = "customer"
	RoleMerchant   Role = "merchant"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
