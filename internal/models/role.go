package models

import "fmt"

// Role is the closed set of account kinds
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role name. Admin accounts cannot self-register,
// so callers handling sign-up should check Registrable as well.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDonor, RoleNGO, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Registrable reports whether the role can be chosen at registration
func (r Role) Registrable() bool {
	return r == RoleDonor || r == RoleNGO
}

// CanDonate reports whether the role may post listings
func (r Role) CanDonate() bool {
	return r == RoleDonor || r == RoleAdmin
}

// CanRequest reports whether the role may request pickups
func (r Role) CanRequest() bool {
	return r == RoleNGO
}

// IsAdmin reports whether the role bypasses ownership checks
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
