package entity

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
// The zero value is not a valid role; use ParseRole to build one from text.
type Role uint8

const (
	RoleStudent Role = iota + 1
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleStudent:    "STUDENT",
	RoleAdmin:      "ADMIN",
	RoleSuperAdmin: "SUPERADMIN",
}

// Roles lists every valid role in ascending privilege.
func Roles() []Role { return []Role{RoleStudent, RoleAdmin, RoleSuperAdmin} }

// ParseRole accepts the canonical upper-case name, case-insensitively.
func ParseRole(s string) (Role, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == want {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsAdmin reports whether the role is one of the administrative roles.
// Role alone never grants admin access; see the RBAC gate.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
