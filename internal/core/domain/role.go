package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is a ledger-wide permission held by a principal.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleMerchant Role = "MERCHANT"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMerchant:
		return true
	}
	return false
}

// ParseRole accepts role names case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleAssignment records presence of (principal, role).
type RoleAssignment struct {
	Principal Principal `json:"principal"`
	Role      Role      `json:"role"`
	GrantedBy Principal `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}
