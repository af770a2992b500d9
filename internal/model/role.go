package model

import (
	"fmt"
	"strings"
)

// Role is the dashboard a signed-in account sees.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDoctor   Role = "doctor"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// ParseRole maps backend role strings ("CUSTOMER", "ROLE_DOCTOR", "Staff") onto Role.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "role_")
	switch Role(s) {
	case RoleCustomer, RoleDoctor, RoleStaff, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// CanExport reports whether the role may export appointment lists.
func (r Role) CanExport() bool {
	return r == RoleDoctor || r == RoleStaff || r == RoleAdmin
}

type Account struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}
