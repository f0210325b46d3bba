package entity

import (
	"errors"
	"strings"
)

// Role is the closed set of permission levels an account can hold.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleUser
	RoleAdmin
)

var ErrUnknownRole = errors.New("unknown role")

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of allowed.
func (r Role) In(allowed ...Role) bool {
	if !r.Valid() {
		return false
	}
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}

// ParseRole maps the persisted/claimed name of a role back to its value.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUnknown, ErrUnknownRole
	}
}
