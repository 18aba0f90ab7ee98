package models

import (
	"fmt"
	"time"
)

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultRole is assigned at registration.
const DefaultRole = RoleUser

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole converts a stored or claimed role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is a credential row. ID is the user's e-mail address.
type User struct {
	ID string
	// Password is the sealed (encrypted at rest) password.
	Password []byte
	// Role is empty when the row has no role assigned.
	Role Role
	// RefreshTokenID references the user's current refresh token row; empty
	// when signed out.
	RefreshTokenID string
	CreatedAt      time.Time
}
