package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the effective role of a user for gating purposes.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClubAdmin Role = "club_admin"
	RoleStudent   Role = "student"
	// RoleNone means the user has no role row.
	RoleNone Role = ""
)

// ParseRole maps a stored role string onto the closed enumeration. Unknown values become RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleClubAdmin:
		return RoleClubAdmin
	case RoleStudent:
		return RoleStudent
	default:
		return RoleNone
	}
}

// String returns the role name, "none" for RoleNone.
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// CanManageEvents reports whether the role may create clubs and events.
func (r Role) CanManageEvents() bool {
	return r == RoleAdmin || r == RoleClubAdmin
}

// User is an authenticated identity (auth table, not the profile).
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRole assigns a role to a user.
type UserRole struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
