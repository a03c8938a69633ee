package model

import "time"

// Role is the primary role a user registered with.
type Role string

const (
	RoleTalent   Role = "talent"
	RoleEmployer Role = "employer"
	RoleClient   Role = "client"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string coming off the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleTalent, RoleEmployer, RoleClient, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User is the slice of the user directory this engine reads. It is external
// data: the engine never writes users.
type User struct {
	ID         int       `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	FullName   string    `db:"full_name" json:"full_name"`
	Role       Role      `db:"primary_role" json:"primary_role"`
	IsVerified bool      `db:"is_verified" json:"is_verified"`
	IsAdmin    bool      `db:"is_admin" json:"is_admin"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
