package models

import "time"

// Role is the closed set of actor roles. Capability checks compare against
// explicit role sets rather than string literals scattered through handlers.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// CanHandleComplaints reports whether the role may be assigned complaints and
// mutate them.
func (r Role) CanHandleComplaints() bool {
	return r == RoleStaff || r == RoleAdmin
}

type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash []byte
	Role         Role
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FullName != "":
		return u.FullName
	default:
		return u.ID
	}
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role, Name: u.DisplayName()}
}

type Department struct {
	ID          string
	Name        string
	Description string
}
