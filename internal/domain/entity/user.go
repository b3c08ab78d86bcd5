package entity

import "time"

// Role identifies what an actor is allowed to do in the lifecycle.
type Role string

const (
	RoleRequester  Role = "requester"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleRequester, RoleTechnician, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is an actor that can trigger lifecycle transitions.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}
