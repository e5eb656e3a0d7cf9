package domain

// Role caller-asserted role; the core trusts it and never re-derives identity.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleParent Role = "PARENT"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleParent
}

// Actor who is calling
type Actor struct {
	UserID string
	Name   string
	Role   Role
}

// IsAdmin shorthand
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsParent shorthand
func (a Actor) IsParent() bool { return a.Role == RoleParent }

// User account record, read side only (users collection)
type User struct {
	UserID string  `json:"user_id"`
	Email  string  `json:"email"`
	Name   *string `json:"name,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Role   Role    `json:"role"`
}
