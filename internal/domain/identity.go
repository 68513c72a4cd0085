package domain

// Role is the capability flag supplied by the identity provider.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity describes the current caller. The core trusts it as-is and
// performs no verification of its own.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// User is an account known to the identity provider.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// Identity returns the caller identity the rest of the system consumes.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Role: u.Role}
}
