package model

import (
	"time"

	"github.com/upawatch/upawatch/pkg/domain/types"
)

// User represents an admin-area user as returned by the backend
type User struct {
	ID        types.UserID   `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      types.UserRole `json:"role"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewUser creates a new User instance
func NewUser(id types.UserID, name, email string, role types.UserRole) *User {
	return &User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		UpdatedAt: time.Now(),
	}
}

// IsAdmin returns true when the user may manage other users
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == types.UserRoleAdmin
}

// Credentials is a login request forwarded to the backend
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// LoginResult is what the backend returns on a successful login
type LoginResult struct {
	AccessToken string `json:"token"`
	User        *User  `json:"usuario"`
}
