// Package identity holds user account and role models.
package identity

import "time"

// Roles recognised by the platform.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a platform account. Registration is keyed by the corporate
// registration number (NP); PasswordHash is a bcrypt hash.
type User struct {
	ID           string    `json:"id"`
	NP           string    `json:"np"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Name         string    `json:"nome"`
	Email        string    `json:"email,omitempty"`
	Department   string    `json:"departamento,omitempty"`
	Active       bool      `json:"ativo"`
	LastLogin    time.Time `json:"ultimo_login,omitempty"`
	CreatedAt    time.Time `json:"data_cadastro,omitempty"`
}

// Session is the resolved identity of an authenticated request.
type Session struct {
	UserID string `json:"id"`
	Name   string `json:"nome"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }
