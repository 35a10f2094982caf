package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a system user
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserRole represents available user roles
type UserRole string

const (
	RoleAdmin         UserRole = "admin"
	RoleSystemManager UserRole = "system_manager"
	RoleAcademicsUser UserRole = "academics_user"
	RoleUser          UserRole = "user"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch UserRole(r) {
	case RoleAdmin, RoleSystemManager, RoleAcademicsUser, RoleUser:
		return true
	}
	return false
}

// CanValidateRole reports whether a role may approve, reject or verify
// merit submissions.
func CanValidateRole(r string) bool {
	switch UserRole(r) {
	case RoleAdmin, RoleSystemManager, RoleAcademicsUser:
		return true
	}
	return false
}

// IsAdmin returns true if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin)
}

// Actor identifies who performs a workflow action.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// CanValidate reports whether the actor may run validation transitions.
func (a Actor) CanValidate() bool {
	return CanValidateRole(a.Role)
}

// DisplayName is what gets recorded in validated_by.
func (a Actor) DisplayName() string {
	if a.Email != "" {
		return a.Email
	}
	return a.UserID.String()
}

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"max=140"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response from login
type LoginResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	User         User      `json:"user"`
	ExpiresAt    time.Time `json:"expires_at"`
}
