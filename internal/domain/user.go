package domain

import (
	"strings"
	"time"
)

// Role controls what an authenticated user may do
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReadonly Role = "readonly"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleReadonly
}

// CanWrite reports whether the role may mutate the list
func (r Role) CanWrite() bool {
	return r == RoleAdmin
}

// User is a stored account. PasswordHash never leaves the server.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Role         Role       `json:"role"`
	IsSuperAdmin bool       `json:"is_super_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// PublicUser is the sanitized view of a user returned by the API
type PublicUser struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	IsSuperAdmin bool       `json:"is_super_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// Public strips the password hash
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsSuperAdmin: u.IsSuperAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLoginAt:  u.LastLoginAt,
	}
}

// UserMeta is bookkeeping stored next to the users array
type UserMeta struct {
	Version      int       `json:"version"`
	LastModified time.Time `json:"last_modified"`
}

// UserDocument is the persisted users file
type UserDocument struct {
	Users []*User  `json:"users"`
	Meta  UserMeta `json:"meta"`
}

// FindByID returns the user with the given id and its index
func (d *UserDocument) FindByID(id string) (*User, int) {
	for i, u := range d.Users {
		if u.ID == id {
			return u, i
		}
	}
	return nil, -1
}

// FindByEmail matches case-insensitively
func (d *UserDocument) FindByEmail(email string) *User {
	email = strings.TrimSpace(email)
	for _, u := range d.Users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// SuperAdmin returns the super admin account if one exists
func (d *UserDocument) SuperAdmin() *User {
	for _, u := range d.Users {
		if u.IsSuperAdmin {
			return u
		}
	}
	return nil
}

// LoginAttempt is the failed-login counter of one client
type LoginAttempt struct {
	Count       int   `json:"count"`
	LastAttempt int64 `json:"last_attempt"`
}

// AttemptTable maps a client identifier to its failed-login counter
type AttemptTable map[string]LoginAttempt
