// Package model defines domain entities for the application.
package model

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Role constants for user accounts.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleStudent, RoleInstructor, RoleAdmin}

// UserStatus represents the computed status of a user account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// User represents an account in the user directory.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Roles        []string   `json:"roles"`
	PasswordHash string     `json:"-"` // Never serialize
	Active       bool       `json:"active"`
	DeletedAt    *time.Time `json:"-"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Status computes the current status of the account.
func (u *User) Status() UserStatus {
	if u.DeletedAt != nil {
		return UserStatusDeleted
	}
	if !u.Active {
		return UserStatusSuspended
	}
	return UserStatusActive
}

// IsActive returns true if the account is neither deleted nor suspended.
func (u *User) IsActive() bool {
	return u.Status() == UserStatusActive
}

// HasRole checks if the user holds a specific role.
// Admin implies all other roles.
func (u *User) HasRole(role string) bool {
	if slices.Contains(u.Roles, RoleAdmin) {
		return true
	}
	return slices.Contains(u.Roles, role)
}

// CachedUser represents user data stored in Redis cache.
// Uses string types for Redis hash compatibility.
type CachedUser struct {
	Email      string `redis:"email"`
	FullName   string `redis:"full_name"`
	Roles      string `redis:"roles"`        // Comma-joined
	Active     string `redis:"active"`       // "1" or "0"
	DeletedAt  string `redis:"deleted_at"`   // Unix timestamp or empty
	LastSeenAt string `redis:"last_seen_at"` // Unix timestamp or empty
	CreatedAt  string `redis:"created_at"`   // Unix timestamp
	UpdatedAt  string `redis:"updated_at"`   // Unix timestamp
}

// ToUser converts CachedUser to the User domain model.
func (c *CachedUser) ToUser(id string) *User {
	user := &User{
		ID:       id,
		Email:    c.Email,
		FullName: c.FullName,
		Active:   c.Active == "1",
	}

	if c.Roles != "" {
		user.Roles = strings.Split(c.Roles, ",")
	}

	if c.DeletedAt != "" {
		if ts, err := strconv.ParseInt(c.DeletedAt, 10, 64); err == nil {
			t := time.Unix(ts, 0)
			user.DeletedAt = &t
		}
	}

	if c.LastSeenAt != "" {
		if ts, err := strconv.ParseInt(c.LastSeenAt, 10, 64); err == nil {
			t := time.Unix(ts, 0)
			user.LastSeenAt = &t
		}
	}

	if c.CreatedAt != "" {
		if ts, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
			user.CreatedAt = time.Unix(ts, 0)
		}
	}

	if c.UpdatedAt != "" {
		if ts, err := strconv.ParseInt(c.UpdatedAt, 10, 64); err == nil {
			user.UpdatedAt = time.Unix(ts, 0)
		}
	}

	return user
}

// ToCachedUser converts the User domain model to CachedUser.
// The password hash is deliberately left out of the cache.
func (u *User) ToCachedUser() *CachedUser {
	cached := &CachedUser{
		Email:     u.Email,
		FullName:  u.FullName,
		Roles:     strings.Join(u.Roles, ","),
		Active:    boolToString(u.Active),
		CreatedAt: strconv.FormatInt(u.CreatedAt.Unix(), 10),
		UpdatedAt: strconv.FormatInt(u.UpdatedAt.Unix(), 10),
	}

	if u.DeletedAt != nil {
		cached.DeletedAt = strconv.FormatInt(u.DeletedAt.Unix(), 10)
	}

	if u.LastSeenAt != nil {
		cached.LastSeenAt = strconv.FormatInt(u.LastSeenAt.Unix(), 10)
	}

	return cached
}

// boolToString converts boolean to "1" or "0".
func boolToString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
