package domain

import (
	"slices"
	"time"
)

// Role names assignable to users. Every account gets RoleCustomer on
// registration; RoleAdmin is granted explicitly.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // argon2 encoded
	Roles        []string
	Active       bool // set once the email address is confirmed
	Banned       bool
	DeletedAt    *time.Time // soft delete marker (nullable)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
	return slices.Contains(u.Roles, name)
}

// CanLogin reports whether the account is in a state that permits
// authentication.
func (u User) CanLogin() bool {
	return u.Active && !u.Banned && u.DeletedAt == nil
}
