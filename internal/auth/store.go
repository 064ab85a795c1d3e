package auth

import (
	"context"
	"time"
)

// Store describes credential persistence. Implementations own the User and
// Privilege rows exclusively.
type Store interface {
	// CreateUser inserts a user. Returns ErrConflict when the login or email
	// is already taken.
	CreateUser(ctx context.Context, u *User) error
	// FindUserByID returns ErrNotFound for unknown ids.
	FindUserByID(ctx context.Context, id string) (*User, error)
	// FindUserByLogin returns ErrNotFound for unknown logins.
	FindUserByLogin(ctx context.Context, login string) (*User, error)
	// DeleteUser removes the user row. Historical audit entries referencing
	// the user keep existing with a null user reference.
	DeleteUser(ctx context.Context, id string) error
	// SetActiveToken overwrites the user's active session. A later login
	// always wins; the previous token becomes revoked the moment this commits.
	SetActiveToken(ctx context.Context, userID, token string, expiry time.Time) error
	// EnsurePrivilege creates the named tier if absent and returns it.
	// Idempotent under concurrent first calls.
	EnsurePrivilege(ctx context.Context, name, description string) (*Privilege, error)
}
