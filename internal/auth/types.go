package auth

import "time"

// User is a credential-store row. Token and TokenExpiry are both set or both
// nil: together they are the user's single active session.
type User struct {
	ID           string     `json:"id"`
	Login        string     `json:"login"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name,omitempty"`
	PasswordHash string     `json:"-"`
	Privilege    string     `json:"privilege"`
	Token        *string    `json:"-"`
	TokenExpiry  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Privilege is a named access tier. The catalog is seeded and effectively
// immutable at runtime except for the idempotent "default" bootstrap.
type Privilege struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID    string `json:"user_id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Privilege string `json:"privilege"`
}
