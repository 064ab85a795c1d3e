package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrConflict           = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrDenied             = errors.New("auth: insufficient privilege")

	// Token failures are three distinct outcomes: a malformed or badly signed
	// token, a well-signed token past its embedded expiry, and a well-signed
	// token that is no longer the user's recorded active session.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenRevoked = errors.New("auth: token revoked")
)
