package domain

import "errors"

// Validation errors. Messages are safe to return to clients.
var (
	ErrInvalidUsername = errors.New("username is required")
	ErrInvalidPassword = errors.New("password must be between 8 and 16 characters")
)

// ErrUserExists is returned when the normalized username is already taken,
// including when a concurrent registration wins the race.
var ErrUserExists = errors.New("username already exists")

// Authentication errors. Neither says which factor failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ErrUserNotFound is returned by account stores. It never leaves the login flow.
var ErrUserNotFound = errors.New("user not found")

// ErrCorruptCredential marks a stored credential that cannot be parsed.
// It is an integrity failure, not a wrong password.
var ErrCorruptCredential = errors.New("stored credential is corrupt")
