package services

import "errors"

// Sentinel errors returned by services so handlers can map them to HTTP status
// codes without string matching.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidUsername    = errors.New("username must be a valid email")
	ErrUsernameTaken      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
