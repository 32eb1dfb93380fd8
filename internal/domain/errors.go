package domain

import "errors"

// Sentinel errors shared across components. Services wrap these with %w and
// the HTTP layer maps them to status codes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
