package errors

import "errors"

// Common application errors shared across services and handlers.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned for authentication failures (missing or bad token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks rights for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for invalid input data.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken is returned when a token (e.g. refresh) has expired.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict is returned for state conflicts (e.g. duplicate email,
	// offering help on an already claimed request).
	ErrConflict = errors.New("resource state conflict")

	// ErrUnavailable is returned when an upstream dependency (database, cache)
	// times out or errors. Callers at the request boundary must treat it as a
	// denial, never as an allow.
	ErrUnavailable = errors.New("upstream unavailable")
)
