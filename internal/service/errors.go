package service

import "errors"

// Flow-specific errors used by handlers for stable error_type mapping.
var (
	ErrInvalidConfirmationCode      = errors.New("invalid_confirmation_code")
	ErrConfirmationExpired          = errors.New("confirmation_expired")
	ErrConfirmationAttemptsExceeded = errors.New("confirmation_attempts_exceeded")
	ErrConfirmationResendCooldown   = errors.New("confirmation_resend_cooldown")

	// ErrNotRejected is returned when re-application is requested for a
	// member who is not currently rejected.
	ErrNotRejected = errors.New("member_not_rejected")

	// ErrNotApproved is returned when a community action requires an
	// approved member.
	ErrNotApproved = errors.New("member_not_approved")

	// ErrOwnRequest is returned when a member tries to offer help on their
	// own help request.
	ErrOwnRequest = errors.New("cannot_help_own_request")
)
