package gate

import (
	"net/url"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// Redirect targets used by gate decisions.
const (
	LoginPath        = "/login"
	WaitlistPath     = "/waitlist"
	VerifyEmailPath  = "/verify-email"
	AccessDeniedPath = "/access-denied"
	DashboardPath    = "/dashboard"
	ErrorPath        = "/error"
)

// Action is the kind of outcome a gate evaluation produces.
type Action int

const (
	// ActionAllow lets the request through.
	ActionAllow Action = iota
	// ActionRedirect sends the caller elsewhere without touching the session.
	ActionRedirect
	// ActionTerminateAndRedirect destroys the caller's session before
	// redirecting. Used for rejected members: a live token must not survive
	// a rejection.
	ActionTerminateAndRedirect
)

// Decision is the outcome of evaluating a request against its requirements.
type Decision struct {
	Action Action
	Target string
	// Reason is a stable code for logs and the UI ("rejected",
	// "admin_required", "pending", ...). Empty on Allow.
	Reason string
}

// Requirements describes what a path demands from the caller. The zero value
// only requires a valid session.
type Requirements struct {
	// MinStatus is the minimal verification status ("" or entity.StatusApproved).
	MinStatus string
	// RequireAdmin also implies MinStatus approved: admin rights never bypass
	// verification.
	RequireAdmin bool
	// RequireEmailConfirmed demands a confirmed email on top of approval.
	RequireEmailConfirmed bool
}

// Input carries everything Decide needs. It is assembled by the HTTP
// middleware so the decision itself stays a pure function.
type Input struct {
	// Path is the originally requested path, preserved as a return target.
	Path string
	// HasSession is true when the caller presented a valid, parseable token.
	HasSession bool
	// Profile is the caller's profile; nil when the read found nothing.
	Profile *entity.Profile
	// ProfileErr is a non-nil read failure (timeout, upstream error). Any
	// read failure fails closed.
	ProfileErr error
}

// Decide evaluates the access decision table. Conditions are checked in
// order and the first match wins; rejection is checked before everything
// else so a rejected member never reaches a branch that could let stale
// fields (e.g. is_admin) grant access.
func Decide(req Requirements, in Input) Decision {
	if !in.HasSession {
		return Decision{
			Action: ActionRedirect,
			Target: withReturnTarget(LoginPath, in.Path),
			Reason: "unauthenticated",
		}
	}

	// Fail closed: a session without a readable profile is either a
	// data-integrity fault or a transient upstream failure. Never Allow.
	if in.ProfileErr != nil || in.Profile == nil {
		return Decision{Action: ActionRedirect, Target: ErrorPath, Reason: "profile_unavailable"}
	}

	p := in.Profile

	if p.IsRejected() {
		return Decision{
			Action: ActionTerminateAndRedirect,
			Target: AccessDeniedPath + "?reason=rejected",
			Reason: "rejected",
		}
	}

	requiresApproved := req.MinStatus == entity.StatusApproved || req.RequireAdmin

	if p.VerificationStatus == entity.StatusPending && requiresApproved {
		return Decision{Action: ActionRedirect, Target: WaitlistPath, Reason: "pending"}
	}

	if p.IsApproved() && req.RequireEmailConfirmed && !p.EmailConfirmed() {
		return Decision{
			Action: ActionRedirect,
			Target: withReturnTarget(VerifyEmailPath, in.Path),
			Reason: "email_unconfirmed",
		}
	}

	if req.RequireAdmin && !p.IsAdmin {
		return Decision{
			Action: ActionRedirect,
			Target: DashboardPath + "?error=admin_required",
			Reason: "admin_required",
		}
	}

	if req.RequireAdmin && p.IsAdmin && !p.IsApproved() {
		return Decision{
			Action: ActionRedirect,
			Target: DashboardPath + "?error=admin_required",
			Reason: "admin_required",
		}
	}

	// Any remaining non-approved state on an approved-only path is ambiguous
	// (partially migrated data). Treat as not approved.
	if requiresApproved && !p.IsApproved() {
		return Decision{Action: ActionRedirect, Target: WaitlistPath, Reason: "pending"}
	}

	return Decision{Action: ActionAllow}
}

// withReturnTarget appends the original path as redirectTo so the UI can
// resume navigation after login or email confirmation.
func withReturnTarget(target, originalPath string) string {
	if originalPath == "" {
		return target
	}
	return target + "?redirectTo=" + url.QueryEscape(originalPath)
}
