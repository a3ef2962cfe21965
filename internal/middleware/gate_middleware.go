package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/gate"
	"github.com/carecollective/care-api/pkg/auth"
	"github.com/carecollective/care-api/pkg/auth/manager"
)

// Context keys set by the gate on allowed requests.
const (
	ContextUserID  = "user_id"
	ContextEmail   = "email"
	ContextIsAdmin = "is_admin"
	ContextProfile = "profile"
)

// ProfileLoader loads the caller's profile for gate evaluation.
type ProfileLoader interface {
	GetProfile(ctx context.Context, userID uint) (*entity.Profile, error)
}

// InvalidationChecker reports whether a token predates the member's latest
// rejection. Backstop for the in-token watermark check.
type InvalidationChecker interface {
	HasPendingInvalidation(ctx context.Context, userID uint, issuedAt time.Time) (bool, error)
}

// AccessGate evaluates every protected request against the route requirement
// table. Token parsing, the profile read and session termination live here;
// the decision itself is the pure gate.Decide.
type AccessGate struct {
	jwtService      *auth.JWTService
	tokenManager    *manager.TokenManager
	profiles        ProfileLoader
	invalidations   InvalidationChecker
	profileTimeout  time.Duration
	terminateBudget time.Duration
}

func NewAccessGate(
	jwtService *auth.JWTService,
	tokenManager *manager.TokenManager,
	profiles ProfileLoader,
	invalidations InvalidationChecker,
	profileTimeoutMS, terminateTimeoutMS int,
) *AccessGate {
	profileTimeout := time.Duration(profileTimeoutMS) * time.Millisecond
	if profileTimeout <= 0 {
		profileTimeout = 2 * time.Second
	}
	terminateBudget := time.Duration(terminateTimeoutMS) * time.Millisecond
	if terminateBudget <= 0 {
		terminateBudget = 3 * time.Second
	}
	return &AccessGate{
		jwtService:      jwtService,
		tokenManager:    tokenManager,
		profiles:        profiles,
		invalidations:   invalidations,
		profileTimeout:  profileTimeout,
		terminateBudget: terminateBudget,
	}
}

// Handler returns the gin middleware enforcing the requirement table.
// Unprotected paths pass through untouched.
func (g *AccessGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, protected := gate.RequirementsFor(c.Request.URL.Path)
		if !protected {
			c.Next()
			return
		}

		decision, claims := g.evaluate(c, req)
		g.apply(c, decision, claims)
	}
}

// SessionOnly authenticates the caller without consulting the status table.
// Rejected members keep access to the endpoints mounted behind it (their own
// profile, re-application) using a session issued after the rejection.
func (g *AccessGate) SessionOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := g.parseSession(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// Require returns middleware enforcing a fixed requirement set regardless of
// path, for API route groups.
func (g *AccessGate) Require(req gate.Requirements) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, claims := g.evaluate(c, req)
		g.apply(c, decision, claims)
	}
}

// evaluate builds the gate input and returns the decision together with the
// parsed session claims, so a terminate decision knows whose sessions to kill
// without re-parsing the token.
func (g *AccessGate) evaluate(c *gin.Context, req gate.Requirements) (gate.Decision, *auth.SessionClaims) {
	in := gate.Input{Path: c.Request.URL.Path}

	claims := g.parseSession(c)
	if claims == nil {
		return gate.Decide(req, in), nil
	}
	in.HasSession = true

	profile, err := g.loadProfile(c.Request.Context(), claims.UserID)
	in.Profile = profile
	in.ProfileErr = err

	// Backstop: even if the profile row looks fine, a rejection recorded in
	// the audit log after this token was issued kills the session. Check
	// failures fail closed.
	if err == nil && profile != nil && claims.IssuedAt != nil {
		pending, checkErr := g.invalidations.HasPendingInvalidation(c.Request.Context(), claims.UserID, claims.IssuedAt.Time)
		if checkErr != nil {
			log.Printf("[AccessGate] Invalidation check failed for UserID=%d: %v", claims.UserID, checkErr)
			in.Profile = nil
			in.ProfileErr = checkErr
		} else if pending {
			return gate.Decision{
				Action: gate.ActionTerminateAndRedirect,
				Target: gate.AccessDeniedPath + "?reason=rejected",
				Reason: "rejected",
			}, claims
		}
	}

	decision := gate.Decide(req, in)
	if decision.Action == gate.ActionAllow {
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		if profile != nil {
			c.Set(ContextProfile, profile)
		}
	}
	return decision, claims
}

// parseSession extracts and validates the access token from the cookie or
// the Authorization header. Returns nil when there is no usable session.
func (g *AccessGate) parseSession(c *gin.Context) *auth.SessionClaims {
	tokenString, err := g.tokenManager.GetAccessTokenFromCookie(c.Request)
	if err != nil || tokenString == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenString == "" {
		return nil
	}

	claims, err := g.jwtService.ParseToken(c.Request.Context(), tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrSessionInvalidated) {
			// The token was killed by a rejection; drop the dead cookies so
			// the client stops replaying it.
			g.tokenManager.ClearAuthCookies(c.Writer)
		}
		return nil
	}
	return claims
}

// loadProfile reads the caller's profile with a bounded timeout and one
// retry. A failure after the retry is reported to the gate, which fails
// closed.
func (g *AccessGate) loadProfile(ctx context.Context, userID uint) (*entity.Profile, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		readCtx, cancel := context.WithTimeout(ctx, g.profileTimeout)
		profile, err := g.profiles.GetProfile(readCtx, userID)
		cancel()
		if err == nil {
			return profile, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// apply executes a gate decision: pass through, redirect, or terminate the
// session and redirect.
func (g *AccessGate) apply(c *gin.Context, decision gate.Decision, claims *auth.SessionClaims) {
	switch decision.Action {
	case gate.ActionAllow:
		c.Next()
		return

	case gate.ActionTerminateAndRedirect:
		g.terminate(c, claims)
		fallthrough

	case gate.ActionRedirect:
		c.Abort()
		if wantsJSON(c) {
			status := http.StatusForbidden
			if decision.Reason == "unauthenticated" {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": decision.Reason, "redirect": decision.Target})
			return
		}
		c.Redirect(http.StatusFound, decision.Target)
	}
}

// terminate revokes the caller's sessions within the terminate budget. The
// claims come from evaluate's parse, so Bearer-header sessions are terminated
// the same as cookie sessions. The redirect happens regardless of revocation
// outcome; the watermark keeps the token dead even if a revocation call fails
// here.
func (g *AccessGate) terminate(c *gin.Context, claims *auth.SessionClaims) {
	ctx, cancel := context.WithTimeout(context.Background(), g.terminateBudget)
	defer cancel()

	if claims != nil {
		if err := g.tokenManager.RevokeAllSessions(claims.UserID, "verification_rejected"); err != nil {
			log.Printf("[AccessGate] Failed to revoke sessions for UserID=%d: %v", claims.UserID, err)
		}
		if err := g.jwtService.InvalidateUserSessions(ctx, claims.UserID, time.Now()); err != nil {
			log.Printf("[AccessGate] Failed to set invalidation watermark for UserID=%d: %v", claims.UserID, err)
		}
	}

	g.tokenManager.ClearAuthCookies(c.Writer)
}

// wantsJSON distinguishes API clients from browser navigation.
func wantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") ||
		strings.HasPrefix(c.Request.URL.Path, "/api/")
}
