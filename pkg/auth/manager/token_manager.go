package manager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
	apperrors "github.com/carecollective/care-api/internal/pkg/errors"
	"github.com/carecollective/care-api/pkg/auth"
)

// Token configuration constants.
const (
	// DefaultAccessTokenLifetime is the access token lifetime (15 minutes).
	DefaultAccessTokenLifetime = 15 * time.Minute
	// DefaultRefreshTokenLifetime is the refresh token lifetime (30 days).
	DefaultRefreshTokenLifetime = 30 * 24 * time.Hour
	// DefaultMaxSessionsPerUser caps active refresh tokens per member.
	DefaultMaxSessionsPerUser = 10

	// RefreshTokenCookie is the cookie name for the refresh token.
	RefreshTokenCookie = "refresh_token"
	// AccessTokenCookie is the cookie name for the access token.
	AccessTokenCookie = "access_token"
	// CSRFHeader carries the CSRF token hash on state-changing requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFSecretCookie holds the CSRF secret (HttpOnly; __Host- prefix
	// requires Secure and Path=/).
	CSRFSecretCookie = "__Host-csrf-secret"
)

// TokenErrorType classifies token failures for stable client error codes.
type TokenErrorType string

const (
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"
	InvalidRefreshToken   TokenErrorType = "INVALID_REFRESH_TOKEN"
	ExpiredRefreshToken   TokenErrorType = "EXPIRED_REFRESH_TOKEN"
	SessionRevoked        TokenErrorType = "SESSION_REVOKED"
	MemberNotFound        TokenErrorType = "MEMBER_NOT_FOUND"
	DatabaseError         TokenErrorType = "DATABASE_ERROR"
)

// TokenError is a typed error for token operations.
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

// Error returns the string form of the error.
func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewTokenError creates a typed token error.
func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{Type: tokenType, Message: message, Err: err}
}

// TokenResponse is returned to clients after login or refresh. The refresh
// token and CSRF secret travel only in cookies, never in the JSON body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	CSRFToken    string `json:"csrf_token"`
	UserID       uint   `json:"user_id"`
	RefreshToken string `json:"-"`
	CSRFSecret   string `json:"-"`
}

// TokenManager issues and rotates the access/refresh token pair and owns the
// auth cookies.
type TokenManager struct {
	jwtService       *auth.JWTService
	refreshTokenRepo repository.RefreshTokenRepository
	profileRepo      repository.ProfileRepository

	refreshTokenExpiry time.Duration
	maxSessionsPerUser int

	cookiePath     string
	cookieDomain   string
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite http.SameSite
	isProduction   bool
}

// NewTokenManager creates a token manager. The JWT service is injected later
// via SetJWTService because the two depend on each other at wiring time.
func NewTokenManager(refreshTokenRepo repository.RefreshTokenRepository, profileRepo repository.ProfileRepository) (*TokenManager, error) {
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for TokenManager")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("ProfileRepository is required for TokenManager")
	}

	return &TokenManager{
		refreshTokenRepo:   refreshTokenRepo,
		profileRepo:        profileRepo,
		refreshTokenExpiry: DefaultRefreshTokenLifetime,
		maxSessionsPerUser: DefaultMaxSessionsPerUser,
		cookiePath:         "/",
		cookieHTTPOnly:     true,
		cookieSameSite:     http.SameSiteLaxMode,
	}, nil
}

// SetJWTService injects the JWT service after construction.
func (tm *TokenManager) SetJWTService(jwtService *auth.JWTService) {
	tm.jwtService = jwtService
}

// SetRefreshTokenExpiry overrides the refresh token lifetime.
func (tm *TokenManager) SetRefreshTokenExpiry(d time.Duration) {
	if d > 0 {
		tm.refreshTokenExpiry = d
	}
}

// SetMaxSessionsPerUser overrides the per-member session cap.
func (tm *TokenManager) SetMaxSessionsPerUser(n int) {
	if n > 0 {
		tm.maxSessionsPerUser = n
	}
}

// SetProductionMode toggles Secure cookies.
func (tm *TokenManager) SetProductionMode(production bool) {
	tm.isProduction = production
	tm.cookieSecure = production
}

// IsProductionMode reports whether the manager runs with production cookie
// hardening (Secure flag, __Host- prefixed CSRF cookie).
func (tm *TokenManager) IsProductionMode() bool {
	return tm.isProduction
}

// SetCookieAttributes configures cookie scoping.
func (tm *TokenManager) SetCookieAttributes(path, domain string, secure, httpOnly bool, sameSite http.SameSite) {
	tm.cookiePath = path
	tm.cookieDomain = domain
	tm.cookieSecure = secure
	tm.cookieHTTPOnly = httpOnly
	tm.cookieSameSite = sameSite
}

// GenerateTokenPair issues an access/refresh pair for the member, stores the
// refresh session (hash-only) and sets the auth cookies.
func (tm *TokenManager) GenerateTokenPair(ctx context.Context, profile *entity.Profile, deviceID, ipAddress, userAgent string, w http.ResponseWriter) (*TokenResponse, error) {
	if tm.jwtService == nil {
		return nil, NewTokenError(TokenGenerationFailed, "JWT service is not configured", nil)
	}

	csrfSecret, err := generateRandomHex(32)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate CSRF secret", err)
	}

	accessToken, err := tm.jwtService.GenerateToken(profile, csrfSecret)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate access token", err)
	}

	rawRefreshToken, err := generateRandomHex(32)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate refresh token", err)
	}

	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	// Enforce the session cap before inserting the new record.
	if err := tm.refreshTokenRepo.MarkOldestAsExpiredForUser(profile.ID, tm.maxSessionsPerUser-1); err != nil {
		log.Printf("[TokenManager] Failed to trim old sessions for user ID=%d: %v", profile.ID, err)
	}

	record := entity.NewRefreshToken(
		profile.ID,
		HashToken(rawRefreshToken),
		deviceID,
		ipAddress,
		userAgent,
		time.Now().Add(tm.refreshTokenExpiry),
	)
	if _, err := tm.refreshTokenRepo.CreateToken(record); err != nil {
		return nil, NewTokenError(DatabaseError, "failed to store refresh token", err)
	}

	tm.setAuthCookies(w, accessToken, rawRefreshToken, csrfSecret)

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(tm.jwtService.AccessTokenTTL().Seconds()),
		CSRFToken:    HashCSRFSecret(csrfSecret),
		UserID:       profile.ID,
		RefreshToken: rawRefreshToken,
		CSRFSecret:   csrfSecret,
	}, nil
}

// RefreshTokens rotates the token pair using the refresh token cookie.
func (tm *TokenManager) RefreshTokens(w http.ResponseWriter, r *http.Request) (*TokenResponse, error) {
	rawToken, err := tm.GetRefreshTokenFromCookie(r)
	if err != nil {
		return nil, NewTokenError(InvalidRefreshToken, "refresh token cookie missing", err)
	}

	record, err := tm.refreshTokenRepo.GetTokenByHash(HashToken(rawToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, NewTokenError(InvalidRefreshToken, "unknown refresh token", err)
		}
		return nil, NewTokenError(DatabaseError, "failed to look up refresh token", err)
	}
	if !record.IsValid() {
		if record.RevokedAt != nil {
			return nil, NewTokenError(SessionRevoked, "session has been revoked", nil)
		}
		return nil, NewTokenError(ExpiredRefreshToken, "refresh token expired", nil)
	}

	profile, err := tm.profileRepo.GetByID(r.Context(), record.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, NewTokenError(MemberNotFound, "member no longer exists", err)
		}
		return nil, NewTokenError(DatabaseError, "failed to load member profile", err)
	}

	// A rejected member must not mint fresh sessions through the refresh path.
	if profile.IsRejected() {
		_ = tm.refreshTokenRepo.MarkAllAsExpiredForUser(profile.ID, "verification_rejected")
		return nil, NewTokenError(SessionRevoked, "member verification was rejected", nil)
	}

	// Rotate: the old refresh token is single-use.
	if err := tm.refreshTokenRepo.MarkTokenAsExpired(record.TokenHash); err != nil {
		log.Printf("[TokenManager] Failed to expire rotated token for user ID=%d: %v", profile.ID, err)
	}

	return tm.GenerateTokenPair(r.Context(), profile, record.DeviceID, record.IPAddress, record.UserAgent, w)
}

// RevokeAllSessions revokes every refresh session for the member.
func (tm *TokenManager) RevokeAllSessions(userID uint, reason string) error {
	return tm.refreshTokenRepo.MarkAllAsExpiredForUser(userID, reason)
}

// RevokeCurrentSession expires the refresh token presented in the request.
func (tm *TokenManager) RevokeCurrentSession(r *http.Request) error {
	rawToken, err := tm.GetRefreshTokenFromCookie(r)
	if err != nil {
		return nil // nothing to revoke
	}
	if err := tm.refreshTokenRepo.MarkTokenAsExpired(HashToken(rawToken)); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return nil
}

// GetAccessTokenFromCookie reads the access token cookie.
func (tm *TokenManager) GetAccessTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetRefreshTokenFromCookie reads the refresh token cookie.
func (tm *TokenManager) GetRefreshTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetCSRFSecretFromCookie reads the CSRF secret cookie.
func (tm *TokenManager) GetCSRFSecretFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CSRFSecretCookie)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// setAuthCookies writes the access, refresh and CSRF secret cookies.
func (tm *TokenManager) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken, csrfSecret string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     tm.cookiePath,
		Domain:   tm.cookieDomain,
		MaxAge:   int(tm.jwtService.AccessTokenTTL().Seconds()),
		Secure:   tm.cookieSecure,
		HttpOnly: tm.cookieHTTPOnly,
		SameSite: tm.cookieSameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     tm.cookiePath,
		Domain:   tm.cookieDomain,
		MaxAge:   int(tm.refreshTokenExpiry.Seconds()),
		Secure:   tm.cookieSecure,
		HttpOnly: tm.cookieHTTPOnly,
		SameSite: tm.cookieSameSite,
	})

	// __Host- cookies must be Secure with Path=/ and no Domain. Outside
	// production (plain HTTP) fall back to an unprefixed name.
	csrfCookieName := CSRFSecretCookie
	if !tm.cookieSecure {
		csrfCookieName = "csrf-secret"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    csrfSecret,
		Path:     "/",
		MaxAge:   int(tm.refreshTokenExpiry.Seconds()),
		Secure:   tm.cookieSecure,
		HttpOnly: true,
		SameSite: tm.cookieSameSite,
	})
}

// ClearAuthCookies expires every auth cookie. Called on logout and on the
// terminate-session path of the access gate.
func (tm *TokenManager) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, CSRFSecretCookie, "csrf-secret"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   tm.cookieSecure,
			HttpOnly: true,
			SameSite: tm.cookieSameSite,
		})
	}
}

// CleanupExpiredTokens removes stale refresh token records.
func (tm *TokenManager) CleanupExpiredTokens() error {
	removed, err := tm.refreshTokenRepo.CleanupExpiredTokens()
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("[TokenManager] Removed %d expired refresh tokens", removed)
	}
	return nil
}

// HashToken returns the hex SHA-256 of a raw token. Only hashes are persisted.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HashCSRFSecret derives the header-facing CSRF token from the secret.
func HashCSRFSecret(secret string) string {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return hex.EncodeToString(sum[:])
}

func generateRandomHex(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
