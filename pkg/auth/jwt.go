package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
)

// ErrSessionInvalidated is returned when a token is cryptographically valid
// but was issued before the user's invalidation watermark (e.g. an admin
// rejected the member after the token was issued).
var ErrSessionInvalidated = errors.New("session invalidated")

// SessionClaims are the custom JWT claims for a member session.
type SessionClaims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	// CSRFSecret backs the double-submit-cookie CSRF scheme.
	CSRFSecret string `json:"csrf_secret,omitempty"`
	jwt.RegisteredClaims
}

// JWTService issues and validates member session tokens. Status changes do
// not retroactively revoke already-issued tokens, so the service keeps a
// per-user invalidation watermark (in memory, backed by invalid_sessions) and
// refuses tokens issued before it.
type JWTService struct {
	signingKey     []byte
	accessTokenTTL time.Duration

	// In-memory watermark cache; source of truth is invalidSessionRepo.
	invalidatedUsers map[uint]time.Time
	mu               sync.RWMutex

	invalidSessionRepo repository.InvalidSessionRepository
	cleanupInterval    time.Duration
	appCtx             context.Context
}

// NewJWTService creates the token service, warms the invalidation cache from
// the database and starts the periodic cache cleanup.
func NewJWTService(
	signingKey string,
	accessTokenTTL time.Duration,
	cleanupInterval time.Duration,
	invalidSessionRepo repository.InvalidSessionRepository,
	appCtx context.Context,
) (*JWTService, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required for JWTService")
	}
	if invalidSessionRepo == nil {
		return nil, fmt.Errorf("InvalidSessionRepository is required for JWTService")
	}
	if appCtx == nil {
		return nil, fmt.Errorf("appCtx is required for JWTService")
	}
	if accessTokenTTL <= 0 {
		accessTokenTTL = 15 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 1 * time.Hour
	}

	service := &JWTService{
		signingKey:         []byte(signingKey),
		accessTokenTTL:     accessTokenTTL,
		invalidatedUsers:   make(map[uint]time.Time),
		invalidSessionRepo: invalidSessionRepo,
		cleanupInterval:    cleanupInterval,
		appCtx:             appCtx,
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	service.loadInvalidationsFromDB(startupCtx)

	go service.runCleanupRoutine()

	return service, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *JWTService) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

// loadInvalidationsFromDB warms the in-memory watermark cache at startup.
func (s *JWTService) loadInvalidationsFromDB(ctx context.Context) {
	records, err := s.invalidSessionRepo.GetAll(ctx)
	if err != nil {
		log.Printf("[JWTService] Failed to load session invalidations from DB: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.invalidatedUsers[record.UserID] = record.InvalidationTime
	}
	log.Printf("[JWTService] Loaded %d session invalidation records", len(records))
}

// GenerateToken creates a signed access token for the member. The CSRF secret
// must be generated by the token manager; it never appears in logs.
func (s *JWTService) GenerateToken(profile *entity.Profile, csrfSecret string) (string, error) {
	if csrfSecret == "" {
		return "", errors.New("CSRF secret cannot be empty for access tokens")
	}

	now := time.Now()
	claims := &SessionClaims{
		UserID:     profile.ID,
		Email:      profile.Email,
		IsAdmin:    profile.IsAdmin,
		CSRFSecret: csrfSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "care-api",
			Subject:   profile.PublicID.String(),
			Audience:  jwt.ClaimStrings{"care-member"},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Printf("[JWTService] Failed to sign token for user ID=%d: %v", profile.ID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken validates a token signature and checks the invalidation
// watermark. A token issued before the watermark returns
// ErrSessionInvalidated even though the signature is still valid.
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.IssuedAt == nil {
		return nil, errors.New("invalid token")
	}

	invalid, err := s.isSessionInvalid(ctx, claims.UserID, claims.IssuedAt.Time)
	if err != nil {
		// Fail closed: if the watermark cannot be checked, the token is not
		// accepted.
		return nil, fmt.Errorf("failed to check session invalidation: %w", err)
	}
	if invalid {
		return nil, ErrSessionInvalidated
	}

	return claims, nil
}

// isSessionInvalid consults the in-memory cache first, then the database.
func (s *JWTService) isSessionInvalid(ctx context.Context, userID uint, issuedAt time.Time) (bool, error) {
	s.mu.RLock()
	watermark, cached := s.invalidatedUsers[userID]
	s.mu.RUnlock()

	if cached {
		return issuedAt.Before(watermark), nil
	}
	return s.invalidSessionRepo.IsSessionInvalid(ctx, userID, issuedAt)
}

// InvalidateUserSessions records a watermark: every token issued before `from`
// is dead from now on. Called when an admin rejects a member.
func (s *JWTService) InvalidateUserSessions(ctx context.Context, userID uint, from time.Time) error {
	if err := s.invalidSessionRepo.Add(ctx, userID, from); err != nil {
		return err
	}

	s.mu.Lock()
	s.invalidatedUsers[userID] = from
	s.mu.Unlock()

	log.Printf("[JWTService] Invalidated all sessions for user ID=%d issued before %v", userID, from)
	return nil
}

// ClearUserInvalidation removes the watermark, e.g. after a rejected member
// re-applies and logs in fresh.
func (s *JWTService) ClearUserInvalidation(ctx context.Context, userID uint) error {
	if err := s.invalidSessionRepo.Remove(ctx, userID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.invalidatedUsers, userID)
	s.mu.Unlock()
	return nil
}

// runCleanupRoutine drops watermarks older than the access token lifetime:
// every token they could have killed has expired on its own by then.
func (s *JWTService) runCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * s.accessTokenTTL)

			s.mu.Lock()
			for userID, watermark := range s.invalidatedUsers {
				if watermark.Before(cutoff) {
					delete(s.invalidatedUsers, userID)
				}
			}
			s.mu.Unlock()

			cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.invalidSessionRepo.CleanupOld(cleanupCtx, cutoff); err != nil {
				log.Printf("[JWTService] Failed to clean up old invalidation records: %v", err)
			}
			cancel()
		case <-s.appCtx.Done():
			log.Println("[JWTService] Stopping invalidation cache cleanup")
			return
		}
	}
}
