package repository

import (
	"github.com/carecollective/care-api/internal/domain/entity"
)

// RefreshTokenRepository defines persistence for refresh token sessions.
// Tokens are stored hash-only; every lookup is by SHA-256 hash.
type RefreshTokenRepository interface {
	// CreateToken stores a new refresh token record and returns its ID.
	CreateToken(refreshToken *entity.RefreshToken) (uint, error)

	// GetTokenByHash finds a refresh token record by token hash.
	GetTokenByHash(tokenHash string) (*entity.RefreshToken, error)

	// MarkTokenAsExpired marks a single token as expired (logout, rotation).
	MarkTokenAsExpired(tokenHash string) error

	// MarkAllAsExpiredForUser revokes every session of a member with a reason.
	// Used when an admin rejects the member.
	MarkAllAsExpiredForUser(userID uint, reason string) error

	// CountTokensForUser counts the member's active sessions.
	CountTokensForUser(userID uint) (int, error)

	// MarkOldestAsExpiredForUser enforces the per-member session limit by
	// expiring the oldest sessions beyond limit.
	MarkOldestAsExpiredForUser(userID uint, limit int) error

	// CleanupExpiredTokens deletes expired and revoked records, returning the
	// number of rows removed.
	CleanupExpiredTokens() (int64, error)
}
