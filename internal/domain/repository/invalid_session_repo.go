package repository

import (
	"context"
	"time"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// InvalidSessionRepository persists per-user session invalidation watermarks.
type InvalidSessionRepository interface {
	// Add upserts the invalidation watermark for a member.
	Add(ctx context.Context, userID uint, invalidationTime time.Time) error

	// Remove deletes the watermark, letting new sessions through again.
	Remove(ctx context.Context, userID uint) error

	// IsSessionInvalid reports whether a token issued at issuedAt falls under
	// the member's invalidation watermark.
	IsSessionInvalid(ctx context.Context, userID uint, issuedAt time.Time) (bool, error)

	// GetAll returns every watermark, used to warm the in-memory cache at startup.
	GetAll(ctx context.Context) ([]entity.InvalidSession, error)

	// CleanupOld removes watermarks older than cutoff (all tokens issued
	// before them have expired anyway).
	CleanupOld(ctx context.Context, cutoff time.Time) error
}
