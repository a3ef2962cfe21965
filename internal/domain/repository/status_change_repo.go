package repository

import (
	"context"
	"time"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// StatusChangeRepository reads the append-only verification audit log.
// Writes happen only inside ProfileRepository.UpdateVerificationStatus, so the
// audit row can never diverge from the profile update.
type StatusChangeRepository interface {
	// ListByUser returns the transition history for one member, newest first.
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.VerificationStatusChange, error)

	// List returns the global audit log with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]entity.VerificationStatusChange, int64, error)

	// GetLatestRejection returns the changed_at of the most recent transition
	// to rejected for the member, or nil when the member was never rejected.
	GetLatestRejection(ctx context.Context, userID uint) (*time.Time, error)
}
