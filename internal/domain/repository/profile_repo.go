package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// ProfileRepository defines persistence for member profiles.
type ProfileRepository interface {
	Create(profile *entity.Profile) error
	GetByID(ctx context.Context, id uint) (*entity.Profile, error)
	GetByPublicID(ctx context.Context, publicID uuid.UUID) (*entity.Profile, error)
	GetByEmail(email string) (*entity.Profile, error)

	// UpdateProfile updates the given fields without touching the password.
	UpdateProfile(userID uint, updates map[string]interface{}) error
	UpdatePassword(userID uint, newPassword string) error

	// UpdateVerificationStatus atomically updates the profile's verification
	// status and appends exactly one audit row in the same transaction.
	// A no-op transition (old == new) writes nothing and returns (nil, nil).
	UpdateVerificationStatus(ctx context.Context, userID uint, newStatus, changedBy, reason string) (*entity.VerificationStatusChange, error)

	// ListByStatus returns profiles in the given status with pagination and
	// the total count for that status.
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]entity.Profile, int64, error)

	// ListAll returns every profile, ordered by application time. Used by the
	// admin roster export.
	ListAll(ctx context.Context) ([]entity.Profile, error)
}
