package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// InvalidSessionRepo implements repository.InvalidSessionRepository.
type InvalidSessionRepo struct {
	db *gorm.DB
}

// NewInvalidSessionRepo creates a new session invalidation repository.
func NewInvalidSessionRepo(db *gorm.DB) *InvalidSessionRepo {
	return &InvalidSessionRepo{db: db}
}

// Add upserts the invalidation watermark for a member.
func (r *InvalidSessionRepo) Add(ctx context.Context, userID uint, invalidationTime time.Time) error {
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO invalid_sessions (user_id, invalidation_time)
		VALUES (?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET invalidation_time = ?
	`, userID, invalidationTime, invalidationTime).Error
	if err != nil {
		log.Printf("[InvalidSessionRepo.Add] Failed to record invalidation for user ID=%d: %v", userID, err)
		return err
	}
	return nil
}

// Remove deletes the member's watermark.
func (r *InvalidSessionRepo) Remove(ctx context.Context, userID uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.InvalidSession{}, userID)
	if result.Error != nil {
		log.Printf("[InvalidSessionRepo.Remove] Failed to remove invalidation for user ID=%d: %v", userID, result.Error)
		return result.Error
	}
	return nil
}

// IsSessionInvalid reports whether a token issued at issuedAt falls under the
// member's invalidation watermark.
func (r *InvalidSessionRepo) IsSessionInvalid(ctx context.Context, userID uint, issuedAt time.Time) (bool, error) {
	var record entity.InvalidSession
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	invalid := record.CoversTokenIssuedAt(issuedAt)
	if invalid {
		log.Printf("[InvalidSessionRepo] Session invalid for user ID=%d: issued %v, invalidated %v",
			userID, issuedAt, record.InvalidationTime)
	}
	return invalid, nil
}

// GetAll returns every watermark, used to warm the in-memory cache at startup.
func (r *InvalidSessionRepo) GetAll(ctx context.Context) ([]entity.InvalidSession, error) {
	var records []entity.InvalidSession
	err := r.db.WithContext(ctx).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CleanupOld removes watermarks older than cutoff.
func (r *InvalidSessionRepo) CleanupOld(ctx context.Context, cutoff time.Time) error {
	result := r.db.WithContext(ctx).Where("invalidation_time < ?", cutoff).Delete(&entity.InvalidSession{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("[InvalidSessionRepo.CleanupOld] Removed %d stale invalidation records", result.RowsAffected)
	}
	return nil
}
