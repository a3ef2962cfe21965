package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// StatusChangeRepo implements repository.StatusChangeRepository. Read-only by
// design: audit rows are written inside ProfileRepo.UpdateVerificationStatus.
type StatusChangeRepo struct {
	db *gorm.DB
}

// NewStatusChangeRepo creates a new verification audit log repository.
func NewStatusChangeRepo(db *gorm.DB) *StatusChangeRepo {
	return &StatusChangeRepo{db: db}
}

// ListByUser returns the transition history for one member, newest first.
func (r *StatusChangeRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.VerificationStatusChange, error) {
	var changes []entity.VerificationStatusChange
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("changed_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&changes).Error
	return changes, err
}

// List returns the global audit log with pagination, newest first.
func (r *StatusChangeRepo) List(ctx context.Context, limit, offset int) ([]entity.VerificationStatusChange, int64, error) {
	var changes []entity.VerificationStatusChange
	var total int64

	if err := r.db.WithContext(ctx).Model(&entity.VerificationStatusChange{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("changed_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&changes).Error
	if err != nil {
		return nil, 0, err
	}
	return changes, total, nil
}

// GetLatestRejection returns the changed_at of the most recent transition to
// rejected, or nil when the member was never rejected.
func (r *StatusChangeRepo) GetLatestRejection(ctx context.Context, userID uint) (*time.Time, error) {
	var change entity.VerificationStatusChange
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND new_status = ?", userID, entity.StatusRejected).
		Order("changed_at DESC, id DESC").
		First(&change).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := change.ChangedAt
	return &t, nil
}
