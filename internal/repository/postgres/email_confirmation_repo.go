package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
	apperrors "github.com/carecollective/care-api/internal/pkg/errors"
)

// EmailConfirmationRepo implements repository.EmailConfirmationRepository.
type EmailConfirmationRepo struct {
	db *gorm.DB
}

// NewEmailConfirmationRepo creates a new email confirmation code repository.
func NewEmailConfirmationRepo(db *gorm.DB) *EmailConfirmationRepo {
	return &EmailConfirmationRepo{db: db}
}

func (r *EmailConfirmationRepo) Create(code *entity.EmailConfirmationCode) error {
	return r.db.Create(code).Error
}

func (r *EmailConfirmationRepo) GetLatestActiveByUserID(userID uint) (*entity.EmailConfirmationCode, error) {
	var code entity.EmailConfirmationCode
	err := r.db.
		Where("user_id = ? AND consumed_at IS NULL", userID).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest active confirmation code: %w", err)
	}
	return &code, nil
}

func (r *EmailConfirmationRepo) IncrementAttempts(id uint) error {
	return r.db.Model(&entity.EmailConfirmationCode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

func (r *EmailConfirmationRepo) MarkConsumed(id uint) error {
	now := time.Now()
	return r.db.Model(&entity.EmailConfirmationCode{}).
		Where("id = ?", id).
		Update("consumed_at", now).Error
}

func (r *EmailConfirmationRepo) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&entity.EmailConfirmationCode{}).Error
}
