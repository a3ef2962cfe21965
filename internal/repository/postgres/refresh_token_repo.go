package postgres

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
	apperrors "github.com/carecollective/care-api/internal/pkg/errors"
)

// RefreshTokenRepo implements repository.RefreshTokenRepository with
// PostgreSQL and GORM. Only token hashes are ever stored.
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo creates a new refresh token repository.
func NewRefreshTokenRepo(db *gorm.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

// CreateToken stores a new refresh token record and returns its ID.
func (r *RefreshTokenRepo) CreateToken(refreshToken *entity.RefreshToken) (uint, error) {
	if err := r.db.Create(refreshToken).Error; err != nil {
		log.Printf("[RefreshTokenRepo.CreateToken] Failed to create token for user ID=%d: %v",
			refreshToken.UserID, err)
		return 0, err
	}
	return refreshToken.ID, nil
}

// GetTokenByHash finds a refresh token record by token hash.
func (r *RefreshTokenRepo) GetTokenByHash(tokenHash string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	err := r.db.Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// MarkTokenAsExpired marks a single token as expired.
func (r *RefreshTokenRepo) MarkTokenAsExpired(tokenHash string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("is_expired", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkAllAsExpiredForUser revokes every session of a member with a reason.
func (r *RefreshTokenRepo) MarkAllAsExpiredForUser(userID uint, reason string) error {
	now := time.Now()
	result := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND is_expired = false", userID).
		Updates(map[string]interface{}{
			"is_expired": true,
			"revoked_at": now,
			"reason":     reason,
		})
	if result.Error != nil {
		log.Printf("[RefreshTokenRepo.MarkAllAsExpiredForUser] Failed for user ID=%d: %v", userID, result.Error)
		return result.Error
	}
	log.Printf("[RefreshTokenRepo] Revoked %d sessions for user ID=%d (reason=%s)",
		result.RowsAffected, userID, reason)
	return nil
}

// CountTokensForUser counts the member's active sessions.
func (r *RefreshTokenRepo) CountTokensForUser(userID uint) (int, error) {
	var count int64
	err := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND is_expired = false AND expires_at > ?", userID, time.Now()).
		Count(&count).Error
	return int(count), err
}

// MarkOldestAsExpiredForUser enforces the per-member session limit by
// expiring the oldest sessions beyond limit.
func (r *RefreshTokenRepo) MarkOldestAsExpiredForUser(userID uint, limit int) error {
	if limit <= 0 {
		return nil
	}
	return r.db.Exec(`
		UPDATE refresh_tokens SET is_expired = true
		WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE user_id = ? AND is_expired = false
			ORDER BY created_at DESC
			OFFSET ?
		)
	`, userID, limit).Error
}

// CleanupExpiredTokens deletes expired and revoked records.
func (r *RefreshTokenRepo) CleanupExpiredTokens() (int64, error) {
	result := r.db.
		Where("expires_at < ? OR is_expired = true", time.Now()).
		Delete(&entity.RefreshToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
