package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carecollective/care-api/internal/domain/entity"
	apperrors "github.com/carecollective/care-api/internal/pkg/errors"
)

// ProfileRepo implements repository.ProfileRepository.
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo creates a new member profile repository.
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Create stores a new member profile.
func (r *ProfileRepo) Create(profile *entity.Profile) error {
	return r.db.Create(profile).Error
}

// GetByID returns a profile by internal ID.
func (r *ProfileRepo) GetByID(ctx context.Context, id uint) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).First(&profile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	}
	return &profile, nil
}

// GetByPublicID returns a profile by its opaque public UUID.
func (r *ProfileRepo) GetByPublicID(ctx context.Context, publicID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	}
	return &profile, nil
}

// GetByEmail returns a profile by email.
func (r *ProfileRepo) GetByEmail(email string) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.Where("email = ?", email).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile updates profile fields without touching the password.
func (r *ProfileRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	delete(updates, "password")
	updates["updated_at"] = time.Now()
	return r.db.Model(&entity.Profile{}).Where("id = ?", userID).Updates(updates).Error
}

// UpdatePassword hashes and stores a new password, bypassing the BeforeSave
// hook to prevent double hashing.
func (r *ProfileRepo) UpdatePassword(userID uint, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[ProfileRepo.UpdatePassword] Failed to hash password for user ID=%d: %v", userID, err)
		return err
	}

	result := r.db.Exec(
		"UPDATE profiles SET password = ?, updated_at = ? WHERE id = ?",
		string(hashedPassword), time.Now(), userID,
	)
	if result.Error != nil {
		log.Printf("[ProfileRepo.UpdatePassword] Failed to update password for user ID=%d: %v", userID, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateVerificationStatus atomically transitions a member's verification
// status and appends the audit row in the same transaction. A no-op
// transition (old == new) writes nothing and returns (nil, nil).
func (r *ProfileRepo) UpdateVerificationStatus(ctx context.Context, userID uint, newStatus, changedBy, reason string) (*entity.VerificationStatusChange, error) {
	if !entity.IsValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown verification status %q", apperrors.ErrValidation, newStatus)
	}

	var change *entity.VerificationStatusChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile entity.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		// Idempotence guard: same status twice produces no audit row.
		if profile.VerificationStatus == newStatus {
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{
			"verification_status": newStatus,
			"updated_at":          now,
		}
		switch newStatus {
		case entity.StatusApproved:
			updates["approved_at"] = now
			updates["rejection_reason"] = ""
			if changedBy != entity.SystemActor {
				updates["approved_by"] = changedByAsID(changedBy)
			}
		case entity.StatusRejected:
			updates["rejection_reason"] = reason
			updates["approved_at"] = nil
			updates["approved_by"] = nil
		case entity.StatusPending:
			// Re-application: clear the outcome of the previous decision.
			updates["rejection_reason"] = ""
			updates["approved_at"] = nil
			updates["approved_by"] = nil
			updates["applied_at"] = now
		}

		if err := tx.Model(&entity.Profile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}

		row := &entity.VerificationStatusChange{
			UserID:    userID,
			OldStatus: profile.VerificationStatus,
			NewStatus: newStatus,
			ChangedBy: changedBy,
			Reason:    reason,
			ChangedAt: now,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		change = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// changedByAsID parses an admin actor string back into a profile ID for the
// approved_by column. Returns nil for non-numeric actors.
func changedByAsID(changedBy string) *uint {
	var id uint
	if _, err := fmt.Sscanf(changedBy, "%d", &id); err != nil || id == 0 {
		return nil
	}
	return &id
}

// ListByStatus returns profiles in the given status with pagination and the
// total count for that status.
func (r *ProfileRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]entity.Profile, int64, error) {
	var profiles []entity.Profile
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.Profile{}).Where("verification_status = ?", status)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("applied_at ASC, id ASC").Limit(limit).Offset(offset).Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListAll returns every profile ordered by application time, for the admin
// roster export.
func (r *ProfileRepo) ListAll(ctx context.Context) ([]entity.Profile, error) {
	var profiles []entity.Profile
	err := r.db.WithContext(ctx).Order("applied_at ASC, id ASC").Find(&profiles).Error
	return profiles, err
}
