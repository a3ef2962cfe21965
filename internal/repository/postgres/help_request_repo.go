package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
	apperrors "github.com/carecollective/care-api/internal/pkg/errors"
)

// HelpRequestRepo implements repository.HelpRequestRepository.
type HelpRequestRepo struct {
	db *gorm.DB
}

// NewHelpRequestRepo creates a new help request repository.
func NewHelpRequestRepo(db *gorm.DB) *HelpRequestRepo {
	return &HelpRequestRepo{db: db}
}

func (r *HelpRequestRepo) Create(request *entity.HelpRequest) error {
	return r.db.Create(request).Error
}

func (r *HelpRequestRepo) GetByID(ctx context.Context, id uint) (*entity.HelpRequest, error) {
	var request entity.HelpRequest
	err := r.db.WithContext(ctx).First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *HelpRequestRepo) Update(request *entity.HelpRequest) error {
	return r.db.Save(request).Error
}

// List returns help requests matching the filter, newest first.
func (r *HelpRequestRepo) List(ctx context.Context, filter repository.HelpRequestFilter, limit, offset int) ([]entity.HelpRequest, int64, error) {
	var requests []entity.HelpRequest
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.HelpRequest{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Urgency != "" {
		q = q.Where("urgency = ?", filter.Urgency)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *HelpRequestRepo) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	return r.listBy(ctx, "author_id = ?", authorID, limit, offset)
}

func (r *HelpRequestRepo) ListByHelper(ctx context.Context, helperID uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	return r.listBy(ctx, "helper_id = ?", helperID, limit, offset)
}

func (r *HelpRequestRepo) listBy(ctx context.Context, cond string, id uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	var requests []entity.HelpRequest
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.HelpRequest{}).Where(cond, id)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Claim atomically assigns a helper to an open request. The conditional
// UPDATE guarantees two concurrent offers cannot both win.
func (r *HelpRequestRepo) Claim(ctx context.Context, id, helperID uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entity.HelpRequest{}).
		Where("id = ? AND status = ?", id, entity.HelpRequestOpen).
		Updates(map[string]interface{}{
			"status":     entity.HelpRequestInProgress,
			"helper_id":  helperID,
			"claimed_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}
