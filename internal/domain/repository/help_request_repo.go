package repository

import (
	"context"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// HelpRequestFilter narrows help request listings.
type HelpRequestFilter struct {
	Status   string
	Category string
	Urgency  string
}

// HelpRequestRepository defines persistence for help requests.
type HelpRequestRepository interface {
	Create(request *entity.HelpRequest) error
	GetByID(ctx context.Context, id uint) (*entity.HelpRequest, error)
	Update(request *entity.HelpRequest) error

	// List returns help requests matching the filter with pagination and the
	// total match count, newest first.
	List(ctx context.Context, filter HelpRequestFilter, limit, offset int) ([]entity.HelpRequest, int64, error)

	// ListByAuthor returns requests posted by the member, newest first.
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]entity.HelpRequest, int64, error)

	// ListByHelper returns requests the member offered to help with.
	ListByHelper(ctx context.Context, helperID uint, limit, offset int) ([]entity.HelpRequest, int64, error)

	// Claim atomically assigns a helper to an open request. Returns
	// apperrors.ErrConflict when the request is no longer open.
	Claim(ctx context.Context, id, helperID uint) error
}
