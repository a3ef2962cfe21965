package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
)

// HelpRequestService manages community help requests. Every mutating
// operation requires an approved member; the repository enforces claim
// atomicity.
type HelpRequestService struct {
	helpRequestRepo repository.HelpRequestRepository
	profileRepo     repository.ProfileRepository
}

// CreateHelpRequestInput carries the request form fields.
type CreateHelpRequestInput struct {
	Title       string
	Description string
	Category    string
	Urgency     string
}

func NewHelpRequestService(
	helpRequestRepo repository.HelpRequestRepository,
	profileRepo repository.ProfileRepository,
) *HelpRequestService {
	return &HelpRequestService{
		helpRequestRepo: helpRequestRepo,
		profileRepo:     profileRepo,
	}
}

// Create posts a new open help request for an approved member.
func (s *HelpRequestService) Create(ctx context.Context, authorID uint, input CreateHelpRequestInput) (*entity.HelpRequest, error) {
	if err := s.requireApproved(ctx, authorID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if len(title) > 150 {
		return nil, fmt.Errorf("%w: title must be at most 150 characters", apperrors.ErrValidation)
	}
	if !entity.IsValidCategory(input.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", apperrors.ErrValidation, input.Category)
	}
	urgency := input.Urgency
	if urgency == "" {
		urgency = entity.UrgencyNormal
	}
	if !entity.IsValidUrgency(urgency) {
		return nil, fmt.Errorf("%w: unknown urgency %q", apperrors.ErrValidation, urgency)
	}

	request := &entity.HelpRequest{
		AuthorID:    authorID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Urgency:     urgency,
		Status:      entity.HelpRequestOpen,
	}
	if err := s.helpRequestRepo.Create(request); err != nil {
		return nil, fmt.Errorf("failed to create help request: %w", err)
	}

	log.Printf("[HelpRequestService.Create] RequestID=%d created by UserID=%d", request.ID, authorID)
	return request, nil
}

// Get returns a single help request.
func (s *HelpRequestService) Get(ctx context.Context, id uint) (*entity.HelpRequest, error) {
	return s.helpRequestRepo.GetByID(ctx, id)
}

// List returns help requests matching the filter.
func (s *HelpRequestService) List(ctx context.Context, filter repository.HelpRequestFilter, limit, offset int) ([]entity.HelpRequest, int64, error) {
	if filter.Status != "" && !entity.IsValidHelpRequestStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, filter.Status)
	}
	if filter.Category != "" && !entity.IsValidCategory(filter.Category) {
		return nil, 0, fmt.Errorf("%w: unknown category %q", apperrors.ErrValidation, filter.Category)
	}
	if filter.Urgency != "" && !entity.IsValidUrgency(filter.Urgency) {
		return nil, 0, fmt.Errorf("%w: unknown urgency %q", apperrors.ErrValidation, filter.Urgency)
	}
	return s.helpRequestRepo.List(ctx, filter, limit, offset)
}

// ListMine returns requests posted by the member.
func (s *HelpRequestService) ListMine(ctx context.Context, authorID uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	return s.helpRequestRepo.ListByAuthor(ctx, authorID, limit, offset)
}

// ListHelping returns requests the member offered to help with.
func (s *HelpRequestService) ListHelping(ctx context.Context, helperID uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	return s.helpRequestRepo.ListByHelper(ctx, helperID, limit, offset)
}

// OfferHelp claims an open request for an approved member. Returns
// apperrors.ErrConflict when someone else claimed it first.
func (s *HelpRequestService) OfferHelp(ctx context.Context, requestID, helperID uint) error {
	if err := s.requireApproved(ctx, helperID); err != nil {
		return err
	}

	request, err := s.helpRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.AuthorID == helperID {
		return ErrOwnRequest
	}
	if request.Status != entity.HelpRequestOpen {
		return fmt.Errorf("%w: request is not open", apperrors.ErrConflict)
	}

	if err := s.helpRequestRepo.Claim(ctx, requestID, helperID); err != nil {
		return err
	}

	log.Printf("[HelpRequestService.OfferHelp] RequestID=%d claimed by UserID=%d", requestID, helperID)
	return nil
}

// Complete marks a request as completed. The author or the assigned helper
// may complete it.
func (s *HelpRequestService) Complete(ctx context.Context, requestID, userID uint) error {
	return s.closeRequest(ctx, requestID, userID, entity.HelpRequestCompleted)
}

// Cancel closes a request without completion. Only the author may cancel.
func (s *HelpRequestService) Cancel(ctx context.Context, requestID, userID uint) error {
	return s.closeRequest(ctx, requestID, userID, entity.HelpRequestCancelled)
}

func (s *HelpRequestService) closeRequest(ctx context.Context, requestID, userID uint, newStatus string) error {
	request, err := s.helpRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	isAuthor := request.AuthorID == userID
	isHelper := request.HelperID != nil && *request.HelperID == userID
	if newStatus == entity.HelpRequestCancelled && !isAuthor {
		return fmt.Errorf("%w: only the author can cancel a request", apperrors.ErrForbidden)
	}
	if !isAuthor && !isHelper {
		return fmt.Errorf("%w: only the author or helper can close a request", apperrors.ErrForbidden)
	}
	if request.Status == entity.HelpRequestCompleted || request.Status == entity.HelpRequestCancelled {
		return fmt.Errorf("%w: request is already closed", apperrors.ErrConflict)
	}

	request.Status = newStatus
	if newStatus == entity.HelpRequestCompleted {
		now := time.Now()
		request.CompletedAt = &now
	}
	if err := s.helpRequestRepo.Update(request); err != nil {
		return fmt.Errorf("failed to close request: %w", err)
	}

	log.Printf("[HelpRequestService.closeRequest] RequestID=%d -> %s by UserID=%d", requestID, newStatus, userID)
	return nil
}

func (s *HelpRequestService) requireApproved(ctx context.Context, userID uint) error {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.IsApproved() {
		return ErrNotApproved
	}
	return nil
}
