package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
)

// SessionInvalidator retroactively kills access tokens issued before a
// watermark. Implemented by auth.JWTService.
type SessionInvalidator interface {
	InvalidateUserSessions(ctx context.Context, userID uint, from time.Time) error
	ClearUserInvalidation(ctx context.Context, userID uint) error
}

// SessionRevoker revokes stored refresh tokens. Implemented by manager.TokenManager.
type SessionRevoker interface {
	RevokeAllSessions(userID uint, reason string) error
}

// VerificationService owns the member verification lifecycle: admin decisions,
// the audit log, and retroactive session invalidation after rejection.
type VerificationService struct {
	profileRepo      repository.ProfileRepository
	statusChangeRepo repository.StatusChangeRepository
	invalidator      SessionInvalidator
	revoker          SessionRevoker
	emailService     EmailService
}

func NewVerificationService(
	profileRepo repository.ProfileRepository,
	statusChangeRepo repository.StatusChangeRepository,
	invalidator SessionInvalidator,
	revoker SessionRevoker,
	emailService EmailService,
) *VerificationService {
	return &VerificationService{
		profileRepo:      profileRepo,
		statusChangeRepo: statusChangeRepo,
		invalidator:      invalidator,
		revoker:          revoker,
		emailService:     emailService,
	}
}

// ApproveMember transitions a member to approved. Idempotent: approving an
// already-approved member changes nothing and writes no audit row.
func (s *VerificationService) ApproveMember(ctx context.Context, userID, adminID uint) error {
	change, err := s.profileRepo.UpdateVerificationStatus(ctx, userID, entity.StatusApproved, strconv.FormatUint(uint64(adminID), 10), "")
	if err != nil {
		return err
	}
	if change == nil {
		log.Printf("[VerificationService.ApproveMember] UserID=%d already approved, no-op", userID)
		return nil
	}

	log.Printf("[VerificationService.ApproveMember] UserID=%d approved by AdminID=%d (was %s)", userID, adminID, change.OldStatus)

	// A previously rejected member regains access: lift the invalidation
	// watermark so new sessions are not blocked by a stale rejection.
	if change.OldStatus == entity.StatusRejected {
		if err := s.invalidator.ClearUserInvalidation(ctx, userID); err != nil {
			log.Printf("[VerificationService.ApproveMember] Failed to clear invalidation for UserID=%d: %v", userID, err)
		}
	}

	s.notifyDecision(ctx, userID, change)
	return nil
}

// RejectMember transitions a member to rejected, revokes all stored sessions
// and sets the invalidation watermark so access tokens issued before the
// rejection die immediately. Idempotent on repeat rejections.
func (s *VerificationService) RejectMember(ctx context.Context, userID, adminID uint, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: rejection reason is required", apperrors.ErrValidation)
	}

	change, err := s.profileRepo.UpdateVerificationStatus(ctx, userID, entity.StatusRejected, strconv.FormatUint(uint64(adminID), 10), reason)
	if err != nil {
		return err
	}
	if change == nil {
		log.Printf("[VerificationService.RejectMember] UserID=%d already rejected, no-op", userID)
		return nil
	}

	log.Printf("[VerificationService.RejectMember] UserID=%d rejected by AdminID=%d (was %s)", userID, adminID, change.OldStatus)

	// The audit row is committed; invalidation failures must not undo the
	// transition. The gate independently checks for pending invalidations as
	// a backstop.
	if err := s.revoker.RevokeAllSessions(userID, "verification_rejected"); err != nil {
		log.Printf("[VerificationService.RejectMember] Failed to revoke refresh tokens for UserID=%d: %v", userID, err)
	}
	if err := s.invalidator.InvalidateUserSessions(ctx, userID, change.ChangedAt); err != nil {
		log.Printf("[VerificationService.RejectMember] Failed to set invalidation watermark for UserID=%d: %v", userID, err)
	}

	s.notifyDecision(ctx, userID, change)
	return nil
}

// ReapplyAfterRejection lets a rejected member return to pending. The
// transition is recorded with the member themselves as the actor.
func (s *VerificationService) ReapplyAfterRejection(ctx context.Context, userID uint) error {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.IsRejected() {
		return ErrNotRejected
	}

	change, err := s.profileRepo.UpdateVerificationStatus(ctx, userID, entity.StatusPending, strconv.FormatUint(uint64(userID), 10), "re-application")
	if err != nil {
		return err
	}
	if change == nil {
		return nil
	}

	// The member may hold sessions again; the old rejection watermark must
	// not keep killing them.
	if err := s.invalidator.ClearUserInvalidation(ctx, userID); err != nil {
		log.Printf("[VerificationService.ReapplyAfterRejection] Failed to clear invalidation for UserID=%d: %v", userID, err)
	}

	log.Printf("[VerificationService.ReapplyAfterRejection] UserID=%d back to pending", userID)
	return nil
}

// HasPendingInvalidation reports whether a token issued at issuedAt predates
// the member's most recent rejection. Strict comparison: a token issued in
// the same instant as the rejection survives.
func (s *VerificationService) HasPendingInvalidation(ctx context.Context, userID uint, issuedAt time.Time) (bool, error) {
	rejectedAt, err := s.statusChangeRepo.GetLatestRejection(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check rejection history: %w", err)
	}
	if rejectedAt == nil {
		return false, nil
	}
	return issuedAt.Before(*rejectedAt), nil
}

// ListMembersByStatus returns members in the given status, for the admin queue.
func (s *VerificationService) ListMembersByStatus(ctx context.Context, status string, limit, offset int) ([]entity.Profile, int64, error) {
	if !entity.IsValidStatus(status) {
		return nil, 0, fmt.Errorf("%w: unknown verification status %q", apperrors.ErrValidation, status)
	}
	return s.profileRepo.ListByStatus(ctx, status, limit, offset)
}

// AuditLog returns the global verification audit log, newest first.
func (s *VerificationService) AuditLog(ctx context.Context, limit, offset int) ([]entity.VerificationStatusChange, int64, error) {
	return s.statusChangeRepo.List(ctx, limit, offset)
}

// MemberHistory returns one member's transition history, newest first.
func (s *VerificationService) MemberHistory(ctx context.Context, userID uint, limit, offset int) ([]entity.VerificationStatusChange, error) {
	return s.statusChangeRepo.ListByUser(ctx, userID, limit, offset)
}

// notifyDecision emails the member about an approval or rejection.
// Best-effort: a send failure never fails the decision.
func (s *VerificationService) notifyDecision(ctx context.Context, userID uint, change *entity.VerificationStatusChange) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("[VerificationService.notifyDecision] Failed to load profile UserID=%d: %v", userID, err)
		return
	}

	switch change.NewStatus {
	case entity.StatusApproved:
		err = s.emailService.SendApprovalNotice(ctx, profile.Email, profile.FirstName)
	case entity.StatusRejected:
		err = s.emailService.SendRejectionNotice(ctx, profile.Email, profile.FirstName, change.Reason)
	default:
		return
	}
	if err != nil {
		log.Printf("[VerificationService.notifyDecision] Failed to email UserID=%d about %s: %v", userID, change.NewStatus, err)
	}
}
