package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/carecollective/care-api/internal/domain/entity"
)

func newVerificationServiceForTest() (*VerificationService, *MockProfileRepo, *MockStatusChangeRepo, *MockSessionInvalidator, *MockSessionRevoker, *MockEmailSender) {
	profileRepo := new(MockProfileRepo)
	statusChangeRepo := new(MockStatusChangeRepo)
	invalidator := new(MockSessionInvalidator)
	revoker := new(MockSessionRevoker)
	emailSender := new(MockEmailSender)
	svc := NewVerificationService(profileRepo, statusChangeRepo, invalidator, revoker, emailSender)
	return svc, profileRepo, statusChangeRepo, invalidator, revoker, emailSender
}

func TestVerificationService_ApproveMember(t *testing.T) {
	t.Run("Approves a pending member and emails them", func(t *testing.T) {
		svc, profileRepo, _, _, _, emailSender := newVerificationServiceForTest()
		ctx := context.Background()

		change := &entity.VerificationStatusChange{
			UserID:    7,
			OldStatus: entity.StatusPending,
			NewStatus: entity.StatusApproved,
			ChangedBy: "42",
			ChangedAt: time.Now(),
		}
		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusApproved, "42", "").Return(change, nil)
		profileRepo.On("GetByID", ctx, uint(7)).Return(&entity.Profile{ID: 7, Email: "m@example.com", FirstName: "Mia"}, nil)
		emailSender.On("SendApprovalNotice", ctx, "m@example.com", "Mia").Return(nil)

		err := svc.ApproveMember(ctx, 7, 42)

		assert.NoError(t, err)
		profileRepo.AssertExpectations(t)
		emailSender.AssertExpectations(t)
	})

	t.Run("No-op approval writes nothing and sends nothing", func(t *testing.T) {
		svc, profileRepo, _, invalidator, revoker, emailSender := newVerificationServiceForTest()
		ctx := context.Background()

		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusApproved, "42", "").Return(nil, nil)

		err := svc.ApproveMember(ctx, 7, 42)

		assert.NoError(t, err)
		emailSender.AssertNotCalled(t, "SendApprovalNotice", mock.Anything, mock.Anything, mock.Anything)
		invalidator.AssertNotCalled(t, "ClearUserInvalidation", mock.Anything, mock.Anything)
		revoker.AssertNotCalled(t, "RevokeAllSessions", mock.Anything, mock.Anything)
	})

	t.Run("Approving a rejected member clears the invalidation watermark", func(t *testing.T) {
		svc, profileRepo, _, invalidator, _, emailSender := newVerificationServiceForTest()
		ctx := context.Background()

		change := &entity.VerificationStatusChange{
			UserID:    7,
			OldStatus: entity.StatusRejected,
			NewStatus: entity.StatusApproved,
			ChangedBy: "42",
			ChangedAt: time.Now(),
		}
		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusApproved, "42", "").Return(change, nil)
		invalidator.On("ClearUserInvalidation", ctx, uint(7)).Return(nil)
		profileRepo.On("GetByID", ctx, uint(7)).Return(&entity.Profile{ID: 7, Email: "m@example.com"}, nil)
		emailSender.On("SendApprovalNotice", ctx, "m@example.com", "").Return(nil)

		err := svc.ApproveMember(ctx, 7, 42)

		assert.NoError(t, err)
		invalidator.AssertExpectations(t)
	})
}

func TestVerificationService_RejectMember(t *testing.T) {
	t.Run("Rejection revokes sessions and sets the watermark", func(t *testing.T) {
		svc, profileRepo, _, invalidator, revoker, emailSender := newVerificationServiceForTest()
		ctx := context.Background()
		changedAt := time.Now()

		change := &entity.VerificationStatusChange{
			UserID:    7,
			OldStatus: entity.StatusApproved,
			NewStatus: entity.StatusRejected,
			ChangedBy: "42",
			Reason:    "unable to verify identity",
			ChangedAt: changedAt,
		}
		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusRejected, "42", "unable to verify identity").Return(change, nil)
		revoker.On("RevokeAllSessions", uint(7), "verification_rejected").Return(nil)
		invalidator.On("InvalidateUserSessions", ctx, uint(7), changedAt).Return(nil)
		profileRepo.On("GetByID", ctx, uint(7)).Return(&entity.Profile{ID: 7, Email: "m@example.com", FirstName: "Mia"}, nil)
		emailSender.On("SendRejectionNotice", ctx, "m@example.com", "Mia", "unable to verify identity").Return(nil)

		err := svc.RejectMember(ctx, 7, 42, "unable to verify identity")

		assert.NoError(t, err)
		revoker.AssertExpectations(t)
		invalidator.AssertExpectations(t)
	})

	t.Run("Rejection without a reason is a validation error", func(t *testing.T) {
		svc, profileRepo, _, _, _, _ := newVerificationServiceForTest()

		err := svc.RejectMember(context.Background(), 7, 42, "")

		assert.Error(t, err)
		profileRepo.AssertNotCalled(t, "UpdateVerificationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Repeat rejection is a no-op and revokes nothing", func(t *testing.T) {
		svc, profileRepo, _, invalidator, revoker, _ := newVerificationServiceForTest()
		ctx := context.Background()

		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusRejected, "42", "still unverified").Return(nil, nil)

		err := svc.RejectMember(ctx, 7, 42, "still unverified")

		assert.NoError(t, err)
		revoker.AssertNotCalled(t, "RevokeAllSessions", mock.Anything, mock.Anything)
		invalidator.AssertNotCalled(t, "InvalidateUserSessions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Session revocation failure does not undo the committed transition", func(t *testing.T) {
		svc, profileRepo, _, invalidator, revoker, emailSender := newVerificationServiceForTest()
		ctx := context.Background()
		changedAt := time.Now()

		change := &entity.VerificationStatusChange{
			UserID:    7,
			OldStatus: entity.StatusPending,
			NewStatus: entity.StatusRejected,
			ChangedBy: "42",
			Reason:    "incomplete application",
			ChangedAt: changedAt,
		}
		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusRejected, "42", "incomplete application").Return(change, nil)
		revoker.On("RevokeAllSessions", uint(7), "verification_rejected").Return(errors.New("redis down"))
		invalidator.On("InvalidateUserSessions", ctx, uint(7), changedAt).Return(nil)
		profileRepo.On("GetByID", ctx, uint(7)).Return(&entity.Profile{ID: 7, Email: "m@example.com"}, nil)
		emailSender.On("SendRejectionNotice", ctx, "m@example.com", "", "incomplete application").Return(nil)

		err := svc.RejectMember(ctx, 7, 42, "incomplete application")

		assert.NoError(t, err)
		invalidator.AssertExpectations(t)
	})
}

func TestVerificationService_ReapplyAfterRejection(t *testing.T) {
	t.Run("Rejected member returns to pending as their own actor", func(t *testing.T) {
		svc, profileRepo, _, invalidator, _, _ := newVerificationServiceForTest()
		ctx := context.Background()

		profileRepo.On("GetByID", ctx, uint(7)).Return(&entity.Profile{ID: 7, VerificationStatus: entity.StatusRejected}, nil)
		change := &entity.VerificationStatusChange{
			UserID:    7,
			OldStatus: entity.StatusRejected,
			NewStatus: entity.StatusPending,
			ChangedBy: "7",
			ChangedAt: time.Now(),
		}
		profileRepo.On("UpdateVerificationStatus", ctx, uint(7), entity.StatusPending, "7", "re-application").Return(change, nil)
		invalidator.On("ClearUserInvalidation", ctx, uint(7)).Return(nil)

		err := svc.ReapplyAfterRejection(ctx, 7)

		assert.NoError(t, err)
		profileRepo.AssertExpectations(t)
		invalidator.AssertExpectations(t)
	})

	t.Run("Non-rejected member cannot re-apply", func(t *testing.T) {
		svc, profileRepo, _, _, _, _ := newVerificationServiceForTest()
		ctx := context.Background()

		profileRepo.On("GetByID", ctx, uint(7)).Return(&entity.Profile{ID: 7, VerificationStatus: entity.StatusApproved}, nil)

		err := svc.ReapplyAfterRejection(ctx, 7)

		assert.ErrorIs(t, err, ErrNotRejected)
		profileRepo.AssertNotCalled(t, "UpdateVerificationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestVerificationService_HasPendingInvalidation(t *testing.T) {
	ctx := context.Background()
	rejectedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Token issued before the rejection is invalidated", func(t *testing.T) {
		svc, _, statusChangeRepo, _, _, _ := newVerificationServiceForTest()
		statusChangeRepo.On("GetLatestRejection", ctx, uint(7)).Return(&rejectedAt, nil)

		pending, err := svc.HasPendingInvalidation(ctx, 7, rejectedAt.Add(-time.Minute))

		assert.NoError(t, err)
		assert.True(t, pending)
	})

	t.Run("Token issued at exactly the rejection instant survives", func(t *testing.T) {
		svc, _, statusChangeRepo, _, _, _ := newVerificationServiceForTest()
		statusChangeRepo.On("GetLatestRejection", ctx, uint(7)).Return(&rejectedAt, nil)

		pending, err := svc.HasPendingInvalidation(ctx, 7, rejectedAt)

		assert.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("Token issued after the rejection survives", func(t *testing.T) {
		svc, _, statusChangeRepo, _, _, _ := newVerificationServiceForTest()
		statusChangeRepo.On("GetLatestRejection", ctx, uint(7)).Return(&rejectedAt, nil)

		pending, err := svc.HasPendingInvalidation(ctx, 7, rejectedAt.Add(time.Second))

		assert.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("Never-rejected member has no pending invalidation", func(t *testing.T) {
		svc, _, statusChangeRepo, _, _, _ := newVerificationServiceForTest()
		statusChangeRepo.On("GetLatestRejection", ctx, uint(7)).Return(nil, nil)

		pending, err := svc.HasPendingInvalidation(ctx, 7, time.Now())

		assert.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("Lookup failure propagates instead of allowing", func(t *testing.T) {
		svc, _, statusChangeRepo, _, _, _ := newVerificationServiceForTest()
		statusChangeRepo.On("GetLatestRejection", ctx, uint(7)).Return(nil, errors.New("connection reset"))

		pending, err := svc.HasPendingInvalidation(ctx, 7, time.Now())

		assert.Error(t, err)
		assert.False(t, pending)
	})
}
