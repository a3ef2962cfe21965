package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
)

func newConfirmationServiceForTest() (*EmailConfirmationService, *MockEmailConfirmationRepo, *MockProfileRepo, *MockEmailSender) {
	confirmationRepo := new(MockEmailConfirmationRepo)
	profileRepo := new(MockProfileRepo)
	emailSender := new(MockEmailSender)
	svc := NewEmailConfirmationService(confirmationRepo, profileRepo, emailSender, "test-pepper")
	return svc, confirmationRepo, profileRepo, emailSender
}

func TestEmailConfirmationService_SendCode(t *testing.T) {
	ctx := context.Background()

	t.Run("Generates, stores and emails a fresh code", func(t *testing.T) {
		svc, confirmationRepo, profileRepo, emailSender := newConfirmationServiceForTest()
		profileRepo.On("GetByID", ctx, uint(1)).Return(&entity.Profile{ID: 1, Email: "m@example.com"}, nil)
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(nil, apperrors.ErrNotFound)
		confirmationRepo.On("DeleteByUserID", uint(1)).Return(nil)
		confirmationRepo.On("Create", mock.AnythingOfType("*entity.EmailConfirmationCode")).Return(nil)
		emailSender.On("SendConfirmationCode", ctx, "m@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

		err := svc.SendCode(ctx, 1)

		assert.NoError(t, err)
		confirmationRepo.AssertExpectations(t)
		emailSender.AssertExpectations(t)
	})

	t.Run("Already confirmed member gets no code", func(t *testing.T) {
		svc, confirmationRepo, profileRepo, emailSender := newConfirmationServiceForTest()
		now := time.Now()
		profileRepo.On("GetByID", ctx, uint(1)).Return(&entity.Profile{ID: 1, Email: "m@example.com", EmailConfirmedAt: &now}, nil)

		err := svc.SendCode(ctx, 1)

		assert.NoError(t, err)
		confirmationRepo.AssertNotCalled(t, "Create", mock.Anything)
		emailSender.AssertNotCalled(t, "SendConfirmationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Resend within the cooldown window is refused", func(t *testing.T) {
		svc, confirmationRepo, profileRepo, _ := newConfirmationServiceForTest()
		profileRepo.On("GetByID", ctx, uint(1)).Return(&entity.Profile{ID: 1, Email: "m@example.com"}, nil)
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(&entity.EmailConfirmationCode{
			UserID:     1,
			LastSentAt: time.Now().Add(-10 * time.Second),
			ExpiresAt:  time.Now().Add(10 * time.Minute),
		}, nil)

		err := svc.SendCode(ctx, 1)

		assert.ErrorIs(t, err, ErrConfirmationResendCooldown)
		confirmationRepo.AssertNotCalled(t, "Create", mock.Anything)
	})
}

func TestEmailConfirmationService_ConfirmCode(t *testing.T) {
	ctx := context.Background()

	// Build a record with a known code the way the service hashes it.
	makeRecord := func(svc *EmailConfirmationService, code string) *entity.EmailConfirmationCode {
		return &entity.EmailConfirmationCode{
			ID:          3,
			UserID:      1,
			CodeHash:    svc.hashCode(code, "salt"),
			CodeSalt:    "salt",
			ExpiresAt:   time.Now().Add(10 * time.Minute),
			MaxAttempts: 5,
		}
	}

	t.Run("Correct code marks the email confirmed", func(t *testing.T) {
		svc, confirmationRepo, profileRepo, _ := newConfirmationServiceForTest()
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(makeRecord(svc, "123456"), nil)
		confirmationRepo.On("MarkConsumed", uint(3)).Return(nil)
		profileRepo.On("UpdateProfile", uint(1), mock.MatchedBy(func(updates map[string]interface{}) bool {
			_, ok := updates["email_confirmed_at"]
			return ok
		})).Return(nil)

		err := svc.ConfirmCode(ctx, 1, "123456")

		require.NoError(t, err)
		confirmationRepo.AssertExpectations(t)
		profileRepo.AssertExpectations(t)
	})

	t.Run("Wrong code counts an attempt", func(t *testing.T) {
		svc, confirmationRepo, _, _ := newConfirmationServiceForTest()
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(makeRecord(svc, "123456"), nil)
		confirmationRepo.On("IncrementAttempts", uint(3)).Return(nil)

		err := svc.ConfirmCode(ctx, 1, "654321")

		assert.ErrorIs(t, err, ErrInvalidConfirmationCode)
		confirmationRepo.AssertCalled(t, "IncrementAttempts", uint(3))
	})

	t.Run("Expired code is refused", func(t *testing.T) {
		svc, confirmationRepo, _, _ := newConfirmationServiceForTest()
		record := makeRecord(svc, "123456")
		record.ExpiresAt = time.Now().Add(-time.Minute)
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(record, nil)

		err := svc.ConfirmCode(ctx, 1, "123456")

		assert.ErrorIs(t, err, ErrConfirmationExpired)
	})

	t.Run("Attempt limit is enforced even with the right code", func(t *testing.T) {
		svc, confirmationRepo, _, _ := newConfirmationServiceForTest()
		record := makeRecord(svc, "123456")
		record.AttemptCount = 5
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(record, nil)

		err := svc.ConfirmCode(ctx, 1, "123456")

		assert.ErrorIs(t, err, ErrConfirmationAttemptsExceeded)
	})

	t.Run("No active code behaves like a wrong code", func(t *testing.T) {
		svc, confirmationRepo, _, _ := newConfirmationServiceForTest()
		confirmationRepo.On("GetLatestActiveByUserID", uint(1)).Return(nil, apperrors.ErrNotFound)

		err := svc.ConfirmCode(ctx, 1, "123456")

		assert.ErrorIs(t, err, ErrInvalidConfirmationCode)
	})
}
