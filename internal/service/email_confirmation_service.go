package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
)

const (
	confirmationCodeLength = 6
	confirmationCodeTTL    = 15 * time.Minute
	confirmationMaxTries   = 5
	resendCooldown         = 60 * time.Second
)

// EmailConfirmationService issues and verifies email confirmation codes.
// Codes are stored as salted SHA-256 hashes with a server-side pepper.
type EmailConfirmationService struct {
	confirmationRepo repository.EmailConfirmationRepository
	profileRepo      repository.ProfileRepository
	emailService     EmailService
	pepper           string
}

// ConfirmationStatus describes the active confirmation code for a member.
type ConfirmationStatus struct {
	HasActiveCode     bool       `json:"has_active_code"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	CanResendAt       *time.Time `json:"can_resend_at,omitempty"`
}

func NewEmailConfirmationService(
	confirmationRepo repository.EmailConfirmationRepository,
	profileRepo repository.ProfileRepository,
	emailService EmailService,
	pepper string,
) *EmailConfirmationService {
	return &EmailConfirmationService{
		confirmationRepo: confirmationRepo,
		profileRepo:      profileRepo,
		emailService:     emailService,
		pepper:           pepper,
	}
}

// SendCode generates a fresh code for the member and emails it.
// A previous active code is superseded. Enforces a resend cooldown.
func (s *EmailConfirmationService) SendCode(ctx context.Context, userID uint) error {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if profile.EmailConfirmed() {
		log.Printf("[EmailConfirmationService.SendCode] UserID=%d already confirmed, skipping", userID)
		return nil
	}

	existing, err := s.confirmationRepo.GetLatestActiveByUserID(userID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check active confirmation code: %w", err)
	}
	if existing != nil && time.Since(existing.LastSentAt) < resendCooldown {
		return ErrConfirmationResendCooldown
	}

	code, err := generateNumericCode(confirmationCodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	salt, err := generateSaltHex(16)
	if err != nil {
		return fmt.Errorf("failed to generate code salt: %w", err)
	}

	record := &entity.EmailConfirmationCode{
		UserID:      userID,
		Email:       profile.Email,
		CodeHash:    s.hashCode(code, salt),
		CodeSalt:    salt,
		ExpiresAt:   time.Now().Add(confirmationCodeTTL),
		MaxAttempts: confirmationMaxTries,
		LastSentAt:  time.Now(),
	}

	// A new code supersedes any previous ones for the member.
	if err := s.confirmationRepo.DeleteByUserID(userID); err != nil {
		return fmt.Errorf("failed to supersede previous codes: %w", err)
	}
	if err := s.confirmationRepo.Create(record); err != nil {
		return fmt.Errorf("failed to store confirmation code: %w", err)
	}

	idempotencyKey := fmt.Sprintf("confirm-%d-%d", userID, record.ID)
	if err := s.emailService.SendConfirmationCode(ctx, profile.Email, code, idempotencyKey); err != nil {
		log.Printf("[EmailConfirmationService.SendCode] Send failed for UserID=%d: %v", userID, err)
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	log.Printf("[EmailConfirmationService.SendCode] Code sent to UserID=%d", userID)
	return nil
}

// ConfirmCode verifies the submitted code and marks the member's email as
// confirmed. Comparison is constant-time over the hashes.
func (s *EmailConfirmationService) ConfirmCode(ctx context.Context, userID uint, code string) error {
	record, err := s.confirmationRepo.GetLatestActiveByUserID(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrInvalidConfirmationCode
		}
		return fmt.Errorf("failed to load confirmation code: %w", err)
	}

	if record.IsExpired(time.Now()) {
		return ErrConfirmationExpired
	}
	if record.AttemptCount >= record.MaxAttempts {
		return ErrConfirmationAttemptsExceeded
	}

	submitted := []byte(s.hashCode(code, record.CodeSalt))
	stored := []byte(record.CodeHash)
	if subtle.ConstantTimeCompare(submitted, stored) != 1 {
		if err := s.confirmationRepo.IncrementAttempts(record.ID); err != nil {
			log.Printf("[EmailConfirmationService.ConfirmCode] Failed to count attempt for UserID=%d: %v", userID, err)
		}
		return ErrInvalidConfirmationCode
	}

	if err := s.confirmationRepo.MarkConsumed(record.ID); err != nil {
		return fmt.Errorf("failed to consume confirmation code: %w", err)
	}

	now := time.Now()
	if err := s.profileRepo.UpdateProfile(userID, map[string]interface{}{
		"email_confirmed_at": now,
	}); err != nil {
		return fmt.Errorf("failed to mark email confirmed: %w", err)
	}

	log.Printf("[EmailConfirmationService.ConfirmCode] Email confirmed for UserID=%d", userID)
	return nil
}

// Status returns the state of the member's active confirmation code.
func (s *EmailConfirmationService) Status(ctx context.Context, userID uint) (*ConfirmationStatus, error) {
	record, err := s.confirmationRepo.GetLatestActiveByUserID(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &ConfirmationStatus{HasActiveCode: false}, nil
		}
		return nil, fmt.Errorf("failed to load confirmation code: %w", err)
	}

	status := &ConfirmationStatus{
		HasActiveCode:     !record.IsExpired(time.Now()),
		ExpiresAt:         &record.ExpiresAt,
		AttemptsRemaining: record.MaxAttempts - record.AttemptCount,
	}
	if status.AttemptsRemaining < 0 {
		status.AttemptsRemaining = 0
	}
	if cooldownEnd := record.LastSentAt.Add(resendCooldown); time.Now().Before(cooldownEnd) {
		status.CanResendAt = &cooldownEnd
	}
	return status, nil
}

func (s *EmailConfirmationService) hashCode(code, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code + ":" + s.pepper))
	return hex.EncodeToString(sum[:])
}

func generateNumericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func generateSaltHex(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
