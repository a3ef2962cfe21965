package repository

import "github.com/carecollective/care-api/internal/domain/entity"

// EmailConfirmationRepository persists email confirmation code attempts.
type EmailConfirmationRepository interface {
	Create(code *entity.EmailConfirmationCode) error
	GetLatestActiveByUserID(userID uint) (*entity.EmailConfirmationCode, error)
	IncrementAttempts(id uint) error
	MarkConsumed(id uint) error
	DeleteByUserID(userID uint) error
}
