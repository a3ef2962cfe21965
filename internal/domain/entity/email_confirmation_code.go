package entity

import "time"

// EmailConfirmationCode stores hashed confirmation codes sent to members.
type EmailConfirmationCode struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	Email        string     `gorm:"size:100;not null" json:"email"`
	CodeHash     string     `gorm:"size:64;not null" json:"-"`
	CodeSalt     string     `gorm:"size:64;not null" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts  int        `gorm:"not null;default:5" json:"max_attempts"`
	LastSentAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_sent_at"`
	ConsumedAt   *time.Time `gorm:"index" json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the GORM table name.
func (EmailConfirmationCode) TableName() string {
	return "email_confirmation_codes"
}

// IsConsumed reports whether the code has been used.
func (e *EmailConfirmationCode) IsConsumed() bool {
	return e.ConsumedAt != nil
}

// IsExpired reports whether the code expired at time now.
func (e *EmailConfirmationCode) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
