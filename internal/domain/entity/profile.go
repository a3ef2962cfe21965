package entity

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Verification statuses for a member profile.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// SystemActor is recorded as changed_by for automated status transitions
// (self-service re-application, data migrations).
const SystemActor = "system"

// Profile represents a registered community member.
type Profile struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	PublicID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"id"`

	Email    string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`

	FirstName string `gorm:"size:100;not null;default:''" json:"first_name"`
	LastName  string `gorm:"size:100;not null;default:''" json:"last_name"`
	Location  string `gorm:"size:100;not null;default:''" json:"location"`
	Phone     string `gorm:"size:30;not null;default:''" json:"phone,omitempty"`

	// VerificationStatus gates access to community features: pending, approved, rejected.
	VerificationStatus string `gorm:"size:20;not null;default:'pending';index" json:"verification_status"`

	// IsAdmin is independent of VerificationStatus: an admin must also be
	// approved to act as admin.
	IsAdmin bool `gorm:"not null;default:false" json:"is_admin"`

	EmailConfirmedAt *time.Time `gorm:"type:timestamp" json:"email_confirmed_at,omitempty"`

	AppliedAt       time.Time  `gorm:"not null" json:"applied_at"`
	ApprovedAt      *time.Time `gorm:"type:timestamp" json:"approved_at,omitempty"`
	ApprovedBy      *uint      `json:"approved_by,omitempty"`
	RejectionReason string     `gorm:"size:500;not null;default:''" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the GORM table name.
func (Profile) TableName() string {
	return "profiles"
}

// IsApproved reports whether the member passed verification.
func (p *Profile) IsApproved() bool {
	return p.VerificationStatus == StatusApproved
}

// IsRejected reports whether the member was rejected by an admin.
func (p *Profile) IsRejected() bool {
	return p.VerificationStatus == StatusRejected
}

// EmailConfirmed reports whether the member confirmed their email address.
func (p *Profile) EmailConfirmed() bool {
	return p.EmailConfirmedAt != nil
}

// FullName returns the display name for notifications and admin views.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsValidStatus reports whether s is a known verification status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// BeforeCreate assigns a public UUID and the application timestamp.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID == uuid.Nil {
		p.PublicID = uuid.New()
	}
	if p.AppliedAt.IsZero() {
		p.AppliedAt = time.Now()
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = StatusPending
	}
	return nil
}

// BeforeSave hashes the password unless it already is a bcrypt hash.
func (p *Profile) BeforeSave(tx *gorm.DB) error {
	if len(p.Password) > 0 && !strings.HasPrefix(p.Password, "$2a$") &&
		!strings.HasPrefix(p.Password, "$2b$") && !strings.HasPrefix(p.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[Profile.BeforeSave] Failed to hash password for email=%s: %v", p.Email, err)
			return err
		}
		p.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (p *Profile) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password))
	return err == nil
}
