package entity

import "time"

// Help request categories.
const (
	CategoryGroceries = "groceries"
	CategoryTransport = "transport"
	CategoryHousehold = "household"
	CategoryMedical   = "medical"
	CategoryChildcare = "childcare"
	CategoryOther     = "other"
)

// Help request urgency levels.
const (
	UrgencyNormal   = "normal"
	UrgencyUrgent   = "urgent"
	UrgencyCritical = "critical"
)

// Help request statuses.
const (
	HelpRequestOpen       = "open"
	HelpRequestInProgress = "in_progress"
	HelpRequestCompleted  = "completed"
	HelpRequestCancelled  = "cancelled"
)

// HelpRequest is a member's posted request for assistance.
type HelpRequest struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	AuthorID    uint   `gorm:"not null;index" json:"author_id"`
	Title       string `gorm:"size:150;not null" json:"title"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	Category    string `gorm:"size:30;not null;index" json:"category"`
	Urgency     string `gorm:"size:20;not null;default:'normal'" json:"urgency"`
	Status      string `gorm:"size:20;not null;default:'open';index" json:"status"`

	// HelperID is set when another member offers to help.
	HelperID    *uint      `gorm:"index" json:"helper_id,omitempty"`
	ClaimedAt   *time.Time `gorm:"type:timestamp" json:"claimed_at,omitempty"`
	CompletedAt *time.Time `gorm:"type:timestamp" json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the GORM table name.
func (HelpRequest) TableName() string {
	return "help_requests"
}

// IsOpen reports whether the request still accepts offers.
func (hr *HelpRequest) IsOpen() bool {
	return hr.Status == HelpRequestOpen
}

// IsValidCategory reports whether c is a known help request category.
func IsValidCategory(c string) bool {
	switch c {
	case CategoryGroceries, CategoryTransport, CategoryHousehold,
		CategoryMedical, CategoryChildcare, CategoryOther:
		return true
	default:
		return false
	}
}

// IsValidUrgency reports whether u is a known urgency level.
func IsValidUrgency(u string) bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyCritical:
		return true
	default:
		return false
	}
}

// IsValidHelpRequestStatus reports whether s is a known request status.
func IsValidHelpRequestStatus(s string) bool {
	switch s {
	case HelpRequestOpen, HelpRequestInProgress, HelpRequestCompleted, HelpRequestCancelled:
		return true
	default:
		return false
	}
}
