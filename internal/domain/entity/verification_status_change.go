package entity

import "time"

// VerificationStatusChange is one row of the append-only verification audit log.
// Rows are immutable once written: application code never updates or deletes them.
type VerificationStatusChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_status_changes_user" json:"user_id"`
	OldStatus string    `gorm:"size:20;not null" json:"old_status"`
	NewStatus string    `gorm:"size:20;not null" json:"new_status"`
	ChangedBy string    `gorm:"size:50;not null" json:"changed_by"` // admin id or "system"
	Reason    string    `gorm:"size:500;not null;default:''" json:"reason,omitempty"`
	ChangedAt time.Time `gorm:"not null;index:idx_status_changes_user" json:"changed_at"`
}

// TableName sets the GORM table name.
func (VerificationStatusChange) TableName() string {
	return "verification_status_changes"
}

// IsDisqualifying reports whether this transition must retroactively kill
// sessions issued before it.
func (c *VerificationStatusChange) IsDisqualifying() bool {
	return c.NewStatus == StatusRejected
}
