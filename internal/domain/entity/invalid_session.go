package entity

import "time"

// InvalidSession is a per-user invalidation watermark. Any access token issued
// before InvalidationTime is treated as dead even if cryptographically valid.
type InvalidSession struct {
	UserID           uint      `gorm:"primaryKey" json:"user_id"`
	InvalidationTime time.Time `gorm:"not null" json:"invalidation_time"`
}

// TableName sets the GORM table name.
func (InvalidSession) TableName() string {
	return "invalid_sessions"
}

// CoversTokenIssuedAt reports whether a token issued at issuedAt falls under
// this invalidation watermark.
func (is *InvalidSession) CoversTokenIssuedAt(issuedAt time.Time) bool {
	return issuedAt.Before(is.InvalidationTime)
}
