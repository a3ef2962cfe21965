package entity

import "time"

// Conversation is a private message thread between members, optionally
// attached to a help request.
type Conversation struct {
	ID            uint  `gorm:"primaryKey" json:"id"`
	HelpRequestID *uint `gorm:"index" json:"help_request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// TableName sets the GORM table name.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant links a member to a conversation. Only participants
// may read or post messages.
type ConversationParticipant struct {
	ConversationID uint `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`

	JoinedAt   time.Time  `gorm:"not null" json:"joined_at"`
	LastReadAt *time.Time `gorm:"type:timestamp" json:"last_read_at,omitempty"`
}

// TableName sets the GORM table name.
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
