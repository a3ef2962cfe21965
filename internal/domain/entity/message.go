package entity

import "time"

// Message is one message inside a conversation.
type Message struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ConversationID uint   `gorm:"not null;index:idx_messages_conversation" json:"conversation_id"`
	SenderID       uint   `gorm:"not null;index" json:"sender_id"`
	Body           string `gorm:"type:text;not null" json:"body"`

	CreatedAt time.Time `gorm:"index:idx_messages_conversation" json:"created_at"`
}

// TableName sets the GORM table name.
func (Message) TableName() string {
	return "messages"
}
