package repository

import (
	"context"
	"time"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// ConversationRepository defines persistence for message threads.
type ConversationRepository interface {
	// CreateWithParticipants creates the conversation and its participant rows
	// in one transaction.
	CreateWithParticipants(ctx context.Context, conversation *entity.Conversation, userIDs []uint) error

	GetByID(ctx context.Context, id uint) (*entity.Conversation, error)

	// FindByHelpRequestAndUsers finds an existing thread between two members
	// about a help request, for deduplication. Returns apperrors.ErrNotFound
	// when no thread exists.
	FindByHelpRequestAndUsers(ctx context.Context, helpRequestID, userA, userB uint) (*entity.Conversation, error)

	// IsParticipant reports whether the member belongs to the conversation.
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)

	// ListByUser returns the member's conversations, most recently updated first.
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.Conversation, int64, error)

	// MarkRead records the member's read position in the conversation.
	MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error

	// Touch bumps the conversation's updated_at when a message arrives.
	Touch(ctx context.Context, conversationID uint, at time.Time) error
}

// MessageRepository defines persistence for messages.
type MessageRepository interface {
	Create(message *entity.Message) error

	// ListByConversation returns messages oldest first with pagination and the
	// total message count.
	ListByConversation(ctx context.Context, conversationID uint, limit, offset int) ([]entity.Message, int64, error)
}
