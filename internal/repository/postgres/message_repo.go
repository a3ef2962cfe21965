package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// MessageRepo implements repository.MessageRepository.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new message repository.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(message *entity.Message) error {
	return r.db.Create(message).Error
}

// ListByConversation returns messages oldest first with pagination.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uint, limit, offset int) ([]entity.Message, int64, error) {
	var messages []entity.Message
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.Message{}).Where("conversation_id = ?", conversationID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
