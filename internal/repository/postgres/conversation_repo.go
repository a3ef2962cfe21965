package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/carecollective/care-api/internal/domain/entity"
	apperrors "github.com/carecollective/care-api/internal/pkg/errors"
)

// ConversationRepo implements repository.ConversationRepository.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new conversation repository.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateWithParticipants creates the conversation and its participant rows in
// one transaction.
func (r *ConversationRepo) CreateWithParticipants(ctx context.Context, conversation *entity.Conversation, userIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, userID := range userIDs {
			participant := &entity.ConversationParticipant{
				ConversationID: conversation.ID,
				UserID:         userID,
				JoinedAt:       now,
			}
			if err := tx.Create(participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uint) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := r.db.WithContext(ctx).Preload("Participants").First(&conversation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// FindByHelpRequestAndUsers finds an existing thread between two members
// about a help request.
func (r *ConversationRepo) FindByHelpRequestAndUsers(ctx context.Context, helpRequestID, userA, userB uint) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants pa ON pa.conversation_id = conversations.id AND pa.user_id = ?", userA).
		Joins("JOIN conversation_participants pb ON pb.conversation_id = conversations.id AND pb.user_id = ?", userB).
		Where("conversations.help_request_id = ?", helpRequestID).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns the member's conversations, most recently updated first.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.Conversation, int64, error) {
	var conversations []entity.Conversation
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.Conversation{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("conversations.updated_at DESC").
		Limit(limit).Offset(offset).
		Preload("Participants").
		Find(&conversations).Error
	if err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

// MarkRead records the member's read position.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Touch bumps updated_at so the conversation sorts to the top of listings.
func (r *ConversationRepo) Touch(ctx context.Context, conversationID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", at).Error
}
