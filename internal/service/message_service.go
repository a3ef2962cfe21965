package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
)

const maxMessageLength = 4000

// MessageService manages private conversations between members. Threads are
// deduplicated per help request and participant pair, and only participants
// may read or post.
type MessageService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	helpRequestRepo  repository.HelpRequestRepository
	profileRepo      repository.ProfileRepository
}

func NewMessageService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	helpRequestRepo repository.HelpRequestRepository,
	profileRepo repository.ProfileRepository,
) *MessageService {
	return &MessageService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		helpRequestRepo:  helpRequestRepo,
		profileRepo:      profileRepo,
	}
}

// StartConversation opens (or returns the existing) thread between the member
// and the author of a help request.
func (s *MessageService) StartConversation(ctx context.Context, helpRequestID, initiatorID uint) (*entity.Conversation, error) {
	if err := s.requireApproved(ctx, initiatorID); err != nil {
		return nil, err
	}

	request, err := s.helpRequestRepo.GetByID(ctx, helpRequestID)
	if err != nil {
		return nil, err
	}
	if request.AuthorID == initiatorID {
		return nil, ErrOwnRequest
	}

	existing, err := s.conversationRepo.FindByHelpRequestAndUsers(ctx, helpRequestID, initiatorID, request.AuthorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	conversation := &entity.Conversation{HelpRequestID: &helpRequestID}
	if err := s.conversationRepo.CreateWithParticipants(ctx, conversation, []uint{initiatorID, request.AuthorID}); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	log.Printf("[MessageService.StartConversation] ConversationID=%d opened for RequestID=%d by UserID=%d", conversation.ID, helpRequestID, initiatorID)
	return conversation, nil
}

// SendMessage posts a message into a conversation the member participates in.
func (s *MessageService) SendMessage(ctx context.Context, conversationID, senderID uint, body string) (*entity.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", apperrors.ErrValidation)
	}
	if len(body) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is too long", apperrors.ErrValidation)
	}

	if err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	message := &entity.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if err := s.conversationRepo.Touch(ctx, conversationID, time.Now()); err != nil {
		log.Printf("[MessageService.SendMessage] Failed to touch ConversationID=%d: %v", conversationID, err)
	}

	return message, nil
}

// ListMessages returns the conversation's messages oldest first.
func (s *MessageService) ListMessages(ctx context.Context, conversationID, userID uint, limit, offset int) ([]entity.Message, int64, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, 0, err
	}
	return s.messageRepo.ListByConversation(ctx, conversationID, limit, offset)
}

// ListConversations returns the member's threads, most recently active first.
func (s *MessageService) ListConversations(ctx context.Context, userID uint, limit, offset int) ([]entity.Conversation, int64, error) {
	return s.conversationRepo.ListByUser(ctx, userID, limit, offset)
}

// MarkRead records the member's read position in the conversation.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, userID uint) error {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.conversationRepo.MarkRead(ctx, conversationID, userID, time.Now())
}

func (s *MessageService) requireParticipant(ctx context.Context, conversationID, userID uint) error {
	ok, err := s.conversationRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to check participation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: not a participant of this conversation", apperrors.ErrForbidden)
	}
	return nil
}

func (s *MessageService) requireApproved(ctx context.Context, userID uint) error {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.IsApproved() {
		return ErrNotApproved
	}
	return nil
}
