package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
)

func newMessageServiceForTest() (*MessageService, *MockConversationRepo, *MockMessageRepo, *MockHelpRequestRepo, *MockProfileRepo) {
	conversationRepo := new(MockConversationRepo)
	messageRepo := new(MockMessageRepo)
	helpRequestRepo := new(MockHelpRequestRepo)
	profileRepo := new(MockProfileRepo)
	svc := NewMessageService(conversationRepo, messageRepo, helpRequestRepo, profileRepo)
	return svc, conversationRepo, messageRepo, helpRequestRepo, profileRepo
}

func TestMessageService_StartConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("Opens a new thread with both participants", func(t *testing.T) {
		svc, conversationRepo, _, helpRequestRepo, profileRepo := newMessageServiceForTest()
		profileRepo.On("GetByID", ctx, uint(2)).Return(approvedProfile(2), nil)
		helpRequestRepo.On("GetByID", ctx, uint(10)).Return(&entity.HelpRequest{ID: 10, AuthorID: 1, Status: entity.HelpRequestOpen}, nil)
		conversationRepo.On("FindByHelpRequestAndUsers", ctx, uint(10), uint(2), uint(1)).Return(nil, apperrors.ErrNotFound)
		conversationRepo.On("CreateWithParticipants", ctx, mock.AnythingOfType("*entity.Conversation"), []uint{2, 1}).Return(nil)

		conversation, err := svc.StartConversation(ctx, 10, 2)

		require.NoError(t, err)
		require.NotNil(t, conversation.HelpRequestID)
		assert.Equal(t, uint(10), *conversation.HelpRequestID)
		conversationRepo.AssertExpectations(t)
	})

	t.Run("Existing thread is reused", func(t *testing.T) {
		svc, conversationRepo, _, helpRequestRepo, profileRepo := newMessageServiceForTest()
		profileRepo.On("GetByID", ctx, uint(2)).Return(approvedProfile(2), nil)
		helpRequestRepo.On("GetByID", ctx, uint(10)).Return(&entity.HelpRequest{ID: 10, AuthorID: 1}, nil)
		existing := &entity.Conversation{ID: 5}
		conversationRepo.On("FindByHelpRequestAndUsers", ctx, uint(10), uint(2), uint(1)).Return(existing, nil)

		conversation, err := svc.StartConversation(ctx, 10, 2)

		require.NoError(t, err)
		assert.Equal(t, uint(5), conversation.ID)
		conversationRepo.AssertNotCalled(t, "CreateWithParticipants", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Author cannot message themselves about their request", func(t *testing.T) {
		svc, _, _, helpRequestRepo, profileRepo := newMessageServiceForTest()
		profileRepo.On("GetByID", ctx, uint(1)).Return(approvedProfile(1), nil)
		helpRequestRepo.On("GetByID", ctx, uint(10)).Return(&entity.HelpRequest{ID: 10, AuthorID: 1}, nil)

		_, err := svc.StartConversation(ctx, 10, 1)

		assert.ErrorIs(t, err, ErrOwnRequest)
	})

	t.Run("Pending member cannot start conversations", func(t *testing.T) {
		svc, conversationRepo, _, _, profileRepo := newMessageServiceForTest()
		profileRepo.On("GetByID", ctx, uint(2)).Return(&entity.Profile{ID: 2, VerificationStatus: entity.StatusPending}, nil)

		_, err := svc.StartConversation(ctx, 10, 2)

		assert.ErrorIs(t, err, ErrNotApproved)
		conversationRepo.AssertNotCalled(t, "CreateWithParticipants", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMessageService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Participant posts a message and bumps the thread", func(t *testing.T) {
		svc, conversationRepo, messageRepo, _, _ := newMessageServiceForTest()
		conversationRepo.On("IsParticipant", ctx, uint(5), uint(2)).Return(true, nil)
		messageRepo.On("Create", mock.MatchedBy(func(msg *entity.Message) bool {
			return msg.ConversationID == 5 && msg.SenderID == 2 && msg.Body == "I can pick that up tomorrow"
		})).Return(nil)
		conversationRepo.On("Touch", ctx, uint(5), mock.AnythingOfType("time.Time")).Return(nil)

		message, err := svc.SendMessage(ctx, 5, 2, "  I can pick that up tomorrow  ")

		require.NoError(t, err)
		assert.Equal(t, "I can pick that up tomorrow", message.Body)
		messageRepo.AssertExpectations(t)
	})

	t.Run("Non-participant is refused", func(t *testing.T) {
		svc, conversationRepo, messageRepo, _, _ := newMessageServiceForTest()
		conversationRepo.On("IsParticipant", ctx, uint(5), uint(9)).Return(false, nil)

		_, err := svc.SendMessage(ctx, 5, 9, "hello")

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		messageRepo.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("Empty body is a validation error", func(t *testing.T) {
		svc, _, _, _, _ := newMessageServiceForTest()

		_, err := svc.SendMessage(ctx, 5, 2, "   ")

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestMessageService_ListMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("Participant reads the thread", func(t *testing.T) {
		svc, conversationRepo, messageRepo, _, _ := newMessageServiceForTest()
		conversationRepo.On("IsParticipant", ctx, uint(5), uint(2)).Return(true, nil)
		messageRepo.On("ListByConversation", ctx, uint(5), 50, 0).Return([]entity.Message{{ID: 1}, {ID: 2}}, int64(2), nil)

		messages, total, err := svc.ListMessages(ctx, 5, 2, 50, 0)

		require.NoError(t, err)
		assert.Len(t, messages, 2)
		assert.Equal(t, int64(2), total)
	})

	t.Run("Non-participant cannot read the thread", func(t *testing.T) {
		svc, conversationRepo, messageRepo, _, _ := newMessageServiceForTest()
		conversationRepo.On("IsParticipant", ctx, uint(5), uint(9)).Return(false, nil)

		_, _, err := svc.ListMessages(ctx, 5, 9, 50, 0)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		messageRepo.AssertNotCalled(t, "ListByConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
