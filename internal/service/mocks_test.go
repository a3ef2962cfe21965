package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
)

// --- Repository mocks ---

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Create(profile *entity.Profile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id uint) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepo) GetByPublicID(ctx context.Context, publicID uuid.UUID) (*entity.Profile, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepo) GetByEmail(email string) (*entity.Profile, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockProfileRepo) UpdatePassword(userID uint, newPassword string) error {
	args := m.Called(userID, newPassword)
	return args.Error(0)
}

func (m *MockProfileRepo) UpdateVerificationStatus(ctx context.Context, userID uint, newStatus, changedBy, reason string) (*entity.VerificationStatusChange, error) {
	args := m.Called(ctx, userID, newStatus, changedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VerificationStatusChange), args.Error(1)
}

func (m *MockProfileRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]entity.Profile, int64, error) {
	args := m.Called(ctx, status, limit, offset)
	var profiles []entity.Profile
	if args.Get(0) != nil {
		profiles = args.Get(0).([]entity.Profile)
	}
	return profiles, args.Get(1).(int64), args.Error(2)
}

func (m *MockProfileRepo) ListAll(ctx context.Context) ([]entity.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Profile), args.Error(1)
}

type MockStatusChangeRepo struct {
	mock.Mock
}

func (m *MockStatusChangeRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.VerificationStatusChange, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.VerificationStatusChange), args.Error(1)
}

func (m *MockStatusChangeRepo) List(ctx context.Context, limit, offset int) ([]entity.VerificationStatusChange, int64, error) {
	args := m.Called(ctx, limit, offset)
	var changes []entity.VerificationStatusChange
	if args.Get(0) != nil {
		changes = args.Get(0).([]entity.VerificationStatusChange)
	}
	return changes, args.Get(1).(int64), args.Error(2)
}

func (m *MockStatusChangeRepo) GetLatestRejection(ctx context.Context, userID uint) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

type MockHelpRequestRepo struct {
	mock.Mock
}

func (m *MockHelpRequestRepo) Create(request *entity.HelpRequest) error {
	args := m.Called(request)
	return args.Error(0)
}

func (m *MockHelpRequestRepo) GetByID(ctx context.Context, id uint) (*entity.HelpRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.HelpRequest), args.Error(1)
}

func (m *MockHelpRequestRepo) Update(request *entity.HelpRequest) error {
	args := m.Called(request)
	return args.Error(0)
}

func (m *MockHelpRequestRepo) List(ctx context.Context, filter repository.HelpRequestFilter, limit, offset int) ([]entity.HelpRequest, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	var requests []entity.HelpRequest
	if args.Get(0) != nil {
		requests = args.Get(0).([]entity.HelpRequest)
	}
	return requests, args.Get(1).(int64), args.Error(2)
}

func (m *MockHelpRequestRepo) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	args := m.Called(ctx, authorID, limit, offset)
	var requests []entity.HelpRequest
	if args.Get(0) != nil {
		requests = args.Get(0).([]entity.HelpRequest)
	}
	return requests, args.Get(1).(int64), args.Error(2)
}

func (m *MockHelpRequestRepo) ListByHelper(ctx context.Context, helperID uint, limit, offset int) ([]entity.HelpRequest, int64, error) {
	args := m.Called(ctx, helperID, limit, offset)
	var requests []entity.HelpRequest
	if args.Get(0) != nil {
		requests = args.Get(0).([]entity.HelpRequest)
	}
	return requests, args.Get(1).(int64), args.Error(2)
}

func (m *MockHelpRequestRepo) Claim(ctx context.Context, id, helperID uint) error {
	args := m.Called(ctx, id, helperID)
	return args.Error(0)
}

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) CreateWithParticipants(ctx context.Context, conversation *entity.Conversation, userIDs []uint) error {
	args := m.Called(ctx, conversation, userIDs)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id uint) (*entity.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindByHelpRequestAndUsers(ctx context.Context, helpRequestID, userA, userB uint) (*entity.Conversation, error) {
	args := m.Called(ctx, helpRequestID, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.Conversation, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	var conversations []entity.Conversation
	if args.Get(0) != nil {
		conversations = args.Get(0).([]entity.Conversation)
	}
	return conversations, args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepo) MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error {
	args := m.Called(ctx, conversationID, userID, at)
	return args.Error(0)
}

func (m *MockConversationRepo) Touch(ctx context.Context, conversationID uint, at time.Time) error {
	args := m.Called(ctx, conversationID, at)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(message *entity.Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockMessageRepo) ListByConversation(ctx context.Context, conversationID uint, limit, offset int) ([]entity.Message, int64, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	var messages []entity.Message
	if args.Get(0) != nil {
		messages = args.Get(0).([]entity.Message)
	}
	return messages, args.Get(1).(int64), args.Error(2)
}

type MockEmailConfirmationRepo struct {
	mock.Mock
}

func (m *MockEmailConfirmationRepo) Create(code *entity.EmailConfirmationCode) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockEmailConfirmationRepo) GetLatestActiveByUserID(userID uint) (*entity.EmailConfirmationCode, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailConfirmationCode), args.Error(1)
}

func (m *MockEmailConfirmationRepo) IncrementAttempts(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockEmailConfirmationRepo) MarkConsumed(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockEmailConfirmationRepo) DeleteByUserID(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

// --- Collaborator mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendConfirmationCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, code, idempotencyKey)
	return args.Error(0)
}

func (m *MockEmailSender) SendApprovalNotice(ctx context.Context, toEmail, firstName string) error {
	args := m.Called(ctx, toEmail, firstName)
	return args.Error(0)
}

func (m *MockEmailSender) SendRejectionNotice(ctx context.Context, toEmail, firstName, reason string) error {
	args := m.Called(ctx, toEmail, firstName, reason)
	return args.Error(0)
}

type MockSessionInvalidator struct {
	mock.Mock
}

func (m *MockSessionInvalidator) InvalidateUserSessions(ctx context.Context, userID uint, from time.Time) error {
	args := m.Called(ctx, userID, from)
	return args.Error(0)
}

func (m *MockSessionInvalidator) ClearUserInvalidation(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockSessionRevoker struct {
	mock.Mock
}

func (m *MockSessionRevoker) RevokeAllSessions(userID uint, reason string) error {
	args := m.Called(userID, reason)
	return args.Error(0)
}
