package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/mapper"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
)

// ConversationService handles messaging between participants. Only
// participants may read or post.
type ConversationService struct {
	db               *gorm.DB
	conversationRepo *repository.ConversationRepository
	logger           *zap.Logger
	now              func() time.Time
}

// NewConversationService creates a new conversation service
func NewConversationService(db *gorm.DB, conversationRepo *repository.ConversationRepository, logger *zap.Logger) *ConversationService {
	return &ConversationService{
		db:               db,
		conversationRepo: conversationRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// ListForUser returns the caller's conversations, most recently active first
func (s *ConversationService) ListForUser(ctx context.Context) ([]domain.ConversationDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	convs, err := s.conversationRepo.ListForUser(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	dtos := make([]domain.ConversationDTO, len(convs))
	for i := range convs {
		unread, err := s.conversationRepo.CountUnread(ctx, convs[i].ID, userCtx.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to count unread messages: %w", err)
		}
		dtos[i] = mapper.ToConversationDTO(&convs[i], unread)
	}
	return dtos, nil
}

// Get returns the conversation with its messages, oldest first. A positive
// last keeps only the last messages.
func (s *ConversationService) Get(ctx context.Context, id uuid.UUID, last int) (*domain.ConversationDTO, error) {
	userCtx, conv, err := s.participantConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	conv.Messages, err = s.conversationRepo.ListMessages(ctx, conv.ID, last)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	unread, err := s.conversationRepo.CountUnread(ctx, conv.ID, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	dto := mapper.ToConversationDTO(conv, unread)
	return &dto, nil
}

// ListMessages returns the conversation's messages oldest first, optionally
// only the last ones
func (s *ConversationService) ListMessages(ctx context.Context, id uuid.UUID, last int) ([]domain.MessageDTO, error) {
	_, conv, err := s.participantConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	msgs, err := s.conversationRepo.ListMessages(ctx, conv.ID, last)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return mapper.ToMessageDTOs(msgs), nil
}

// AddMessage posts a message and bumps the conversation's modification time
func (s *ConversationService) AddMessage(ctx context.Context, id uuid.UUID, content string) (*domain.MessageDTO, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}

	userCtx, conv, err := s.participantConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		AuthorID:       userCtx.UserID,
		Content:        content,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convs := s.conversationRepo.WithTx(tx)
		if err := convs.CreateMessage(ctx, msg); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		if err := convs.Touch(ctx, conv.ID, s.now()); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range conv.Participants {
		if conv.Participants[i].ID == msg.AuthorID {
			msg.Author = &conv.Participants[i]
		}
	}

	dto := mapper.ToMessageDTO(msg)
	return &dto, nil
}

// MarkRead flags the messages addressed to the caller as read
func (s *ConversationService) MarkRead(ctx context.Context, id uuid.UUID) (int64, error) {
	userCtx, conv, err := s.participantConversation(ctx, id)
	if err != nil {
		return 0, err
	}

	n, err := s.conversationRepo.MarkRead(ctx, conv.ID, userCtx.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return n, nil
}

func (s *ConversationService) participantConversation(ctx context.Context, id uuid.UUID) (*auth.UserContext, *domain.Conversation, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, nil, ErrUnauthorized
	}

	conv, err := s.conversationRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if !conv.HasParticipant(userCtx.UserID) {
		return nil, nil, ErrPermissionDenied
	}
	return userCtx, conv, nil
}
