package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// ConversationRepository handles conversation and message data access
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// WithTx returns a repository bound to tx. A nil tx returns r unchanged.
func (r *ConversationRepository) WithTx(tx *gorm.DB) *ConversationRepository {
	if tx == nil {
		return r
	}
	return &ConversationRepository{db: tx}
}

// CreateWithParticipants inserts the conversation and its participant rows.
// When the conversation carries a customer/employee pair that already has a
// thread, nothing is written and false is returned.
func (r *ConversationRepository) CreateWithParticipants(ctx context.Context, conv *domain.Conversation, participantIDs []uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(conv)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	rows := make([]domain.ConversationParticipant, 0, len(participantIDs))
	for _, id := range participantIDs {
		rows = append(rows, domain.ConversationParticipant{ConversationID: conv.ID, UserID: id})
	}
	if len(rows) > 0 {
		if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

// GetByID retrieves a conversation with its participants
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).Preload("Participants").First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByPair retrieves the advisor thread between a customer and an employee
func (r *ConversationRepository) GetByPair(ctx context.Context, customerID, employeeID uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&conv, "customer_id = ? AND employee_id = ?", customerID, employeeID).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns the user's conversations, most recently active first
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?)", r.db.Model(&domain.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}

// CountForCustomer counts the advisor threads opened for a customer
func (r *ConversationRepository) CountForCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count, err
}

// Touch sets the conversation's modification time
func (r *ConversationRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error
}

// ListMessages returns the conversation's messages oldest first. A positive
// last keeps only the most recent last messages.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, last int) ([]domain.Message, error) {
	var msgs []domain.Message
	query := r.db.WithContext(ctx).Preload("Author").Where("conversation_id = ?", conversationID)

	if last > 0 {
		if err := query.Order("created_at DESC").Limit(last).Find(&msgs).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
		return msgs, nil
	}

	err := query.Order("created_at ASC").Find(&msgs).Error
	return msgs, err
}

// MarkRead flags every unread message not written by readerID as read
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND author_id <> ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// CountUnread counts unread messages addressed to userID in the conversation
func (r *ConversationRepository) CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND author_id <> ? AND is_read = ?", conversationID, userID, false).
		Count(&count).Error
	return count, err
}
