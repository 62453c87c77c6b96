package repository

import (
	"context"

	"mechanical_shop/internal/models"

	"gorm.io/gorm"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	Recent(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]models.ChatMessage, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type chatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &chatMessageRepository{db: db}
}

func (r *chatMessageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// Recent returns the latest messages in chronological order.
func (r *chatMessageRepository) Recent(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatMessageRepository) ListByUser(ctx context.Context, userID string, page Page) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&messages).Error
	return messages, err
}

func (r *chatMessageRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}
