package repository

import (
	"fmt"

	"gorm.io/gorm"

	"ragdesk/internal/model"
)

type ChatTurnRepository struct {
	db *gorm.DB
}

func NewChatTurnRepository(db *gorm.DB) *ChatTurnRepository {
	return &ChatTurnRepository{db: db}
}

func (r *ChatTurnRepository) Create(turn *model.ChatTurn) error {
	if err := r.db.Create(turn).Error; err != nil {
		return fmt.Errorf("create chat turn failed: %w", err)
	}
	return nil
}

func (r *ChatTurnRepository) ListBySessionID(sessionID string, limit int) ([]model.ChatTurn, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var turns []model.ChatTurn
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC, id ASC").Limit(limit).Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list chat turns failed: %w", err)
	}
	return turns, nil
}
