package repository

import (
	"fmt"

	"gorm.io/gorm"

	"beifahrer/internal/model"
)

type TurnEventRepository struct {
	db *gorm.DB
}

func NewTurnEventRepository(db *gorm.DB) *TurnEventRepository {
	return &TurnEventRepository{db: db}
}

func (r *TurnEventRepository) Create(event *model.TurnEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create turn event failed: %w", err)
	}
	return nil
}

func (r *TurnEventRepository) ListByChatID(chatID string) ([]model.TurnEvent, error) {
	var events []model.TurnEvent
	if err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list turn events failed: %w", err)
	}
	return events, nil
}
