package model

import "time"

// TurnEvent is the per-message audit row written asynchronously by the turn
// persistence worker. The durable transcript lives in chats.history; these
// rows exist for analytics and inspection of individual messages.
type TurnEvent struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string    `gorm:"size:6;not null;index" json:"chat_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (TurnEvent) TableName() string {
	return "turn_events"
}
