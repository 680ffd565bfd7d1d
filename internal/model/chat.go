package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrInvalidRole = errors.New("message role must be user or assistant")

// Message is one transcript entry. Immutable once appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validate rejects roles outside the user/assistant pair and blank content.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}
	if strings.TrimSpace(m.Content) == "" {
		return errors.New("message content is empty")
	}
	return nil
}

// History is the ordered transcript, persisted as a JSON column.
type History []Message

func (h History) Value() (driver.Value, error) {
	if h == nil {
		h = History{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal history failed: %w", err)
	}
	return string(b), nil
}

func (h *History) Scan(src interface{}) error {
	if src == nil {
		*h = History{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported history column type %T", src)
	}
	if len(raw) == 0 {
		*h = History{}
		return nil
	}
	if err := json.Unmarshal(raw, h); err != nil {
		return fmt.Errorf("unmarshal history failed: %w", err)
	}
	return nil
}

// ChatSession is one conversation, keyed by a 6-digit numeric id.
// History is append-only: turns are recorded as one user message followed
// by one assistant message.
type ChatSession struct {
	ID        string    `gorm:"primaryKey;size:6" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	History   History   `gorm:"type:json" json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "chats"
}
