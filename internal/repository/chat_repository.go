package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"beifahrer/internal/model"
)

// ErrDuplicateChatID reports that an insert lost the id-allocation race.
// The primary key constraint is the authoritative uniqueness check; the
// registry's pre-draw existence probe is only an optimization.
var ErrDuplicateChatID = errors.New("chat id already exists")

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.ChatSession) error {
	if chat.History == nil {
		chat.History = model.History{}
	}
	if err := r.db.Create(chat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateChatID
		}
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

// Get returns (nil, nil) when the chat does not exist.
func (r *ChatRepository) Get(id string) (*model.ChatSession, error) {
	var chat model.ChatSession
	if err := r.db.Where("id = ?", id).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) Exists(id string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.ChatSession{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check chat exists failed: %w", err)
	}
	return count > 0, nil
}

// GetOrCreate inserts an empty chat under id, or fetches the existing one.
// The returned bool is true when a new row was created.
func (r *ChatRepository) GetOrCreate(id, defaultName string) (*model.ChatSession, bool, error) {
	chat := &model.ChatSession{
		ID:      id,
		Name:    defaultName,
		History: model.History{},
	}
	err := r.Create(chat)
	if err == nil {
		return chat, true, nil
	}
	if !errors.Is(err, ErrDuplicateChatID) {
		return nil, false, err
	}
	existing, err := r.Get(id)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("chat %s vanished during get-or-create", id)
	}
	return existing, false, nil
}

// AppendTurn appends the (user, assistant) pair in order under a row lock,
// so concurrent turns against the same chat cannot interleave their appends.
// Returns (nil, nil) when the chat does not exist.
func (r *ChatRepository) AppendTurn(id string, userMsg, assistantMsg model.Message) (*model.ChatSession, error) {
	var chat model.ChatSession
	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ?", id)
		// SQLite has no SELECT ... FOR UPDATE; its single-writer lock
		// serializes appends there anyway.
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&chat).Error; err != nil {
			return err
		}
		chat.History = append(chat.History, userMsg, assistantMsg)
		if err := tx.Model(&chat).Update("history", chat.History).Error; err != nil {
			return fmt.Errorf("update history failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("append turn failed: %w", err)
	}
	return &chat, nil
}
