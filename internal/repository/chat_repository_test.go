package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"beifahrer/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.ChatSession{},
		&model.KnowledgeDocument{},
		&model.Chunk{},
		&model.TurnEvent{},
	))
	return db
}

func TestChatCreateAndGet(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	chat := &model.ChatSession{
		ID:      "123456",
		Name:    "Chat 123456",
		History: model.History{{Role: model.RoleUser, Content: "Hallo"}},
	}
	require.NoError(t, repo.Create(chat))

	got, err := repo.Get("123456")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Chat 123456", got.Name)
	require.Len(t, got.History, 1)
	assert.Equal(t, "Hallo", got.History[0].Content)
}

func TestChatGetUnknownReturnsNil(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	got, err := repo.Get("999999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChatCreateDuplicateID(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	require.NoError(t, repo.Create(&model.ChatSession{ID: "123456", Name: "erster"}))
	err := repo.Create(&model.ChatSession{ID: "123456", Name: "zweiter"})
	assert.ErrorIs(t, err, ErrDuplicateChatID)
}

func TestChatExists(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	require.NoError(t, repo.Create(&model.ChatSession{ID: "123456", Name: "Chat 123456"}))

	exists, err := repo.Exists("123456")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists("999999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChatGetOrCreate(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	chat, created, err := repo.GetOrCreate("123456", "Chat 123456")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Chat 123456", chat.Name)
	assert.NotNil(t, chat.History)

	// Second call fetches the stored row; the new default name is ignored.
	again, created, err := repo.GetOrCreate("123456", "anderer Name")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Chat 123456", again.Name)
}

func TestChatAppendTurnOrdersPairs(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	require.NoError(t, repo.Create(&model.ChatSession{ID: "123456", Name: "Chat 123456"}))

	updated, err := repo.AppendTurn("123456",
		model.Message{Role: model.RoleUser, Content: "Frage 1"},
		model.Message{Role: model.RoleAssistant, Content: "Antwort 1"},
	)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Len(t, updated.History, 2)

	updated, err = repo.AppendTurn("123456",
		model.Message{Role: model.RoleUser, Content: "Frage 2"},
		model.Message{Role: model.RoleAssistant, Content: "Antwort 2"},
	)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Len(t, updated.History, 4)

	// The persisted transcript matches what AppendTurn returned.
	got, err := repo.Get("123456")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.History, 4)
	assert.Equal(t, "Frage 1", got.History[0].Content)
	assert.Equal(t, "Antwort 1", got.History[1].Content)
	assert.Equal(t, "Frage 2", got.History[2].Content)
	assert.Equal(t, "Antwort 2", got.History[3].Content)
}

func TestChatAppendTurnUnknownChat(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	updated, err := repo.AppendTurn("999999",
		model.Message{Role: model.RoleUser, Content: "Hallo?"},
		model.Message{Role: model.RoleAssistant, Content: "..."},
	)
	require.NoError(t, err)
	assert.Nil(t, updated)
}
