package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beifahrer/internal/app"
	"beifahrer/internal/model"
	"beifahrer/internal/transport/http/response"
)

type fakeConversations struct {
	startErr error
	histErr  error
	sendErr  error

	history model.History
	sentID  string
	sent    string
}

func (f *fakeConversations) StartChat(_ context.Context, firstMessage string) (*model.ChatSession, model.Message, error) {
	if f.startErr != nil {
		return nil, model.Message{}, f.startErr
	}
	reply := model.Message{Role: model.RoleAssistant, Content: "Hallo! Wie kann ich helfen?"}
	chat := &model.ChatSession{
		ID:      "123456",
		Name:    "Chat 123456",
		History: model.History{{Role: model.RoleUser, Content: firstMessage}, reply},
	}
	return chat, reply, nil
}

func (f *fakeConversations) GetHistory(_ context.Context, id string) (model.History, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.history, nil
}

func (f *fakeConversations) SendMessage(_ context.Context, id, content string) (model.Message, error) {
	if f.sendErr != nil {
		return model.Message{}, f.sendErr
	}
	f.sentID = id
	f.sent = content
	return model.Message{Role: model.RoleAssistant, Content: "Verstanden."}, nil
}

func newTestRouter(conversations ConversationAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewChatHandler(conversations)
	api := r.Group("/api")
	api.POST("/chat", h.StartChat)
	api.GET("/chat/:id", h.GetHistory)
	api.POST("/chat/:id", h.SendMessage)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestStartChatReturnsChatIDAndReply(t *testing.T) {
	r := newTestRouter(&fakeConversations{})

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat", `{"user_message_content":"Hallo"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeOK, parsed.Code)

	data, ok := parsed.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "123456", data["chat_id"])
	msg, ok := data["message"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, model.RoleAssistant, msg["role"])
	assert.NotEmpty(t, msg["content"])
}

func TestStartChatMissingContent(t *testing.T) {
	r := newTestRouter(&fakeConversations{})

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, parsed.Code)
}

func TestStartChatBlankContentMapsToBadRequest(t *testing.T) {
	r := newTestRouter(&fakeConversations{startErr: app.ErrMessageEmpty})

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat", `{"user_message_content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, parsed.Code)
}

func TestStartChatAllocationExhausted(t *testing.T) {
	r := newTestRouter(&fakeConversations{startErr: app.ErrAllocationExhausted})

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat", `{"user_message_content":"Hallo"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, response.CodeAllocationExhausted, parsed.Code)
}

func TestGetHistoryReturnsTranscript(t *testing.T) {
	history := model.History{
		{Role: model.RoleUser, Content: "Hallo"},
		{Role: model.RoleAssistant, Content: "Hallo! Wie kann ich helfen?"},
	}
	r := newTestRouter(&fakeConversations{history: history})

	w, parsed := doJSON(t, r, http.MethodGet, "/api/chat/123456", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeOK, parsed.Code)

	data, ok := parsed.Data.(map[string]interface{})
	require.True(t, ok)
	entries, ok := data["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestGetHistoryUnknownChatIs404(t *testing.T) {
	r := newTestRouter(&fakeConversations{histErr: app.ErrChatNotFound})

	w, parsed := doJSON(t, r, http.MethodGet, "/api/chat/999999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeChatNotFound, parsed.Code)
}

func TestSendMessagePassesIDAndContent(t *testing.T) {
	fake := &fakeConversations{}
	r := newTestRouter(fake)

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat/123456", `{"user_message_content":"Was macht der Spurhalteassistent?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeOK, parsed.Code)
	assert.Equal(t, "123456", fake.sentID)
	assert.Equal(t, "Was macht der Spurhalteassistent?", fake.sent)

	data, ok := parsed.Data.(map[string]interface{})
	require.True(t, ok)
	msg, ok := data["message"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Verstanden.", msg["content"])
}

func TestSendMessageUnknownChatIs404(t *testing.T) {
	r := newTestRouter(&fakeConversations{sendErr: app.ErrChatNotFound})

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat/999999", `{"user_message_content":"Hallo"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeChatNotFound, parsed.Code)
}

func TestSendMessageBackendFailureIs500(t *testing.T) {
	r := newTestRouter(&fakeConversations{sendErr: errors.New("db gone")})

	w, parsed := doJSON(t, r, http.MethodPost, "/api/chat/123456", `{"user_message_content":"Hallo"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, response.CodeInternalServer, parsed.Code)
}
