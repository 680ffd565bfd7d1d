package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"beifahrer/internal/app"
	"beifahrer/internal/model"
	"beifahrer/internal/transport/http/response"
)

// ConversationAPI is the slice of the conversation service the chat
// endpoints need.
type ConversationAPI interface {
	StartChat(ctx context.Context, firstMessage string) (*model.ChatSession, model.Message, error)
	GetHistory(ctx context.Context, id string) (model.History, error)
	SendMessage(ctx context.Context, id, content string) (model.Message, error)
}

type ChatHandler struct {
	conversations ConversationAPI
}

func NewChatHandler(conversations ConversationAPI) *ChatHandler {
	return &ChatHandler{conversations: conversations}
}

type ChatRequest struct {
	UserMessageContent string `json:"user_message_content" binding:"required"`
}

type NewChatResponse struct {
	ChatID  string        `json:"chat_id"`
	Message model.Message `json:"message"`
}

type ChatResponse struct {
	Message model.Message `json:"message"`
}

type HistoryResponse struct {
	History model.History `json:"history"`
}

// StartChat handles POST /api/chat: open a new chat from its first message.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "user_message_content is required")
		return
	}

	chat, reply, err := h.conversations.StartChat(c.Request.Context(), req.UserMessageContent)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrAllocationExhausted):
			response.Error(c, http.StatusInternalServerError, response.CodeAllocationExhausted, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "start chat failed")
		}
		return
	}

	response.OK(c, NewChatResponse{ChatID: chat.ID, Message: reply})
}

// GetHistory handles GET /api/chat/:id.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	history, err := h.conversations.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		}
		return
	}

	response.OK(c, HistoryResponse{History: history})
}

// SendMessage handles POST /api/chat/:id: one conversation turn.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "user_message_content is required")
		return
	}

	reply, err := h.conversations.SendMessage(c.Request.Context(), c.Param("id"), req.UserMessageContent)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, ChatResponse{Message: reply})
}
