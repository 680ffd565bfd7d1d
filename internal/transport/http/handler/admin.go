package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"beifahrer/internal/model"
	"beifahrer/internal/transport/http/response"
)

// DocumentLister returns the ingested knowledge documents.
type DocumentLister interface {
	ListAll() ([]model.KnowledgeDocument, error)
}

// TurnEventLister returns the per-message audit trail of one chat.
type TurnEventLister interface {
	ListByChatID(chatID string) ([]model.TurnEvent, error)
}

// AdminHandler serves the inspection endpoints: the knowledge-base inventory
// and the asynchronous turn audit trail.
type AdminHandler struct {
	documents DocumentLister
	events    TurnEventLister
}

func NewAdminHandler(documents DocumentLister, events TurnEventLister) *AdminHandler {
	return &AdminHandler{documents: documents, events: events}
}

type DocumentsResponse struct {
	Documents []model.KnowledgeDocument `json:"documents"`
}

type TurnEventsResponse struct {
	Events []model.TurnEvent `json:"events"`
}

// ListDocuments handles GET /api/documents.
func (h *AdminHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListAll()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, DocumentsResponse{Documents: docs})
}

// ListTurnEvents handles GET /api/chat/:id/events. The audit trail is
// written asynchronously, so it may trail the transcript; an unknown chat
// simply has no events yet.
func (h *AdminHandler) ListTurnEvents(c *gin.Context) {
	events, err := h.events.ListByChatID(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list turn events failed")
		return
	}
	response.OK(c, TurnEventsResponse{Events: events})
}
