package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/services"
	"github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/response"
)

// MessageHandler exposes team chat history.
type MessageHandler struct {
	svc *services.MessageService
}

type postMessageRequest struct {
	Message     string         `json:"message" validate:"required,min=1,max=4096"`
	MessageType string         `json:"message_type" validate:"omitempty,oneof=text system"`
	Metadata    datatypes.JSON `json:"metadata"`
}

func NewMessageHandler(db *gorm.DB, engine *authz.Engine) (*MessageHandler, error) {
	svc, err := services.NewMessageService(db, engine)
	if err != nil {
		return nil, err
	}
	return &MessageHandler{svc: svc}, nil
}

// POST /api/teams/:id/messages
func (h *MessageHandler) Post(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body postMessageRequest
	if !bindAndValidate(c, &body) {
		return
	}

	message, err := h.svc.Post(requestContext(c), principal, services.PostMessageInput{
		TeamID:      c.Param("id"),
		Message:     body.Message,
		MessageType: body.MessageType,
		Metadata:    body.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// GET /api/teams/:id/messages
func (h *MessageHandler) ListRecent(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	messages, err := h.svc.ListRecent(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// DELETE /api/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.svc.Delete(requestContext(c), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
