package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/services"
	"github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/response"
)

// CommentHandler exposes task discussion threads.
type CommentHandler struct {
	svc *services.CommentService
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4096"`
}

func NewCommentHandler(db *gorm.DB, engine *authz.Engine) (*CommentHandler, error) {
	svc, err := services.NewCommentService(db, engine)
	if err != nil {
		return nil, err
	}
	return &CommentHandler{svc: svc}, nil
}

// POST /api/tasks/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createCommentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	comment, err := h.svc.Create(requestContext(c), principal, c.Param("id"), body.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, comment)
}

// GET /api/tasks/:id/comments
func (h *CommentHandler) ListForTask(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	comments, err := h.svc.ListForTask(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, comments)
}

// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
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
