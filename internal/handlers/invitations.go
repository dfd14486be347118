package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/services"
	"github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/mail"
	"github.com/taskflowhq/taskflow/pkg/response"
)

// InvitationHandler exposes the invitation lifecycle.
type InvitationHandler struct {
	svc *services.InvitationService
}

type inviteRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func NewInvitationHandler(db *gorm.DB, engine *authz.Engine, mailer mail.Mailer) (*InvitationHandler, error) {
	svc, err := services.NewInvitationService(db, engine, mailer)
	if err != nil {
		return nil, err
	}
	return &InvitationHandler{svc: svc}, nil
}

// POST /api/teams/:id/invitations
func (h *InvitationHandler) Invite(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body inviteRequest
	if !bindAndValidate(c, &body) {
		return
	}

	invitation, err := h.svc.Invite(requestContext(c), principal, c.Param("id"), body.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/invitations
func (h *InvitationHandler) ListPending(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	invitations, err := h.svc.ListPending(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invitations)
}

// POST /api/invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	invitation, err := h.svc.Accept(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invitation)
}

// POST /api/invitations/:id/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	invitation, err := h.svc.Decline(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invitation)
}
