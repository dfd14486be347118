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

// TeamHandler exposes team lifecycle and membership management.
type TeamHandler struct {
	svc *services.TeamService
}

type createTeamRequest struct {
	Name string `json:"name" validate:"required,min=2,max=128"`
}

type teamMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func NewTeamHandler(db *gorm.DB, engine *authz.Engine) (*TeamHandler, error) {
	svc, err := services.NewTeamService(db, engine)
	if err != nil {
		return nil, err
	}
	return &TeamHandler{svc: svc}, nil
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	teams, err := h.svc.List(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.Create(requestContext(c), principal, services.CreateTeamInput{Name: body.Name})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	team, err := h.svc.Get(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
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

// GET /api/teams/:id/members
func (h *TeamHandler) Members(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	members, err := h.svc.Members(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body teamMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.AddMember(requestContext(c), principal, c.Param("id"), body.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"added": true})
}

// DELETE /api/teams/:id/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.svc.RemoveMember(requestContext(c), principal, c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
