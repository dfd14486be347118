package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/services"
	"github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/response"
)

// MilestoneHandler exposes milestone lifecycle. Status and progress are
// derived server-side and absent from all request bodies.
type MilestoneHandler struct {
	svc *services.MilestoneService
}

type createMilestoneRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=256"`
	Description string     `json:"description" validate:"omitempty,max=4096"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	DueDate     *time.Time `json:"due_date"`
}

type updateMilestoneRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=256"`
	Description  *string    `json:"description" validate:"omitempty,max=4096"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

func NewMilestoneHandler(db *gorm.DB, engine *authz.Engine) (*MilestoneHandler, error) {
	svc, err := services.NewMilestoneService(db, engine)
	if err != nil {
		return nil, err
	}
	return &MilestoneHandler{svc: svc}, nil
}

// POST /api/teams/:id/milestones
func (h *MilestoneHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createMilestoneRequest
	if !bindAndValidate(c, &body) {
		return
	}

	milestone, err := h.svc.Create(requestContext(c), principal, services.CreateMilestoneInput{
		TeamID:      c.Param("id"),
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		DueDate:     body.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, milestone)
}

// GET /api/teams/:id/milestones
func (h *MilestoneHandler) ListForTeam(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	milestones, err := h.svc.ListForTeam(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, milestones)
}

// GET /api/milestones
func (h *MilestoneHandler) ListAll(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	milestones, err := h.svc.ListAll(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, milestones)
}

// GET /api/milestones/:id/tasks
func (h *MilestoneHandler) Tasks(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	tasks, err := h.svc.Tasks(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tasks)
}

// PATCH /api/milestones/:id
func (h *MilestoneHandler) Update(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body updateMilestoneRequest
	if !bindAndValidate(c, &body) {
		return
	}

	milestone, err := h.svc.Update(requestContext(c), principal, c.Param("id"), services.UpdateMilestoneInput{
		Title:        body.Title,
		Description:  body.Description,
		Priority:     body.Priority,
		DueDate:      body.DueDate,
		ClearDueDate: body.ClearDueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, milestone)
}

// DELETE /api/milestones/:id
func (h *MilestoneHandler) Delete(c *gin.Context) {
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
