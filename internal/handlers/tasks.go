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

// TaskHandler exposes task lifecycle within teams.
type TaskHandler struct {
	svc *services.TaskService
}

type createTaskRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=256"`
	Description  string     `json:"description" validate:"omitempty,max=4096"`
	AssignedToID *string    `json:"assigned_to_id" validate:"omitempty,uuid4"`
	MilestoneID  *string    `json:"milestone_id" validate:"omitempty,uuid4"`
	Status       string     `json:"status" validate:"omitempty,oneof='To Do' 'In Progress' 'Done'"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	DueDate      *time.Time `json:"due_date"`
}

type updateTaskRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=256"`
	Description  *string    `json:"description" validate:"omitempty,max=4096"`
	AssignedToID *string    `json:"assigned_to_id"`
	MilestoneID  *string    `json:"milestone_id"`
	Status       *string    `json:"status" validate:"omitempty,oneof='To Do' 'In Progress' 'Done'"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

func NewTaskHandler(db *gorm.DB, engine *authz.Engine) (*TaskHandler, error) {
	svc, err := services.NewTaskService(db, engine)
	if err != nil {
		return nil, err
	}
	return &TaskHandler{svc: svc}, nil
}

// POST /api/teams/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.Create(requestContext(c), principal, services.CreateTaskInput{
		TeamID:       c.Param("id"),
		Title:        body.Title,
		Description:  body.Description,
		AssignedToID: body.AssignedToID,
		MilestoneID:  body.MilestoneID,
		Status:       body.Status,
		Priority:     body.Priority,
		DueDate:      body.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// GET /api/teams/:id/tasks
func (h *TaskHandler) ListForTeam(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	tasks, err := h.svc.ListForTeam(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/assigned
func (h *TaskHandler) ListAssigned(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	tasks, err := h.svc.ListAssigned(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	task, err := h.svc.Get(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body updateTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.Update(requestContext(c), principal, c.Param("id"), services.UpdateTaskInput{
		Title:        body.Title,
		Description:  body.Description,
		AssignedToID: body.AssignedToID,
		MilestoneID:  body.MilestoneID,
		Status:       body.Status,
		Priority:     body.Priority,
		DueDate:      body.DueDate,
		ClearDueDate: body.ClearDueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
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
