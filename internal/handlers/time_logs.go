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

// TimeLogHandler exposes task timers.
type TimeLogHandler struct {
	svc *services.TimeLogService
}

type startTimerRequest struct {
	Description string `json:"description" validate:"omitempty,max=1024"`
}

func NewTimeLogHandler(db *gorm.DB, engine *authz.Engine) (*TimeLogHandler, error) {
	svc, err := services.NewTimeLogService(db, engine)
	if err != nil {
		return nil, err
	}
	return &TimeLogHandler{svc: svc}, nil
}

// POST /api/tasks/:id/time-logs/start
func (h *TimeLogHandler) Start(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body startTimerRequest
	if !bindAndValidate(c, &body) {
		return
	}

	log, err := h.svc.Start(requestContext(c), principal, c.Param("id"), body.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, log)
}

// POST /api/time-logs/stop
func (h *TimeLogHandler) Stop(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	log, err := h.svc.Stop(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, log)
}

// GET /api/time-logs/active
func (h *TimeLogHandler) Active(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	log, err := h.svc.Active(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, log)
}

// GET /api/tasks/:id/time-logs
func (h *TimeLogHandler) ListForTask(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	logs, err := h.svc.ListForTask(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

// DELETE /api/time-logs/:id
func (h *TimeLogHandler) Delete(c *gin.Context) {
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
