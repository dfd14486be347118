package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/services"
	"github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/response"
)

// UserHandler exposes the user directory and profile management.
type UserHandler struct {
	svc *services.UserService
}

type updateProfileRequest struct {
	AvatarURL            *string        `json:"avatar_url" validate:"omitempty,max=512"`
	Bio                  *string        `json:"bio" validate:"omitempty,max=1024"`
	Phone                *string        `json:"phone" validate:"omitempty,max=32"`
	Timezone             *string        `json:"timezone" validate:"omitempty,max=64"`
	NotificationSettings datatypes.JSON `json:"notification_settings"`
	ThemeSettings        datatypes.JSON `json:"theme_settings"`
}

func NewUserHandler(db *gorm.DB, jwt *auth.JWTService) (*UserHandler, error) {
	svc, err := services.NewUserService(db, jwt)
	if err != nil {
		return nil, err
	}
	return &UserHandler{svc: svc}, nil
}

// GET /api/users?search=
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(requestContext(c), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PATCH /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body updateProfileRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.svc.UpdateProfile(requestContext(c), principal.ID, services.UpdateProfileInput{
		AvatarURL:            body.AvatarURL,
		Bio:                  body.Bio,
		Phone:                body.Phone,
		Timezone:             body.Timezone,
		NotificationSettings: body.NotificationSettings,
		ThemeSettings:        body.ThemeSettings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
