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

// AttachmentHandler exposes file upload, listing, download, and deletion on
// tasks. Uploads arrive as multipart form data under the "file" field.
type AttachmentHandler struct {
	svc *services.AttachmentService
}

func NewAttachmentHandler(db *gorm.DB, engine *authz.Engine, uploadDir string) (*AttachmentHandler, error) {
	svc, err := services.NewAttachmentService(db, engine, uploadDir)
	if err != nil {
		return nil, err
	}
	return &AttachmentHandler{svc: svc}, nil
}

// POST /api/tasks/:id/attachments
func (h *AttachmentHandler) Upload(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, errors.NewBadRequest("could not read uploaded file"))
		return
	}
	defer file.Close()

	attachment, err := h.svc.Upload(requestContext(c), principal, services.UploadInput{
		TaskID:       c.Param("id"),
		OriginalName: fileHeader.Filename,
		Mimetype:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Content:      file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, attachment)
}

// GET /api/tasks/:id/attachments
func (h *AttachmentHandler) ListForTask(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	attachments, err := h.svc.ListForTask(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, attachments)
}

// GET /api/attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	attachment, err := h.svc.Get(requestContext(c), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(attachment.Path, attachment.OriginalName)
}

// DELETE /api/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
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
