package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

// ErrAttachmentNotFound indicates the requested attachment does not exist.
var ErrAttachmentNotFound = apperrors.New("ATTACHMENT_NOT_FOUND", "Attachment not found", http.StatusNotFound)

// UploadInput carries the uploaded file's metadata and content stream.
type UploadInput struct {
	TaskID       string
	OriginalName string
	Mimetype     string
	Size         int64
	Content      io.Reader
}

// AttachmentService stores task attachments on the local filesystem and
// tracks their descriptors in the database.
type AttachmentService struct {
	db     *gorm.DB
	engine *authz.Engine
	dir    string
}

// NewAttachmentService constructs an AttachmentService. Files are written
// beneath dir, which is created if missing.
func NewAttachmentService(db *gorm.DB, engine *authz.Engine, dir string) (*AttachmentService, error) {
	if db == nil {
		return nil, errors.New("attachment service: db is required")
	}
	if engine == nil {
		return nil, errors.New("attachment service: authz engine is required")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("attachment service: upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment service: create upload dir: %w", err)
	}
	return &AttachmentService{db: db, engine: engine, dir: dir}, nil
}

// Upload stores the file and records its descriptor. The stored filename is
// randomised; the original name survives only in metadata.
func (s *AttachmentService) Upload(ctx context.Context, actor authz.Principal, input UploadInput) (*models.Attachment, error) {
	ctx = ensureContext(ctx)

	if input.Content == nil {
		return nil, apperrors.NewBadRequest("file content is required")
	}
	original := strings.TrimSpace(input.OriginalName)
	if original == "" {
		return nil, apperrors.NewBadRequest("file name is required")
	}

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionContribute, authz.Locator{Kind: authz.KindTask, ID: input.TaskID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	filename := uuid.NewString() + filepath.Ext(original)
	path := filepath.Join(s.dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("attachment service: create file: %w", err)
	}
	written, err := io.Copy(dst, input.Content)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("attachment service: write file: %w", err)
	}

	attachment := &models.Attachment{
		TaskID:       input.TaskID,
		UploadedBy:   actor.ID,
		Filename:     filename,
		OriginalName: original,
		Path:         path,
		Mimetype:     strings.TrimSpace(input.Mimetype),
		Size:         written,
	}
	if err := s.db.WithContext(ctx).Create(attachment).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("attachment service: record attachment: %w", err)
	}
	return attachment, nil
}

// ListForTask returns a task's attachment descriptors, newest first.
func (s *AttachmentService) ListForTask(ctx context.Context, actor authz.Principal, taskID string) ([]models.Attachment, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.Locator{Kind: authz.KindTask, ID: taskID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var attachments []models.Attachment
	if err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("attachment service: list attachments: %w", err)
	}
	return attachments, nil
}

// Get loads a descriptor the actor may read, for download handling.
func (s *AttachmentService) Get(ctx context.Context, actor authz.Principal, attachmentID string) (*models.Attachment, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.Locator{Kind: authz.KindAttachment, ID: attachmentID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var attachment models.Attachment
	if err := s.db.WithContext(ctx).First(&attachment, "id = ?", attachmentID).Error; err != nil {
		return nil, fmt.Errorf("attachment service: load attachment: %w", err)
	}
	return &attachment, nil
}

// Delete removes the descriptor and the stored file. Uploader-only.
func (s *AttachmentService) Delete(ctx context.Context, actor authz.Principal, attachmentID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionDelete, authz.Locator{Kind: authz.KindAttachment, ID: attachmentID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	var attachment models.Attachment
	if err := s.db.WithContext(ctx).First(&attachment, "id = ?", attachmentID).Error; err != nil {
		return fmt.Errorf("attachment service: load attachment: %w", err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", attachmentID).Delete(&models.Attachment{}).Error; err != nil {
		return fmt.Errorf("attachment service: delete attachment: %w", err)
	}

	// Best effort: a missing file on disk does not fail the delete.
	_ = os.Remove(attachment.Path)
	return nil
}
