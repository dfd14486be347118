package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

// ErrCommentNotFound indicates the requested comment does not exist.
var ErrCommentNotFound = apperrors.New("COMMENT_NOT_FOUND", "Comment not found", http.StatusNotFound)

// CommentService handles task discussion threads.
type CommentService struct {
	db     *gorm.DB
	engine *authz.Engine
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(db *gorm.DB, engine *authz.Engine) (*CommentService, error) {
	if db == nil {
		return nil, errors.New("comment service: db is required")
	}
	if engine == nil {
		return nil, errors.New("comment service: authz engine is required")
	}
	return &CommentService{db: db, engine: engine}, nil
}

// Create posts a comment on a task in a team the actor has access to.
func (s *CommentService) Create(ctx context.Context, actor authz.Principal, taskID, content string) (*models.Comment, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("comment content is required")
	}

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionContribute, authz.Locator{Kind: authz.KindTask, ID: taskID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	comment := &models.Comment{
		TaskID:  taskID,
		UserID:  actor.ID,
		Content: content,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("comment service: create comment: %w", err)
	}
	return comment, nil
}

// ListForTask returns a task's comments oldest first with authors preloaded.
func (s *CommentService) ListForTask(ctx context.Context, actor authz.Principal, taskID string) ([]models.Comment, error) {
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

	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("comment service: list comments: %w", err)
	}
	return comments, nil
}

// Delete removes a comment. Author-only: neither team membership nor team
// ownership substitutes.
func (s *CommentService) Delete(ctx context.Context, actor authz.Principal, commentID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionDelete, authz.Locator{Kind: authz.KindComment, ID: commentID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	if err := s.db.WithContext(ctx).Where("id = ?", commentID).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("comment service: delete comment: %w", err)
	}
	return nil
}
