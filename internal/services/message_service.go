package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

// ErrMessageNotFound indicates the requested chat message does not exist.
var ErrMessageNotFound = apperrors.New("MESSAGE_NOT_FOUND", "Message not found", http.StatusNotFound)

// chatHistoryLimit bounds how much history a listing returns.
const chatHistoryLimit = 100

// PostMessageInput carries a new chat message.
type PostMessageInput struct {
	TeamID      string
	Message     string
	MessageType string
	Metadata    datatypes.JSON
}

// MessageService handles team chat history over the same persistence as the
// rest of the system. Transport concerns (push, sockets) live elsewhere;
// this service only reads and writes messages.
type MessageService struct {
	db     *gorm.DB
	engine *authz.Engine
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(db *gorm.DB, engine *authz.Engine) (*MessageService, error) {
	if db == nil {
		return nil, errors.New("message service: db is required")
	}
	if engine == nil {
		return nil, errors.New("message service: authz engine is required")
	}
	return &MessageService{db: db, engine: engine}, nil
}

// Post appends a message to the team's chat.
func (s *MessageService) Post(ctx context.Context, actor authz.Principal, input PostMessageInput) (*models.TeamMessage, error) {
	ctx = ensureContext(ctx)

	text := strings.TrimSpace(input.Message)
	if text == "" {
		return nil, apperrors.NewBadRequest("message text is required")
	}

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionContribute, authz.TeamLocator(input.TeamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	messageType := strings.TrimSpace(input.MessageType)
	if messageType == "" {
		messageType = "text"
	}

	message := &models.TeamMessage{
		TeamID:      input.TeamID,
		UserID:      actor.ID,
		Message:     text,
		MessageType: messageType,
		Metadata:    input.Metadata,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("message service: create message: %w", err)
	}
	return message, nil
}

// ListRecent returns the team's most recent messages, capped at the history
// limit, in chronological order with authors preloaded.
func (s *MessageService) ListRecent(ctx context.Context, actor authz.Principal, teamID string) ([]models.TeamMessage, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.TeamLocator(teamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var messages []models.TeamMessage
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Limit(chatHistoryLimit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("message service: list messages: %w", err)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// Delete removes a message. The author may delete their own; the team
// creator may delete any message in their team.
func (s *MessageService) Delete(ctx context.Context, actor authz.Principal, messageID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionDelete, authz.Locator{Kind: authz.KindMessage, ID: messageID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	if err := s.db.WithContext(ctx).Where("id = ?", messageID).Delete(&models.TeamMessage{}).Error; err != nil {
		return fmt.Errorf("message service: delete message: %w", err)
	}
	return nil
}
