package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

// ErrTaskNotFound indicates the requested task does not exist.
var ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)

var taskStatuses = []string{models.TaskStatusToDo, models.TaskStatusInProgress, models.TaskStatusDone}

var priorities = []string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}

// CreateTaskInput captures a new task. TeamID is fixed for the task's life.
type CreateTaskInput struct {
	TeamID       string
	Title        string
	Description  string
	AssignedToID *string
	MilestoneID  *string
	Status       string
	Priority     string
	DueDate      *time.Time
}

// UpdateTaskInput describes mutable task fields. Nil pointers leave the field
// untouched; AssignedToID and MilestoneID may be set to the empty string to
// clear the reference.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	AssignedToID *string
	MilestoneID  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
}

// TaskService handles task lifecycle within teams.
type TaskService struct {
	db     *gorm.DB
	engine *authz.Engine
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(db *gorm.DB, engine *authz.Engine) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if engine == nil {
		return nil, errors.New("task service: authz engine is required")
	}
	return &TaskService{db: db, engine: engine}, nil
}

// Create adds a task to a team the actor has access to. The assignee and
// milestone references are validated against the same team before anything
// is written.
func (s *TaskService) Create(ctx context.Context, actor authz.Principal, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionContribute, authz.TeamLocator(input.TeamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("task title is required")
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusToDo
	}
	if !containsValue(taskStatuses, status) {
		return nil, apperrors.NewBadRequest("invalid task status")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !containsValue(priorities, priority) {
		return nil, apperrors.NewBadRequest("invalid task priority")
	}

	task := &models.Task{
		TeamID:       input.TeamID,
		CreatedBy:    actor.ID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       status,
		Priority:     priority,
		DueDate:      input.DueDate,
		AssignedByID: actor.ID,
	}

	if input.AssignedToID != nil && *input.AssignedToID != "" {
		decision, err := s.engine.ValidateAssignee(ctx, actor, input.TeamID, *input.AssignedToID)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, decision.Err()
		}
		task.AssignedToID = input.AssignedToID
	}

	if input.MilestoneID != nil && *input.MilestoneID != "" {
		decision, err := s.engine.ValidateMilestone(ctx, input.TeamID, *input.MilestoneID)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, decision.Err()
		}
		task.MilestoneID = input.MilestoneID
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("task service: create task: %w", err)
	}
	return task, nil
}

// ListForTeam returns the team's tasks, newest first, with assignees preloaded.
func (s *TaskService) ListForTeam(ctx context.Context, actor authz.Principal, teamID string) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.TeamLocator(teamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list tasks: %w", err)
	}
	return tasks, nil
}

// ListAssigned returns tasks assigned to the actor across all teams.
func (s *TaskService) ListAssigned(ctx context.Context, actor authz.Principal) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Preload("Team").
		Where("assigned_to_id = ?", actor.ID).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list assigned tasks: %w", err)
	}
	return tasks, nil
}

// Get loads a single task the actor has access to.
func (s *TaskService) Get(ctx context.Context, actor authz.Principal, taskID string) (*models.Task, error) {
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

	var task models.Task
	if err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		First(&task, "id = ?", taskID).Error; err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	return &task, nil
}

// Update mutates a task. Direct access (creator or assignee) suffices even
// without membership; otherwise team access applies. TeamID never changes.
func (s *TaskService) Update(ctx context.Context, actor authz.Principal, taskID string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionUpdate, authz.Locator{Kind: authz.KindTask, ID: taskID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("task title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !containsValue(taskStatuses, *input.Status) {
			return nil, apperrors.NewBadRequest("invalid task status")
		}
		updates["status"] = *input.Status
	}
	if input.Priority != nil {
		if !containsValue(priorities, *input.Priority) {
			return nil, apperrors.NewBadRequest("invalid task priority")
		}
		updates["priority"] = *input.Priority
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	} else if input.ClearDueDate {
		updates["due_date"] = nil
	}

	if input.AssignedToID != nil {
		if *input.AssignedToID == "" {
			updates["assigned_to_id"] = nil
		} else {
			decision, err := s.engine.ValidateAssignee(ctx, actor, task.TeamID, *input.AssignedToID)
			if err != nil {
				return nil, err
			}
			if !decision.Allowed {
				return nil, decision.Err()
			}
			updates["assigned_to_id"] = *input.AssignedToID
			updates["assigned_by_id"] = actor.ID
		}
	}

	if input.MilestoneID != nil {
		if *input.MilestoneID == "" {
			updates["milestone_id"] = nil
		} else {
			decision, err := s.engine.ValidateMilestone(ctx, task.TeamID, *input.MilestoneID)
			if err != nil {
				return nil, err
			}
			if !decision.Allowed {
				return nil, decision.Err()
			}
			updates["milestone_id"] = *input.MilestoneID
		}
	}

	if len(updates) == 0 {
		return &task, nil
	}

	if err := s.db.WithContext(ctx).Model(&task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("task service: update task: %w", err)
	}
	return &task, nil
}

// Delete removes a task and its comments, attachments, and time logs.
func (s *TaskService) Delete(ctx context.Context, actor authz.Principal, taskID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionDelete, authz.Locator{Kind: authz.KindTask, ID: taskID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Comment{}, &models.Attachment{}, &models.TimeLog{}} {
			if err := tx.Where("task_id = ?", taskID).Delete(model).Error; err != nil {
				return fmt.Errorf("task service: delete task dependents: %w", err)
			}
		}
		if err := tx.Where("id = ?", taskID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("task service: delete task: %w", err)
		}
		return nil
	})
}

func containsValue(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
