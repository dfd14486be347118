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

// ErrMilestoneNotFound indicates the requested milestone does not exist.
var ErrMilestoneNotFound = apperrors.New("MILESTONE_NOT_FOUND", "Milestone not found", http.StatusNotFound)

// CreateMilestoneInput captures a new milestone. Status and progress are
// derived and cannot be supplied.
type CreateMilestoneInput struct {
	TeamID      string
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
}

// UpdateMilestoneInput describes the mutable milestone fields. Derived fields
// (status, progress) are deliberately absent.
type UpdateMilestoneInput struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
	ClearDueDate bool
}

// MilestoneService handles milestone lifecycle and the derived progress and
// status values computed from the tasks referencing each milestone.
type MilestoneService struct {
	db     *gorm.DB
	engine *authz.Engine
	now    func() time.Time
}

// NewMilestoneService constructs a MilestoneService instance.
func NewMilestoneService(db *gorm.DB, engine *authz.Engine) (*MilestoneService, error) {
	if db == nil {
		return nil, errors.New("milestone service: db is required")
	}
	if engine == nil {
		return nil, errors.New("milestone service: authz engine is required")
	}
	return &MilestoneService{db: db, engine: engine, now: time.Now}, nil
}

// Create adds a milestone to a team the actor has access to.
func (s *MilestoneService) Create(ctx context.Context, actor authz.Principal, input CreateMilestoneInput) (*models.Milestone, error) {
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
		return nil, apperrors.NewBadRequest("milestone title is required")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !containsValue(priorities, priority) {
		return nil, apperrors.NewBadRequest("invalid milestone priority")
	}

	milestone := &models.Milestone{
		TeamID:      input.TeamID,
		CreatedBy:   actor.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		DueDate:     input.DueDate,
		Status:      models.MilestoneNotStarted,
	}

	if err := s.db.WithContext(ctx).Create(milestone).Error; err != nil {
		return nil, fmt.Errorf("milestone service: create milestone: %w", err)
	}
	return milestone, nil
}

// ListForTeam returns the team's milestones with derived status and progress
// recomputed from the current task states. Recomputation is idempotent: rows
// are only written when the derived values changed.
func (s *MilestoneService) ListForTeam(ctx context.Context, actor authz.Principal, teamID string) ([]models.Milestone, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.TeamLocator(teamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var milestones []models.Milestone
	if err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("due_date ASC").
		Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("milestone service: list milestones: %w", err)
	}

	for i := range milestones {
		if err := s.refresh(ctx, &milestones[i]); err != nil {
			return nil, err
		}
	}
	return milestones, nil
}

// ListAll returns every milestone across the teams the actor may act in,
// each refreshed the same way as a team listing.
func (s *MilestoneService) ListAll(ctx context.Context, actor authz.Principal) ([]models.Milestone, error) {
	ctx = ensureContext(ctx)

	teamIDs, err := s.engine.AccessibleTeamIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(teamIDs) == 0 {
		return []models.Milestone{}, nil
	}

	var milestones []models.Milestone
	if err := s.db.WithContext(ctx).
		Preload("Team").
		Where("team_id IN ?", teamIDs).
		Order("due_date ASC").
		Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("milestone service: list milestones: %w", err)
	}

	for i := range milestones {
		if err := s.refresh(ctx, &milestones[i]); err != nil {
			return nil, err
		}
	}
	return milestones, nil
}

// Tasks returns the tasks referencing the milestone.
func (s *MilestoneService) Tasks(ctx context.Context, actor authz.Principal, milestoneID string) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.Locator{Kind: authz.KindMilestone, ID: milestoneID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		Where("milestone_id = ?", milestoneID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("milestone service: list milestone tasks: %w", err)
	}
	return tasks, nil
}

// Update mutates milestone metadata. Status and progress cannot be set here;
// they are derived on listing.
func (s *MilestoneService) Update(ctx context.Context, actor authz.Principal, milestoneID string, input UpdateMilestoneInput) (*models.Milestone, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionUpdate, authz.Locator{Kind: authz.KindMilestone, ID: milestoneID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var milestone models.Milestone
	if err := s.db.WithContext(ctx).First(&milestone, "id = ?", milestoneID).Error; err != nil {
		return nil, fmt.Errorf("milestone service: load milestone: %w", err)
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("milestone title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !containsValue(priorities, *input.Priority) {
			return nil, apperrors.NewBadRequest("invalid milestone priority")
		}
		updates["priority"] = *input.Priority
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	} else if input.ClearDueDate {
		updates["due_date"] = nil
	}

	if len(updates) == 0 {
		return &milestone, nil
	}

	if err := s.db.WithContext(ctx).Model(&milestone).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("milestone service: update milestone: %w", err)
	}
	return &milestone, nil
}

// Delete removes the milestone and detaches its tasks in one transaction.
// The tasks themselves survive with milestone_id cleared.
func (s *MilestoneService) Delete(ctx context.Context, actor authz.Principal, milestoneID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionDelete, authz.Locator{Kind: authz.KindMilestone, ID: milestoneID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrMilestoneNotFound
		}
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("milestone_id = ?", milestoneID).
			Update("milestone_id", nil).Error; err != nil {
			return fmt.Errorf("milestone service: detach tasks: %w", err)
		}
		if err := tx.Where("id = ?", milestoneID).Delete(&models.Milestone{}).Error; err != nil {
			return fmt.Errorf("milestone service: delete milestone: %w", err)
		}
		return nil
	})
}

// refresh recomputes the derived status and progress of a milestone from its
// tasks and persists them only when they changed. The read and the write
// share one transaction, and the write re-checks the stored values so a
// concurrent refresh never clobbers a fresher row.
func (s *MilestoneService) refresh(ctx context.Context, milestone *models.Milestone) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tasks []models.Task
		if err := tx.
			Select("status").
			Where("milestone_id = ?", milestone.ID).
			Find(&tasks).Error; err != nil {
			return fmt.Errorf("milestone service: load milestone tasks: %w", err)
		}

		progress, status := deriveMilestoneState(tasks, milestone.DueDate, s.now())
		if progress != milestone.ProgressPercentage || status != milestone.Status {
			result := tx.Model(&models.Milestone{}).
				Where("id = ? AND (progress_percentage <> ? OR status <> ?)", milestone.ID, progress, status).
				Updates(map[string]any{
					"progress_percentage": progress,
					"status":              status,
				})
			if result.Error != nil {
				return fmt.Errorf("milestone service: persist derived state: %w", result.Error)
			}
		}

		milestone.ProgressPercentage = progress
		milestone.Status = status
		return nil
	})
}

// deriveMilestoneState computes progress (completed/total, rounded) and the
// status band: Completed when every task is done, Overdue when past due and
// incomplete, In Progress once progress is above zero, otherwise Not Started.
// Tasks that are merely underway do not move the milestone; only completions
// count.
func deriveMilestoneState(tasks []models.Task, dueDate *time.Time, now time.Time) (int, string) {
	total := len(tasks)
	if total == 0 {
		if dueDate != nil && dueDate.Before(now) {
			return 0, models.MilestoneOverdue
		}
		return 0, models.MilestoneNotStarted
	}

	done := 0
	for _, task := range tasks {
		if task.Status == models.TaskStatusDone {
			done++
		}
	}

	progress := int(float64(done)/float64(total)*100 + 0.5)

	switch {
	case done == total:
		return progress, models.MilestoneCompleted
	case dueDate != nil && dueDate.Before(now):
		return progress, models.MilestoneOverdue
	case done > 0:
		return progress, models.MilestoneInProgress
	default:
		return progress, models.MilestoneNotStarted
	}
}
