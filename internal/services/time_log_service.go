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

var (
	// ErrTimeLogNotFound indicates the requested time log does not exist.
	ErrTimeLogNotFound = apperrors.New("TIME_LOG_NOT_FOUND", "Time log not found", http.StatusNotFound)
	// ErrNoActiveTimer signals a stop request when nothing is running.
	ErrNoActiveTimer = apperrors.New("NO_ACTIVE_TIMER", "No active timer to stop", http.StatusConflict)
	// ErrTimerAlreadyRunning rejects restarting a timer on the task it is
	// already running on.
	ErrTimerAlreadyRunning = apperrors.New("TIMER_ALREADY_RUNNING", "A timer is already running for this task", http.StatusConflict)
)

// TimeLogService tracks time spent on tasks. A user has at most one active
// timer across all tasks; starting a timer on a different task force-stops
// the previous one in the same transaction, while starting one on the task
// already being timed is a conflict.
type TimeLogService struct {
	db     *gorm.DB
	engine *authz.Engine
	now    func() time.Time
}

// NewTimeLogService constructs a TimeLogService instance.
func NewTimeLogService(db *gorm.DB, engine *authz.Engine) (*TimeLogService, error) {
	if db == nil {
		return nil, errors.New("time log service: db is required")
	}
	if engine == nil {
		return nil, errors.New("time log service: authz engine is required")
	}
	return &TimeLogService{db: db, engine: engine, now: time.Now}, nil
}

// Start begins a timer on the task for the actor. A timer already running on
// the same task is a conflict; timers running on other tasks are stopped
// first, with all writes sharing one transaction so no state ever shows two
// active timers.
func (s *TimeLogService) Start(ctx context.Context, actor authz.Principal, taskID, description string) (*models.TimeLog, error) {
	ctx = ensureContext(ctx)

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

	started := s.now()
	log := &models.TimeLog{
		TaskID:      taskID,
		UserID:      actor.ID,
		StartTime:   started,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var running int64
		if err := tx.Model(&models.TimeLog{}).
			Where("user_id = ? AND task_id = ? AND is_active = ?", actor.ID, taskID, true).
			Count(&running).Error; err != nil {
			return fmt.Errorf("time log service: check running timer: %w", err)
		}
		if running > 0 {
			return ErrTimerAlreadyRunning
		}
		if err := stopOtherTimers(tx, actor.ID, taskID, started); err != nil {
			return err
		}
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("time log service: create time log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// Stop ends the actor's active timer and records the elapsed minutes.
func (s *TimeLogService) Stop(ctx context.Context, actor authz.Principal) (*models.TimeLog, error) {
	ctx = ensureContext(ctx)

	var log models.TimeLog
	err := s.db.WithContext(ctx).
		First(&log, "user_id = ? AND is_active = ?", actor.ID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveTimer
	}
	if err != nil {
		return nil, fmt.Errorf("time log service: load active timer: %w", err)
	}

	ended := s.now()
	duration := elapsedMinutes(log.StartTime, ended)

	// Conditional on is_active so a concurrent stop loses cleanly.
	result := s.db.WithContext(ctx).Model(&models.TimeLog{}).
		Where("id = ? AND is_active = ?", log.ID, true).
		Updates(map[string]any{
			"is_active":        false,
			"end_time":         ended,
			"duration_minutes": duration,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("time log service: stop timer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNoActiveTimer
	}

	log.IsActive = false
	log.EndTime = &ended
	log.Duration = &duration
	return &log, nil
}

// Active returns the actor's running timer, or nil when none is running.
func (s *TimeLogService) Active(ctx context.Context, actor authz.Principal) (*models.TimeLog, error) {
	ctx = ensureContext(ctx)

	var log models.TimeLog
	err := s.db.WithContext(ctx).
		Preload("Task").
		First(&log, "user_id = ? AND is_active = ?", actor.ID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("time log service: load active timer: %w", err)
	}
	return &log, nil
}

// ListForTask returns a task's time logs, newest first.
func (s *TimeLogService) ListForTask(ctx context.Context, actor authz.Principal, taskID string) ([]models.TimeLog, error) {
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

	var logs []models.TimeLog
	if err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("start_time DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("time log service: list time logs: %w", err)
	}
	return logs, nil
}

// Delete removes a time log. Author-only.
func (s *TimeLogService) Delete(ctx context.Context, actor authz.Principal, timeLogID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionDelete, authz.Locator{Kind: authz.KindTimeLog, ID: timeLogID})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrTimeLogNotFound
		}
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	if err := s.db.WithContext(ctx).Where("id = ?", timeLogID).Delete(&models.TimeLog{}).Error; err != nil {
		return fmt.Errorf("time log service: delete time log: %w", err)
	}
	return nil
}

// stopOtherTimers force-stops every active timer of the user on tasks other
// than exceptTaskID, computing the elapsed duration for each as of now.
func stopOtherTimers(tx *gorm.DB, userID, exceptTaskID string, now time.Time) error {
	var active []models.TimeLog
	if err := tx.Where("user_id = ? AND task_id <> ? AND is_active = ?", userID, exceptTaskID, true).Find(&active).Error; err != nil {
		return fmt.Errorf("time log service: find active timers: %w", err)
	}

	for i := range active {
		duration := elapsedMinutes(active[i].StartTime, now)
		if err := tx.Model(&active[i]).Updates(map[string]any{
			"is_active":        false,
			"end_time":         now,
			"duration_minutes": duration,
		}).Error; err != nil {
			return fmt.Errorf("time log service: force-stop timer: %w", err)
		}
	}
	return nil
}

func elapsedMinutes(start, end time.Time) int64 {
	minutes := int64(end.Sub(start) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}
