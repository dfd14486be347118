package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/models"
	"github.com/taskflowhq/taskflow/pkg/logger"
	"github.com/taskflowhq/taskflow/pkg/mail"
	"github.com/taskflowhq/taskflow/pkg/metrics"
)

// reminderWindow is how far ahead the digest looks for due tasks.
const reminderWindow = 24 * time.Hour

// ReminderService emails each assignee a digest of their tasks due within
// the next day. It runs from the cron scheduler; a failed send for one user
// never blocks the others.
type ReminderService struct {
	db     *gorm.DB
	mailer mail.Mailer
	now    func() time.Time
}

// NewReminderService constructs a ReminderService instance.
func NewReminderService(db *gorm.DB, mailer mail.Mailer) (*ReminderService, error) {
	if db == nil {
		return nil, errors.New("reminder service: db is required")
	}
	if mailer == nil {
		return nil, errors.New("reminder service: mailer is required")
	}
	return &ReminderService{db: db, mailer: mailer, now: time.Now}, nil
}

// Run sends one round of reminders and returns how many digests went out.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	deadline := now.Add(reminderWindow)

	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Preload("Team").
		Where("assigned_to_id IS NOT NULL").
		Where("status <> ?", models.TaskStatusDone).
		Where("due_date IS NOT NULL AND due_date >= ? AND due_date <= ?", now, deadline).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("reminder service: find due tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	byAssignee := make(map[string][]models.Task)
	for _, task := range tasks {
		byAssignee[*task.AssignedToID] = append(byAssignee[*task.AssignedToID], task)
	}

	sent := 0
	for assigneeID, due := range byAssignee {
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, "id = ?", assigneeID).Error; err != nil {
			logger.WithModule("reminders").Warn("load assignee",
				zap.String("user_id", assigneeID), zap.Error(err))
			continue
		}

		err := s.mailer.Send(ctx, mail.Message{
			To:      []string{user.Email},
			Subject: fmt.Sprintf("You have %d task(s) due soon", len(due)),
			Body:    digestBody(&user, due),
		})
		if errors.Is(err, mail.ErrSMTPDisabled) {
			return sent, nil
		}
		if err != nil {
			logger.WithModule("reminders").Warn("send reminder",
				zap.String("user_id", assigneeID), zap.Error(err))
			continue
		}

		metrics.RemindersSent.Inc()
		sent++
	}
	return sent, nil
}

func digestBody(user *models.User, tasks []models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Upcoming deadlines</h2><p>Hi %s, these tasks are due within 24 hours:</p><ul>", user.Username)
	for _, task := range tasks {
		team := ""
		if task.Team != nil {
			team = fmt.Sprintf(" (%s)", task.Team.Name)
		}
		fmt.Fprintf(&b, "<li><strong>%s</strong>%s &mdash; due %s</li>",
			task.Title, team, task.DueDate.Format("Mon, 02 Jan 2006 15:04"))
	}
	b.WriteString("</ul>")
	return b.String()
}
