package maintenance

import (
	"context"
	"errors"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/services"
	"github.com/taskflowhq/taskflow/pkg/logger"
)

const defaultReminderSpec = "@hourly"

// Scheduler runs the due-task reminder job on a cron schedule.
type Scheduler struct {
	reminders *services.ReminderService
	cron      *cron.Cron
	log       *zap.Logger
	enabled   bool
	spec      string
}

// Options control scheduler behaviour.
type Options struct {
	Enabled  bool
	Schedule string
}

// NewScheduler constructs a Scheduler around the given reminder service.
func NewScheduler(reminders *services.ReminderService, opts Options) (*Scheduler, error) {
	if reminders == nil {
		return nil, errors.New("maintenance: reminder service is required")
	}

	spec := strings.TrimSpace(opts.Schedule)
	if spec == "" {
		spec = defaultReminderSpec
	}

	return &Scheduler{
		reminders: reminders,
		cron:      cron.New(),
		log:       logger.WithModule("maintenance"),
		enabled:   opts.Enabled,
		spec:      spec,
	}, nil
}

// Start registers the reminder job and launches the cron loop. Disabled
// schedulers start nothing and return nil.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.log.Info("reminder scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		sent, err := s.reminders.Run(context.Background())
		if err != nil {
			s.log.Error("reminder run failed", zap.Error(err))
			return
		}
		if sent > 0 {
			s.log.Info("reminders sent", zap.Int("count", sent))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("reminder scheduler started", zap.String("schedule", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
