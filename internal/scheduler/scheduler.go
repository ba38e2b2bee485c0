// Package scheduler runs the daily meal-reminder job.
package scheduler

import (
	"context"
	"time"

	"github.com/gookit/slog"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron         *cron.Cron
	ctx          context.Context
	cancel       context.CancelFunc
	spec         string
	reminderFunc func(ctx context.Context) error
}

func New(spec string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		spec:   spec,
	}
}

// SetReminderFunc sets the job body invoked on every tick.
func (s *Scheduler) SetReminderFunc(f func(ctx context.Context) error) {
	s.reminderFunc = f
}

func (s *Scheduler) Start() error {
	if s.reminderFunc == nil {
		slog.Warnf("scheduler: reminder function not set, nothing to schedule")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		slog.Infof("scheduler: triggered meal reminder (%s UTC)", s.spec)
		if err := s.reminderFunc(s.ctx); err != nil {
			slog.Errorf("scheduler: meal reminder failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	slog.Infof("scheduler: started, meal reminders at %q UTC", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	slog.Infof("scheduler: stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
