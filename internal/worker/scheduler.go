package worker

import (
	"context"
	"time"

	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Housekeeper is the periodic cleanup the scheduler drives.
type Housekeeper interface {
	PurgeExpiredPending(ctx context.Context, ttlHours int) (int64, error)
}

// Scheduler runs the periodic jobs around the booking core: the daily
// reminder scan and the expired-pending purge.
type Scheduler struct {
	cron      *cron.Cron
	reminders *service.ReminderService
	store     Housekeeper
	ttlHours  int
	logger    *zap.Logger
}

// NewScheduler creates the cron scheduler. Jobs are registered in Start.
func NewScheduler(reminders *service.ReminderService, store Housekeeper, ttlHours int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		reminders: reminders,
		store:     store,
		ttlHours:  ttlHours,
		logger:    util.GetLogger(),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// Reminders once a day at 09:00 local time.
	if _, err := s.cron.AddFunc("0 9 * * *", s.runReminders); err != nil {
		return err
	}

	// Expired pending bookings are purged hourly.
	if _, err := s.cron.AddFunc("@hourly", s.runPurge); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.reminders.SendDailyReminders(ctx); err != nil {
		s.logger.Error("Reminder run failed", zap.Error(err))
	}
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := s.store.PurgeExpiredPending(ctx, s.ttlHours)
	if err != nil {
		s.logger.Error("Pending purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		util.BookingsPurgedTotal.Add(float64(purged))
		s.logger.Info("Purged expired pending bookings", zap.Int64("count", purged))
	}
}
