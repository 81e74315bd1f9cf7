package service

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// ReminderService publishes reminder events for next-day confirmed
// bookings. The scheduler invokes it once a day; delivery itself is the
// notification worker's problem.
type ReminderService struct {
	bookings  BookingStore
	publisher EventPublisher
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewReminderService creates a new reminder service.
func NewReminderService(bookings BookingStore, publisher EventPublisher, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		bookings:  bookings,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

// SendDailyReminders publishes one reminder event per confirmed booking
// scheduled for tomorrow.
func (rs *ReminderService) SendDailyReminders(ctx context.Context) error {
	tomorrow := rs.now().In(rs.loc).AddDate(0, 0, 1).Format(models.DateLayout)

	bookings, err := rs.bookings.ListBookings(ctx, models.BookingFilter{
		FromDate: tomorrow,
		ToDate:   tomorrow,
		Status:   models.BookingStatusConfirmed,
	})
	if err != nil {
		return err
	}

	for _, b := range bookings {
		event := &models.BookingReminderEvent{
			BaseEvent:   newBaseEvent(models.EventTypeBookingReminder),
			BookingID:   b.ID,
			ClientName:  b.ClientName,
			ClientEmail: b.ClientEmail,
			BookingDate: b.BookingDate,
			BookingTime: b.BookingTime,
		}
		if err := rs.publisher.PublishBookingReminder(ctx, event); err != nil {
			rs.logger.Error("Failed to publish reminder",
				zap.Int64("booking_id", b.ID), zap.Error(err))
			continue
		}
		util.RemindersPublishedTotal.Inc()
	}

	rs.logger.Info("Daily reminders published",
		zap.String("date", tomorrow),
		zap.Int("count", len(bookings)))
	return nil
}
