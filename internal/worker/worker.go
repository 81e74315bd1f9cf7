package worker

import (
	"context"
	"fmt"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// Sender delivers one notification to a recipient. The engine treats
// delivery as at-most-once; a failed send is logged and dropped.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender writes notifications to the log. Stands in for a mail or SMS
// provider integration.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that logs instead of delivering.
func NewLogSender() *LogSender {
	return &LogSender{logger: util.GetLogger()}
}

// Send logs the notification.
func (s *LogSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.logger.Info("Notification dispatched",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

// NotificationWorker consumes booking events and hands them to a Sender.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sender       Sender
	logger       *zap.Logger
}

// NewNotificationWorker creates a worker wired to the booking events topic.
func NewNotificationWorker(consumer *broker.Consumer, sender Sender) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		sender:   sender,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnBookingConfirmed(w.handleConfirmed)
	eventHandler.OnBookingCancelled(w.handleCancelled)
	eventHandler.OnBookingReminder(w.handleReminder)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	body := fmt.Sprintf("Hi %s, your appointment on %s at %s is confirmed.",
		event.ClientName, event.BookingDate, event.BookingTime)

	if err := w.sender.Send(ctx, event.ClientEmail, "Booking confirmed", body); err != nil {
		w.logger.Error("Failed to send confirmation",
			zap.Int64("booking_id", event.BookingID), zap.Error(err))
		return nil // at-most-once: do not redeliver
	}

	util.NotificationsDispatchedTotal.WithLabelValues("confirmed").Inc()
	return nil
}

func (w *NotificationWorker) handleCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	body := fmt.Sprintf("Your booking #%d was cancelled: %s.", event.BookingID, event.Reason)

	if err := w.sender.Send(ctx, event.ClientEmail, "Booking cancelled", body); err != nil {
		w.logger.Error("Failed to send cancellation",
			zap.Int64("booking_id", event.BookingID), zap.Error(err))
		return nil
	}

	util.NotificationsDispatchedTotal.WithLabelValues("cancelled").Inc()
	return nil
}

func (w *NotificationWorker) handleReminder(ctx context.Context, event *models.BookingReminderEvent) error {
	body := fmt.Sprintf("Hi %s, a reminder: your appointment is tomorrow, %s at %s.",
		event.ClientName, event.BookingDate, event.BookingTime)

	if err := w.sender.Send(ctx, event.ClientEmail, "Appointment reminder", body); err != nil {
		w.logger.Error("Failed to send reminder",
			zap.Int64("booking_id", event.BookingID), zap.Error(err))
		return nil
	}

	util.NotificationsDispatchedTotal.WithLabelValues("reminder").Inc()
	return nil
}
