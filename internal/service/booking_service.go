package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/config"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingStore is the persistence the orchestrator drives.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, newStatus string) error
	UpdatePaymentStatus(ctx context.Context, id int64, newStatus, reference string) error
	ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error)
}

// EventPublisher publishes notification events fire-and-forget. Failures
// are logged and never roll back a booking.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error
	PublishBookingReminder(ctx context.Context, event *models.BookingReminderEvent) error
	PublishPaymentRefunded(ctx context.Context, event *models.PaymentRefundedEvent) error
}

// IdempotencyStore remembers which booking a client request produced so a
// replayed request returns the original booking instead of charging again.
type IdempotencyStore interface {
	GetIdempotentBooking(ctx context.Context, key string) (int64, bool, error)
	SaveIdempotentBooking(ctx context.Context, key string, bookingID int64, ttl time.Duration) error
}

// SlotChecker reports the currently bookable start times for a staff
// member, date, and service.
type SlotChecker interface {
	AvailableSlots(ctx context.Context, staffID int64, date string, serviceID int64) ([]string, error)
}

// BookingService orchestrates a single booking attempt:
// validate the draft, charge the upfront fee, then commit the slot.
// Charging happens before the slot lock is ever taken, so a stuck gateway
// call cannot hold up other writers; the price of that ordering is the
// compensating refund when the slot is lost during payment.
type BookingService struct {
	catalog    CatalogReader
	bookings   BookingStore
	slots      SlotChecker
	gateway    PaymentGateway
	publisher  EventPublisher
	idem       IdempotencyStore // optional
	cache      SlotCache        // optional
	cfg        config.BookingConfig
	payTimeout time.Duration
	logger     *zap.Logger
}

// NewBookingService creates a new booking orchestrator. idem and cache may
// be nil.
func NewBookingService(
	catalog CatalogReader,
	bookings BookingStore,
	slots SlotChecker,
	gateway PaymentGateway,
	publisher EventPublisher,
	idem IdempotencyStore,
	cache SlotCache,
	cfg config.BookingConfig,
	payTimeout time.Duration,
) *BookingService {
	return &BookingService{
		catalog:    catalog,
		bookings:   bookings,
		slots:      slots,
		gateway:    gateway,
		publisher:  publisher,
		idem:       idem,
		cache:      cache,
		cfg:        cfg,
		payTimeout: payTimeout,
		logger:     util.GetLogger(),
	}
}

// CreateBookingRequest is a client booking attempt.
type CreateBookingRequest struct {
	ClientName     string `json:"client_name" binding:"required"`
	ClientEmail    string `json:"client_email" binding:"required"`
	ClientPhone    string `json:"client_phone"`
	ServiceID      int64  `json:"service_id" binding:"required"`
	StaffID        int64  `json:"staff_id" binding:"required"`
	BookingDate    string `json:"booking_date" binding:"required"`
	BookingTime    string `json:"booking_time" binding:"required"`
	Notes          string `json:"notes"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreateBooking runs the booking attempt end to end. On success the
// booking is committed as confirmed/paid and a confirmation notification
// is published. On a slot conflict after a successful charge, the charge
// is refunded and models.ErrConflict is returned; no booking row exists
// afterwards.
func (s *BookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateBooking")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	if s.idem != nil {
		if id, ok, err := s.idem.GetIdempotentBooking(ctx, req.IdempotencyKey); err == nil && ok {
			s.logger.Info("Duplicate booking request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("booking_id", id))
			return s.bookings.GetBookingByID(ctx, id)
		}
	}

	// Drafting: resolve and validate everything before any money moves.
	draft, err := s.draft(ctx, req)
	if err != nil {
		util.BookingsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	// The requested time must be a currently bookable slot: a day off,
	// break overlap, out-of-hours or misaligned time, past date, or a
	// date beyond the booking window all fail here, still before any
	// money moves. The store later re-checks only the overlap invariant
	// under the slot lock.
	if err := s.checkRequestedSlot(ctx, draft); err != nil {
		if errors.Is(err, models.ErrConflict) {
			util.BookingsRejectedTotal.WithLabelValues("conflict").Inc()
		} else {
			util.BookingsRejectedTotal.WithLabelValues("validation").Inc()
		}
		return nil, err
	}

	// AwaitingPayment: charge the upfront fee under its own timeout. No
	// database lock is held here.
	payCtx, cancel := context.WithTimeout(ctx, s.payTimeout)
	defer cancel()

	charge, err := chargeWithRetry(payCtx, s.gateway, draft.UpfrontFee, s.cfg.Currency, req.IdempotencyKey, s.logger)
	if err != nil {
		var declined *models.PaymentDeclinedError
		if errors.As(err, &declined) {
			util.BookingsRejectedTotal.WithLabelValues("payment_declined").Inc()
		} else {
			util.BookingsRejectedTotal.WithLabelValues("payment_error").Inc()
		}
		return nil, err
	}

	draft.Status = models.BookingStatusConfirmed
	draft.PaymentStatus = models.PaymentStatusPaid
	draft.PaymentReference = charge.Reference

	// Commit: the store re-checks the overlap invariant under the slot
	// lock. Losing the race here means the charge must be compensated.
	if err := s.bookings.CreateBooking(ctx, draft); err != nil {
		s.compensateCharge(charge.Reference, draft.UpfrontFee, err)
		if errors.Is(err, models.ErrConflict) {
			util.BookingsRejectedTotal.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("%w: pick another slot", models.ErrConflict)
		}
		util.BookingsRejectedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking committed",
		zap.Int64("booking_id", draft.ID),
		zap.Int64("staff_id", draft.StaffID),
		zap.String("date", draft.BookingDate),
		zap.String("time", draft.BookingTime))

	s.invalidateSlots(ctx, draft.StaffID, draft.BookingDate)

	if s.idem != nil {
		ttl := time.Duration(s.cfg.PendingTTLHours) * time.Hour
		if err := s.idem.SaveIdempotentBooking(ctx, req.IdempotencyKey, draft.ID, ttl); err != nil {
			s.logger.Warn("Failed to save idempotency mapping", zap.Error(err))
		}
	}

	s.notifyConfirmed(ctx, draft)

	return draft, nil
}

// draft validates the request and assembles the booking with amounts and
// duration snapshotted from the service.
func (s *BookingService) draft(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	svc, err := s.catalog.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, models.NewValidationError("service_id", "service is not active")
	}

	staff, err := s.catalog.GetStaffByID(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsActive {
		return nil, models.NewValidationError("staff_id", "staff member is not active")
	}

	b := &models.Booking{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		ServiceID:     svc.ID,
		StaffID:       staff.ID,
		BookingDate:   req.BookingDate,
		BookingTime:   req.BookingTime,
		Duration:      svc.Duration,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		TotalAmount:   svc.Price,
		UpfrontFee:    svc.UpfrontFee,
		Notes:         req.Notes,
	}
	if err := store.ValidateDraft(b); err != nil {
		return nil, err
	}
	return b, nil
}

// checkRequestedSlot re-derives availability for the requested day and
// requires the requested start time to be in it. Shares the slot
// algorithm with the availability endpoint, so the two can never
// disagree about what is bookable.
func (s *BookingService) checkRequestedSlot(ctx context.Context, b *models.Booking) error {
	slots, err := s.slots.AvailableSlots(ctx, b.StaffID, b.BookingDate, b.ServiceID)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot == b.BookingTime {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s is not a bookable slot", models.ErrConflict, b.BookingDate, b.BookingTime)
}

// compensateCharge refunds a captured charge whose slot reservation
// failed. Runs on a fresh context: the request context may already be
// near its deadline, and the refund must still go out.
func (s *BookingService) compensateCharge(reference string, amount int64, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.payTimeout)
	defer cancel()

	s.logger.Warn("Compensating charge after failed commit",
		zap.String("reference", reference),
		zap.Int64("amount", amount),
		zap.Error(cause))

	if err := s.gateway.Refund(ctx, reference, amount); err != nil {
		// Manual reconciliation territory: the money moved but the
		// automatic reversal failed.
		s.logger.Error("Compensating refund failed",
			zap.String("reference", reference),
			zap.Int64("amount", amount),
			zap.Error(err))
		util.RefundsFailedTotal.Inc()
		return
	}

	util.RefundsIssuedTotal.Inc()

	reason := "booking could not be committed"
	if errors.Is(cause, models.ErrConflict) {
		reason = "slot no longer available"
	}

	event := &models.PaymentRefundedEvent{
		BaseEvent:        newBaseEvent(models.EventTypePaymentRefunded),
		PaymentReference: reference,
		Amount:           amount,
		Reason:           reason,
	}
	if err := s.publisher.PublishPaymentRefunded(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentRefunded event", zap.Error(err))
	}
}

// RefundBooking returns the deposit on a paid booking and marks the
// payment refunded. This is an operator action; client cancellation does
// not return the deposit.
func (s *BookingService) RefundBooking(ctx context.Context, id int64, reason string) error {
	ctx, span := util.StartSpan(ctx, "BookingService.RefundBooking")
	defer span.End()

	b, err := s.bookings.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}
	if b.PaymentStatus != models.PaymentStatusPaid {
		return &models.InvalidTransitionError{
			Entity: "payment", From: b.PaymentStatus, To: models.PaymentStatusRefunded,
		}
	}

	if err := s.gateway.Refund(ctx, b.PaymentReference, b.UpfrontFee); err != nil {
		util.RefundsFailedTotal.Inc()
		return err
	}

	if err := s.bookings.UpdatePaymentStatus(ctx, id, models.PaymentStatusRefunded, b.PaymentReference); err != nil {
		return err
	}

	util.RefundsIssuedTotal.Inc()
	s.logger.Info("Deposit refunded",
		zap.Int64("booking_id", id),
		zap.Int64("amount", b.UpfrontFee),
		zap.String("reason", reason))

	event := &models.PaymentRefundedEvent{
		BaseEvent:        newBaseEvent(models.EventTypePaymentRefunded),
		PaymentReference: b.PaymentReference,
		Amount:           b.UpfrontFee,
		Reason:           reason,
	}
	if err := s.publisher.PublishPaymentRefunded(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentRefunded event", zap.Error(err))
	}

	return nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.bookings.GetBookingByID(ctx, id)
}

// ListBookings retrieves bookings matching the filter.
func (s *BookingService) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	return s.bookings.ListBookings(ctx, f)
}

// UpdateStatus moves a booking along its status machine.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, newStatus string) error {
	if !models.IsValidBookingStatus(newStatus) {
		return models.NewValidationError("status", "unknown status")
	}
	if newStatus == models.BookingStatusCancelled {
		return s.CancelBooking(ctx, id, "cancelled by operator")
	}
	return s.bookings.UpdateBookingStatus(ctx, id, newStatus)
}

// CancelBooking cancels a pending or confirmed booking and publishes the
// cancellation. The upfront fee is a non-refundable deposit and is not
// returned here.
func (s *BookingService) CancelBooking(ctx context.Context, id int64, reason string) error {
	ctx, span := util.StartSpan(ctx, "BookingService.CancelBooking")
	defer span.End()

	b, err := s.bookings.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.bookings.UpdateBookingStatus(ctx, id, models.BookingStatusCancelled); err != nil {
		return err
	}

	util.BookingsCancelledTotal.Inc()
	s.invalidateSlots(ctx, b.StaffID, b.BookingDate)

	event := &models.BookingCancelledEvent{
		BaseEvent:   newBaseEvent(models.EventTypeBookingCancelled),
		BookingID:   b.ID,
		ClientEmail: b.ClientEmail,
		Reason:      reason,
	}
	if err := s.publisher.PublishBookingCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}

	return nil
}

func (s *BookingService) notifyConfirmed(ctx context.Context, b *models.Booking) {
	event := &models.BookingConfirmedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeBookingConfirmed),
		BookingID:   b.ID,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		StaffID:     b.StaffID,
		ServiceID:   b.ServiceID,
		BookingDate: b.BookingDate,
		BookingTime: b.BookingTime,
		UpfrontFee:  b.UpfrontFee,
	}
	if err := s.publisher.PublishBookingConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
	}
}

func (s *BookingService) invalidateSlots(ctx context.Context, staffID int64, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStaffDate(ctx, staffID, date); err != nil {
		s.logger.Warn("Failed to invalidate slot cache",
			zap.Int64("staff_id", staffID),
			zap.String("date", date),
			zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
