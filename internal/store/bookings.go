package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"
)

// ValidateDraft checks the client-supplied fields of a booking draft.
func ValidateDraft(b *models.Booking) error {
	if strings.TrimSpace(b.ClientName) == "" {
		return models.NewValidationError("client_name", "must not be empty")
	}
	if !emailPattern.MatchString(b.ClientEmail) {
		return models.NewValidationError("client_email", "malformed email address")
	}
	if _, err := models.ParseDate(b.BookingDate, time.UTC); err != nil {
		return models.NewValidationError("booking_date", "must be YYYY-MM-DD")
	}
	if _, err := models.ParseClock(b.BookingTime); err != nil {
		return models.NewValidationError("booking_time", "must be HH:MM")
	}
	return nil
}

// CreateBooking inserts a booking after re-checking the overlap invariant
// at write time. The check and the insert run in one transaction holding a
// Postgres advisory lock keyed by (staff_id, date), so two concurrent
// creates for overlapping intervals resolve to one success and one
// models.ErrConflict. The availability calculator's earlier check is
// advisory only and can be stale by the time we get here.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	if err := ValidateDraft(b); err != nil {
		return err
	}

	start, err := models.ParseClock(b.BookingTime)
	if err != nil {
		return models.NewValidationError("booking_time", err.Error())
	}
	b.StartMinute = start
	b.EndMinute = start + b.Duration

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serializes writers for this staff/date; released on commit/rollback.
	lockKey := fmt.Sprintf("booking:%d:%s", b.StaffID, b.BookingDate)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	var taken bool
	err = tx.GetContext(ctx, &taken, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE staff_id = $1 AND booking_date = $2 AND status <> $3
			  AND start_minute < $4 AND end_minute > $5
		)`,
		b.StaffID, b.BookingDate, models.BookingStatusCancelled, b.EndMinute, b.StartMinute)
	if err != nil {
		return fmt.Errorf("failed to check slot overlap: %w", err)
	}
	if taken {
		return models.ErrConflict
	}

	query := `
		INSERT INTO bookings (
			client_name, client_email, client_phone, service_id, staff_id,
			booking_date, booking_time, duration_minutes, start_minute, end_minute,
			status, payment_status, payment_reference, total_amount, upfront_fee, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, b, query,
		b.ClientName, b.ClientEmail, b.ClientPhone, b.ServiceID, b.StaffID,
		b.BookingDate, b.BookingTime, b.Duration, b.StartMinute, b.EndMinute,
		b.Status, b.PaymentStatus, b.PaymentReference, b.TotalAmount, b.UpfrontFee, b.Notes,
	); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return tx.Commit()
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "booking", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingStatus moves a booking along its status machine, locking
// the row so concurrent transitions serialize.
func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, newStatus string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current, "SELECT status FROM bookings WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return &models.NotFoundError{Entity: "booking", ID: id}
	}
	if err != nil {
		return err
	}

	if !models.CanTransitionBooking(current, newStatus) {
		return &models.InvalidTransitionError{Entity: "booking", From: current, To: newStatus}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2",
		newStatus, id); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdatePaymentStatus moves a booking's payment along its status machine
// and records the provider reference.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id int64, newStatus, reference string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current, "SELECT payment_status FROM bookings WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return &models.NotFoundError{Entity: "booking", ID: id}
	}
	if err != nil {
		return err
	}

	if !models.CanTransitionPayment(current, newStatus) {
		return &models.InvalidTransitionError{Entity: "payment", From: current, To: newStatus}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET payment_status = $1, payment_reference = $2, updated_at = NOW() WHERE id = $3",
		newStatus, reference, id); err != nil {
		return err
	}

	return tx.Commit()
}

// ListBookings retrieves bookings matching the filter, soonest first.
func (s *Store) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	query := "SELECT * FROM bookings WHERE 1=1"
	args := []interface{}{}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		query += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if f.FromDate != "" {
		add("booking_date >=", f.FromDate)
	}
	if f.ToDate != "" {
		add("booking_date <=", f.ToDate)
	}
	if f.StaffID != 0 {
		add("staff_id =", f.StaffID)
	}
	if f.ServiceID != 0 {
		add("service_id =", f.ServiceID)
	}
	if f.Status != "" {
		add("status =", f.Status)
	}
	query += " ORDER BY booking_date, start_minute"

	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, query, args...)
	return bookings, err
}

// ListBookingsForDay retrieves the non-cancelled bookings for a staff
// member on one date. This is the calculator's view of busy intervals.
func (s *Store) ListBookingsForDay(ctx context.Context, staffID int64, date string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings
		WHERE staff_id = $1 AND booking_date = $2 AND status <> $3
		ORDER BY start_minute`,
		staffID, date, models.BookingStatusCancelled)
	return bookings, err
}

// PurgeExpiredPending cancels pending bookings older than the TTL.
// Administrative housekeeping; rows are kept, not deleted, so the audit
// trail survives.
func (s *Store) PurgeExpiredPending(ctx context.Context, ttlHours int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at < NOW() - ($3 * INTERVAL '1 hour')`,
		models.BookingStatusCancelled, models.BookingStatusPending, ttlHours)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
