package models

import "time"

// Service represents a bookable service in the catalog.
// Amounts are in minor currency units (cents).
type Service struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Duration    int       `db:"duration_minutes" json:"duration_minutes"`
	Price       int64     `db:"price" json:"price"`
	UpfrontFee  int64     `db:"upfront_fee" json:"upfront_fee"`
	Category    string    `db:"category" json:"category,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Staff represents a staff member who can be booked
type Staff struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Hours is the weekly schedule, loaded alongside the row.
	Hours []WorkingHours `db:"-" json:"working_hours,omitempty"`
}

// WorkingHours is one day of a staff member's weekly schedule.
// Times are "HH:MM" 24h strings; a missing row means a day off.
type WorkingHours struct {
	StaffID    int64   `db:"staff_id" json:"staff_id"`
	DayOfWeek  int     `db:"day_of_week" json:"day_of_week"` // 0 = Sunday
	StartTime  string  `db:"start_time" json:"start_time"`
	EndTime    string  `db:"end_time" json:"end_time"`
	BreakStart *string `db:"break_start" json:"break_start,omitempty"`
	BreakEnd   *string `db:"break_end" json:"break_end,omitempty"`
}

// Booking represents a committed appointment. Duration and amounts are
// snapshots taken from the Service at creation time and never change
// afterwards, so later catalog edits cannot rewrite history.
type Booking struct {
	ID               int64     `db:"id" json:"id"`
	ClientName       string    `db:"client_name" json:"client_name"`
	ClientEmail      string    `db:"client_email" json:"client_email"`
	ClientPhone      string    `db:"client_phone" json:"client_phone,omitempty"`
	ServiceID        int64     `db:"service_id" json:"service_id"`
	StaffID          int64     `db:"staff_id" json:"staff_id"`
	BookingDate      string    `db:"booking_date" json:"booking_date"` // "2006-01-02"
	BookingTime      string    `db:"booking_time" json:"booking_time"` // "HH:MM"
	Duration         int       `db:"duration_minutes" json:"duration_minutes"`
	StartMinute      int       `db:"start_minute" json:"-"`
	EndMinute        int       `db:"end_minute" json:"-"`
	Status           string    `db:"status" json:"status"`
	PaymentStatus    string    `db:"payment_status" json:"payment_status"`
	PaymentReference string    `db:"payment_reference" json:"payment_reference,omitempty"`
	TotalAmount      int64     `db:"total_amount" json:"total_amount"`
	UpfrontFee       int64     `db:"upfront_fee" json:"upfront_fee"`
	Notes            string    `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// bookingTransitions lists the legal forward moves. Cancellation is only
// reachable from pending or confirmed; completed and cancelled are terminal.
var bookingTransitions = map[string][]string{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

var paymentTransitions = map[string][]string{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// CanTransitionBooking reports whether a booking may move from one status
// to another.
func CanTransitionBooking(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether a payment status change is legal.
func CanTransitionPayment(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidBookingStatus reports whether s is a known booking status.
func IsValidBookingStatus(s string) bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// BookingFilter narrows ListBookings queries. Zero values mean "no filter".
type BookingFilter struct {
	FromDate  string
	ToDate    string
	StaffID   int64
	ServiceID int64
	Status    string
}

// Overlaps reports whether two half-open minute intervals
// [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
