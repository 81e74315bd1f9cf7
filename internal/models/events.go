package models

import "time"

// Event types
const (
	EventTypeBookingConfirmed = "BOOKING_CONFIRMED"
	EventTypeBookingCancelled = "BOOKING_CANCELLED"
	EventTypeBookingReminder  = "BOOKING_REMINDER"
	EventTypePaymentRefunded  = "PAYMENT_REFUNDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingConfirmedEvent published when a booking commits
type BookingConfirmedEvent struct {
	BaseEvent
	BookingID   int64  `json:"booking_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	StaffID     int64  `json:"staff_id"`
	ServiceID   int64  `json:"service_id"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
	UpfrontFee  int64  `json:"upfront_fee"`
}

// BookingCancelledEvent published when a booking is cancelled
type BookingCancelledEvent struct {
	BaseEvent
	BookingID   int64  `json:"booking_id"`
	ClientEmail string `json:"client_email"`
	Reason      string `json:"reason"`
}

// BookingReminderEvent published by the reminder job for next-day bookings
type BookingReminderEvent struct {
	BaseEvent
	BookingID   int64  `json:"booking_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
}

// PaymentRefundedEvent published when a compensating refund is issued
type PaymentRefundedEvent struct {
	BaseEvent
	PaymentReference string `json:"payment_reference"`
	Amount           int64  `json:"amount"`
	Reason           string `json:"reason"`
}
