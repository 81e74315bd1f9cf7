package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingTransitions(t *testing.T) {
	assert.True(t, CanTransitionBooking(BookingStatusPending, BookingStatusConfirmed))
	assert.True(t, CanTransitionBooking(BookingStatusConfirmed, BookingStatusCompleted))
	assert.True(t, CanTransitionBooking(BookingStatusPending, BookingStatusCancelled))
	assert.True(t, CanTransitionBooking(BookingStatusConfirmed, BookingStatusCancelled))

	// No moving backwards, no leaving terminal states.
	assert.False(t, CanTransitionBooking(BookingStatusConfirmed, BookingStatusPending))
	assert.False(t, CanTransitionBooking(BookingStatusCompleted, BookingStatusCancelled))
	assert.False(t, CanTransitionBooking(BookingStatusCancelled, BookingStatusConfirmed))
	assert.False(t, CanTransitionBooking(BookingStatusPending, BookingStatusCompleted))
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentStatusPending, PaymentStatusPaid))
	assert.True(t, CanTransitionPayment(PaymentStatusPending, PaymentStatusFailed))
	assert.True(t, CanTransitionPayment(PaymentStatusPaid, PaymentStatusRefunded))

	assert.False(t, CanTransitionPayment(PaymentStatusFailed, PaymentStatusPaid))
	assert.False(t, CanTransitionPayment(PaymentStatusRefunded, PaymentStatusPaid))
	assert.False(t, CanTransitionPayment(PaymentStatusPending, PaymentStatusRefunded))
}

func TestOverlaps(t *testing.T) {
	// [600, 660) vs [660, 720): touching endpoints do not overlap.
	assert.False(t, Overlaps(600, 660, 660, 720))
	assert.False(t, Overlaps(660, 720, 600, 660))

	assert.True(t, Overlaps(600, 660, 630, 690))
	assert.True(t, Overlaps(630, 690, 600, 660))
	assert.True(t, Overlaps(600, 720, 630, 660)) // containment
	assert.True(t, Overlaps(630, 660, 600, 720))
	assert.True(t, Overlaps(600, 660, 600, 660)) // identical
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	m, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, m)

	_, err = ParseClock("24:00")
	assert.Error(t, err)
	_, err = ParseClock("12:60")
	assert.Error(t, err)
	_, err = ParseClock("not-a-time")
	assert.Error(t, err)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:30", FormatClock(570))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "17:00", FormatClock(1020))
}
