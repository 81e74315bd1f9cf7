package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-service/config"
	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingStore struct {
	bookings   map[int64]*models.Booking
	nextID     int64
	conflictOn bool
	createErr  error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: map[int64]*models.Booking{}, nextID: 1}
}

func (f *fakeBookingStore) CreateBooking(_ context.Context, b *models.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.conflictOn {
		return models.ErrConflict
	}
	b.ID = f.nextID
	f.nextID++
	copied := *b
	f.bookings[b.ID] = &copied
	return nil
}

func (f *fakeBookingStore) GetBookingByID(_ context.Context, id int64) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "booking", ID: id}
	}
	return b, nil
}

func (f *fakeBookingStore) UpdateBookingStatus(_ context.Context, id int64, newStatus string) error {
	b, ok := f.bookings[id]
	if !ok {
		return &models.NotFoundError{Entity: "booking", ID: id}
	}
	if !models.CanTransitionBooking(b.Status, newStatus) {
		return &models.InvalidTransitionError{Entity: "booking", From: b.Status, To: newStatus}
	}
	b.Status = newStatus
	return nil
}

func (f *fakeBookingStore) UpdatePaymentStatus(_ context.Context, id int64, newStatus, ref string) error {
	b, ok := f.bookings[id]
	if !ok {
		return &models.NotFoundError{Entity: "booking", ID: id}
	}
	if !models.CanTransitionPayment(b.PaymentStatus, newStatus) {
		return &models.InvalidTransitionError{Entity: "payment", From: b.PaymentStatus, To: newStatus}
	}
	b.PaymentStatus = newStatus
	b.PaymentReference = ref
	return nil
}

func (f *fakeBookingStore) ListBookings(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.StaffID != 0 && b.StaffID != filter.StaffID {
			continue
		}
		if filter.FromDate != "" && b.BookingDate < filter.FromDate {
			continue
		}
		if filter.ToDate != "" && b.BookingDate > filter.ToDate {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

type fakeGateway struct {
	charges      int
	refunds      int
	refundedRef  string
	refundedAmt  int64
	chargeErrs   []error // errors returned in sequence; nil means success
	lastIdemKeys []string
}

func (f *fakeGateway) Charge(_ context.Context, amount int64, currency, key string) (*ChargeResult, error) {
	f.charges++
	f.lastIdemKeys = append(f.lastIdemKeys, key)
	if len(f.chargeErrs) > 0 {
		err := f.chargeErrs[0]
		f.chargeErrs = f.chargeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &ChargeResult{Reference: "pi_test_123"}, nil
}

func (f *fakeGateway) Refund(_ context.Context, reference string, amount int64) error {
	f.refunds++
	f.refundedRef = reference
	f.refundedAmt = amount
	return nil
}

type fakePublisher struct {
	confirmed []*models.BookingConfirmedEvent
	cancelled []*models.BookingCancelledEvent
	reminders []*models.BookingReminderEvent
	refunded  []*models.PaymentRefundedEvent
}

func (f *fakePublisher) PublishBookingConfirmed(_ context.Context, e *models.BookingConfirmedEvent) error {
	f.confirmed = append(f.confirmed, e)
	return nil
}

func (f *fakePublisher) PublishBookingCancelled(_ context.Context, e *models.BookingCancelledEvent) error {
	f.cancelled = append(f.cancelled, e)
	return nil
}

func (f *fakePublisher) PublishBookingReminder(_ context.Context, e *models.BookingReminderEvent) error {
	f.reminders = append(f.reminders, e)
	return nil
}

func (f *fakePublisher) PublishPaymentRefunded(_ context.Context, e *models.PaymentRefundedEvent) error {
	f.refunded = append(f.refunded, e)
	return nil
}

func testBookingService(store *fakeBookingStore, gw *fakeGateway, pub *fakePublisher) *BookingService {
	return testBookingServiceWithCatalog(fixtureCatalog(), store, gw, pub)
}

func testBookingServiceWithCatalog(catalog *fakeCatalog, store *fakeBookingStore, gw *fakeGateway, pub *fakePublisher) *BookingService {
	return NewBookingService(catalog, store, testAvailability(catalog, &fakeDayLister{}), gw, pub, nil, nil,
		config.BookingConfig{
			SlotIntervalMinutes: 30,
			WindowDays:          30,
			Currency:            "usd",
			PendingTTLHours:     24,
		}, 5*time.Second)
}

func validRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		ClientName:  "Pat Doe",
		ClientEmail: "pat@example.com",
		ServiceID:   1,
		StaffID:     1,
		BookingDate: "2026-09-01",
		BookingTime: "11:00",
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	svc := testBookingService(store, gw, pub)

	b, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
	assert.Equal(t, "pi_test_123", b.PaymentReference)

	// Amounts and duration snapshotted from the service.
	assert.Equal(t, int64(5000), b.TotalAmount)
	assert.Equal(t, int64(1000), b.UpfrontFee)
	assert.Equal(t, 60, b.Duration)

	assert.Equal(t, 1, gw.charges)
	assert.Zero(t, gw.refunds)
	require.Len(t, pub.confirmed, 1)
	assert.Equal(t, b.ID, pub.confirmed[0].BookingID)
}

func TestCreateBookingSnapshotSurvivesServiceEdit(t *testing.T) {
	store := newFakeBookingStore()
	catalog := fixtureCatalog()
	svc := testBookingServiceWithCatalog(catalog, store, &fakeGateway{}, &fakePublisher{})

	b, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)

	// A later catalog edit must not leak into the stored booking.
	catalog.services[1].Price = 9999
	catalog.services[1].Duration = 30

	listed, err := svc.ListBookings(context.Background(), models.BookingFilter{StaffID: 1})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, b.ID, listed[0].ID)
	assert.Equal(t, int64(5000), listed[0].TotalAmount)
	assert.Equal(t, int64(1000), listed[0].UpfrontFee)
	assert.Equal(t, 60, listed[0].Duration)
}

func TestCreateBookingPaymentDeclined(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{chargeErrs: []error{&models.PaymentDeclinedError{Reason: "insufficient funds"}}}
	pub := &fakePublisher{}
	svc := testBookingService(store, gw, pub)

	_, err := svc.CreateBooking(context.Background(), validRequest())

	var declined *models.PaymentDeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "insufficient funds", declined.Reason)

	// No booking row, no refund, no notification.
	assert.Empty(t, store.bookings)
	assert.Zero(t, gw.refunds)
	assert.Empty(t, pub.confirmed)
}

func TestCreateBookingConflictTriggersRefund(t *testing.T) {
	store := newFakeBookingStore()
	store.conflictOn = true
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	svc := testBookingService(store, gw, pub)

	_, err := svc.CreateBooking(context.Background(), validRequest())
	require.ErrorIs(t, err, models.ErrConflict)

	// Charge captured, then fully compensated; no booking row remains.
	assert.Equal(t, 1, gw.charges)
	assert.Equal(t, 1, gw.refunds)
	assert.Equal(t, "pi_test_123", gw.refundedRef)
	assert.Equal(t, int64(1000), gw.refundedAmt)
	assert.Empty(t, store.bookings)
	assert.Empty(t, pub.confirmed)
	require.Len(t, pub.refunded, 1)
	assert.Equal(t, "slot no longer available", pub.refunded[0].Reason)
}

func TestCreateBookingGatewayErrorRetriesOnce(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{chargeErrs: []error{
		&models.PaymentGatewayError{Err: errors.New("connection reset")},
		nil,
	}}
	svc := testBookingService(store, gw, &fakePublisher{})

	b, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, gw.charges)
	// Both attempts must reuse the same idempotency key.
	require.Len(t, gw.lastIdemKeys, 2)
	assert.Equal(t, gw.lastIdemKeys[0], gw.lastIdemKeys[1])
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
}

func TestCreateBookingGatewayErrorPersistsAfterRetry(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{chargeErrs: []error{
		&models.PaymentGatewayError{Err: errors.New("timeout")},
		&models.PaymentGatewayError{Err: errors.New("timeout")},
	}}
	svc := testBookingService(store, gw, &fakePublisher{})

	_, err := svc.CreateBooking(context.Background(), validRequest())

	var gwErr *models.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 2, gw.charges)
	assert.Empty(t, store.bookings)
}

func TestCreateBookingInactiveService(t *testing.T) {
	catalog := fixtureCatalog()
	catalog.services[1].IsActive = false
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingServiceWithCatalog(catalog, store, gw, &fakePublisher{})

	_, err := svc.CreateBooking(context.Background(), validRequest())

	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "service_id", validation.Field)

	// Rejected while drafting: no money ever moved.
	assert.Zero(t, gw.charges)
}

func TestCreateBookingUnknownStaff(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingService(store, gw, &fakePublisher{})

	req := validRequest()
	req.StaffID = 42
	_, err := svc.CreateBooking(context.Background(), req)

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Zero(t, gw.charges)
}

func TestCreateBookingMalformedEmailNeverCharged(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingService(store, gw, &fakePublisher{})

	req := validRequest()
	req.ClientEmail = "not-an-email"
	_, err := svc.CreateBooking(context.Background(), req)

	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "client_email", validation.Field)

	// Rejected while drafting: no charge, so nothing to refund.
	assert.Zero(t, gw.charges)
	assert.Zero(t, gw.refunds)
	assert.Empty(t, store.bookings)
}

func TestCreateBookingDayOffRejectedBeforeCharge(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingService(store, gw, &fakePublisher{})

	// 2026-09-02 is a Wednesday; the fixture staff only works Tuesdays.
	req := validRequest()
	req.BookingDate = "2026-09-02"
	req.BookingTime = "03:00"
	_, err := svc.CreateBooking(context.Background(), req)

	require.ErrorIs(t, err, models.ErrConflict)
	assert.Zero(t, gw.charges)
	assert.Empty(t, store.bookings)
}

func TestCreateBookingDuringBreakRejected(t *testing.T) {
	catalog := fixtureCatalog()
	bs, be := "12:00", "13:00"
	catalog.staff[1].Hours[0].BreakStart = &bs
	catalog.staff[1].Hours[0].BreakEnd = &be
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingServiceWithCatalog(catalog, store, gw, &fakePublisher{})

	// 12:30 + 60min lands inside the break window.
	req := validRequest()
	req.BookingTime = "12:30"
	_, err := svc.CreateBooking(context.Background(), req)

	require.ErrorIs(t, err, models.ErrConflict)
	assert.Zero(t, gw.charges)
}

func TestCreateBookingOutsideWorkingHoursRejected(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingService(store, gw, &fakePublisher{})

	// Before the 09:00 shift start.
	req := validRequest()
	req.BookingTime = "03:00"
	_, err := svc.CreateBooking(context.Background(), req)
	require.ErrorIs(t, err, models.ErrConflict)

	// Not aligned to the 30-minute slot grid.
	req = validRequest()
	req.BookingTime = "11:10"
	_, err = svc.CreateBooking(context.Background(), req)
	require.ErrorIs(t, err, models.ErrConflict)

	assert.Zero(t, gw.charges)
	assert.Empty(t, store.bookings)
}

func TestCreateBookingPastOrFarFutureDateRejected(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingService(store, gw, &fakePublisher{})

	req := validRequest()
	req.BookingDate = "2026-08-25"
	_, err := svc.CreateBooking(context.Background(), req)
	require.ErrorIs(t, err, models.ErrConflict)

	// A Tuesday, but beyond the 30-day booking window.
	req = validRequest()
	req.BookingDate = "2026-10-27"
	_, err = svc.CreateBooking(context.Background(), req)
	require.ErrorIs(t, err, models.ErrConflict)

	assert.Zero(t, gw.charges)
}

func TestCancelBookingPublishesEvent(t *testing.T) {
	store := newFakeBookingStore()
	pub := &fakePublisher{}
	svc := testBookingService(store, &fakeGateway{}, pub)

	b, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(context.Background(), b.ID, "client request"))

	stored, err := store.GetBookingByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	require.Len(t, pub.cancelled, 1)
	assert.Equal(t, "client request", pub.cancelled[0].Reason)
}

func TestCancelCompletedBookingRejected(t *testing.T) {
	store := newFakeBookingStore()
	svc := testBookingService(store, &fakeGateway{}, &fakePublisher{})

	b, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(context.Background(), b.ID, models.BookingStatusCompleted))

	err = svc.CancelBooking(context.Background(), b.ID, "too late")
	var transition *models.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestRefundBookingReturnsDeposit(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	svc := testBookingService(store, gw, pub)

	b, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.RefundBooking(context.Background(), b.ID, "staff unavailable"))

	assert.Equal(t, 1, gw.refunds)
	assert.Equal(t, "pi_test_123", gw.refundedRef)
	assert.Equal(t, int64(1000), gw.refundedAmt)

	stored, err := store.GetBookingByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)

	require.Len(t, pub.refunded, 1)
	assert.Equal(t, "staff unavailable", pub.refunded[0].Reason)
}

func TestRefundUnpaidBookingRejected(t *testing.T) {
	store := newFakeBookingStore()
	gw := &fakeGateway{}
	svc := testBookingService(store, gw, &fakePublisher{})

	store.bookings[7] = &models.Booking{
		ID:            7,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		UpfrontFee:    1000,
	}

	err := svc.RefundBooking(context.Background(), 7, "whatever")
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Zero(t, gw.refunds)
}

func TestSendDailyReminders(t *testing.T) {
	store := newFakeBookingStore()
	pub := &fakePublisher{}
	catalog := fixtureCatalog()
	// 2026-09-02 is a Wednesday; give the fixture staff a Wednesday shift.
	catalog.staff[1].Hours = append(catalog.staff[1].Hours,
		models.WorkingHours{StaffID: 1, DayOfWeek: 3, StartTime: "09:00", EndTime: "18:00"})
	svc := testBookingServiceWithCatalog(catalog, store, &fakeGateway{}, pub)

	req := validRequest()
	req.BookingDate = "2026-09-02"
	_, err := svc.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	reminders := NewReminderService(store, pub, time.UTC)
	reminders.now = func() time.Time {
		return time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	}
	require.NoError(t, reminders.SendDailyReminders(context.Background()))

	require.Len(t, pub.reminders, 1)
	assert.Equal(t, req.BookingDate, pub.reminders[0].BookingDate)
}
