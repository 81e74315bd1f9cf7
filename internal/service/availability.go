package service

import (
	"context"
	"time"

	"booking-service/config"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// CatalogReader is the catalog access the calculator and orchestrator need.
type CatalogReader interface {
	GetServiceByID(ctx context.Context, id int64) (*models.Service, error)
	GetStaffByID(ctx context.Context, id int64) (*models.Staff, error)
}

// DayLister returns the busy intervals for one staff member on one date.
type DayLister interface {
	ListBookingsForDay(ctx context.Context, staffID int64, date string) ([]models.Booking, error)
}

// SlotCache caches computed slot lists keyed by (staff, date, duration).
// A miss is never an error; the calculator just recomputes.
type SlotCache interface {
	GetSlots(ctx context.Context, staffID int64, date string, duration int) ([]string, bool)
	SetSlots(ctx context.Context, staffID int64, date string, duration int, slots []string, ttl time.Duration)
	InvalidateStaffDate(ctx context.Context, staffID int64, date string) error
	InvalidateStaff(ctx context.Context, staffID int64) error
}

const slotCacheTTL = time.Minute

// AvailabilityService derives bookable start times for a staff member on a
// date. Results are a snapshot, not a reservation: the booking store
// re-checks the overlap invariant at commit time.
type AvailabilityService struct {
	catalog  CatalogReader
	bookings DayLister
	cache    SlotCache // optional
	cfg      config.BookingConfig
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewAvailabilityService creates a new availability service. cache may be
// nil, in which case every request recomputes.
func NewAvailabilityService(
	catalog CatalogReader,
	bookings DayLister,
	cache SlotCache,
	cfg config.BookingConfig,
) *AvailabilityService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.Local
	}
	return &AvailabilityService{
		catalog:  catalog,
		bookings: bookings,
		cache:    cache,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// AvailableSlots returns the ordered "HH:MM" start times at which the
// service fits into the staff member's day.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, staffID int64, date string, serviceID int64) ([]string, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.AvailableSlots")
	defer span.End()

	util.AvailabilityRequestsTotal.Inc()

	svc, err := s.catalog.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, models.NewValidationError("service_id", "service is not active")
	}

	day, err := models.ParseDate(date, s.loc)
	if err != nil {
		return nil, models.NewValidationError("date", "must be YYYY-MM-DD")
	}

	// Past dates and dates beyond the booking window are empty regardless
	// of the staff schedule.
	if !s.withinWindow(day) {
		return []string{}, nil
	}

	if s.cache != nil {
		if slots, ok := s.cache.GetSlots(ctx, staffID, date, svc.Duration); ok {
			util.AvailabilityCacheHits.Inc()
			return slots, nil
		}
	}

	staff, err := s.catalog.GetStaffByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsActive {
		return nil, models.NewValidationError("staff_id", "staff member is not active")
	}

	hours := hoursForDay(staff.Hours, int(day.Weekday()))
	if hours == nil {
		return []string{}, nil // day off
	}

	busy, err := s.bookings.ListBookingsForDay(ctx, staffID, date)
	if err != nil {
		return nil, err
	}

	slots, err := computeSlots(hours, busy, svc.Duration, s.cfg.SlotIntervalMinutes)
	if err != nil {
		s.logger.Error("Slot computation failed",
			zap.Int64("staff_id", staffID),
			zap.String("date", date),
			zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetSlots(ctx, staffID, date, svc.Duration, slots, slotCacheTTL)
	}

	return slots, nil
}

func (s *AvailabilityService) withinWindow(day time.Time) bool {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if day.Before(today) {
		return false
	}
	return !day.After(today.AddDate(0, 0, s.cfg.WindowDays))
}

func hoursForDay(hours []models.WorkingHours, weekday int) *models.WorkingHours {
	for i := range hours {
		if hours[i].DayOfWeek == weekday {
			return &hours[i]
		}
	}
	return nil
}

// computeSlots generates candidate start times at the configured interval
// from the working-hours start while start+duration still fits before the
// end, then drops candidates intersecting the break window or any existing
// booking. Intervals are half-open: [start, start+duration).
func computeSlots(hours *models.WorkingHours, busy []models.Booking, duration, interval int) ([]string, error) {
	dayStart, err := models.ParseClock(hours.StartTime)
	if err != nil {
		return nil, err
	}
	dayEnd, err := models.ParseClock(hours.EndTime)
	if err != nil {
		return nil, err
	}

	breakStart, breakEnd := -1, -1
	if hours.BreakStart != nil && hours.BreakEnd != nil {
		if breakStart, err = models.ParseClock(*hours.BreakStart); err != nil {
			return nil, err
		}
		if breakEnd, err = models.ParseClock(*hours.BreakEnd); err != nil {
			return nil, err
		}
	}

	slots := []string{}
	for start := dayStart; start+duration <= dayEnd; start += interval {
		end := start + duration

		if breakStart >= 0 && models.Overlaps(start, end, breakStart, breakEnd) {
			continue
		}

		free := true
		for _, b := range busy {
			if b.Status == models.BookingStatusCancelled {
				continue
			}
			if models.Overlaps(start, end, b.StartMinute, b.EndMinute) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, models.FormatClock(start))
		}
	}

	return slots, nil
}
