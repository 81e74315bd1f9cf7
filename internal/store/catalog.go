package store

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"booking-service/internal/models"
)

// Service duration bounds, minutes.
const (
	MinServiceDuration = 15
	MaxServiceDuration = 480
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateService checks catalog invariants before a write. Returns a
// ValidationError naming the first offending field.
func ValidateService(svc *models.Service) error {
	if strings.TrimSpace(svc.Name) == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	if svc.Duration < MinServiceDuration || svc.Duration > MaxServiceDuration {
		return models.NewValidationError("duration_minutes", "must be between 15 and 480")
	}
	if svc.Price < 0 {
		return models.NewValidationError("price", "must not be negative")
	}
	if svc.UpfrontFee < 0 {
		return models.NewValidationError("upfront_fee", "must not be negative")
	}
	if svc.UpfrontFee > svc.Price {
		return models.NewValidationError("upfront_fee", "upfront_fee exceeds price")
	}
	return nil
}

// ValidateStaff checks staff invariants, including the weekly schedule:
// every configured day needs start < end, and any break window must sit
// inside the working hours with break_start < break_end.
func ValidateStaff(st *models.Staff) error {
	if strings.TrimSpace(st.Name) == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	if !emailPattern.MatchString(st.Email) {
		return models.NewValidationError("email", "malformed email address")
	}
	for _, h := range st.Hours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			return models.NewValidationError("working_hours.day_of_week", "must be 0-6")
		}
		start, err := models.ParseClock(h.StartTime)
		if err != nil {
			return models.NewValidationError("working_hours.start_time", err.Error())
		}
		end, err := models.ParseClock(h.EndTime)
		if err != nil {
			return models.NewValidationError("working_hours.end_time", err.Error())
		}
		if start >= end {
			return models.NewValidationError("working_hours", "start_time must precede end_time")
		}
		if (h.BreakStart == nil) != (h.BreakEnd == nil) {
			return models.NewValidationError("working_hours", "break_start and break_end must be set together")
		}
		if h.BreakStart != nil {
			bs, err := models.ParseClock(*h.BreakStart)
			if err != nil {
				return models.NewValidationError("working_hours.break_start", err.Error())
			}
			be, err := models.ParseClock(*h.BreakEnd)
			if err != nil {
				return models.NewValidationError("working_hours.break_end", err.Error())
			}
			if bs >= be || bs < start || be > end {
				return models.NewValidationError("working_hours", "break must sit inside working hours")
			}
		}
	}
	return nil
}

// CreateService inserts a validated service row.
func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	if err := ValidateService(svc); err != nil {
		return err
	}

	query := `
		INSERT INTO services (name, description, duration_minutes, price, upfront_fee, category, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, svc, query,
		svc.Name, svc.Description, svc.Duration, svc.Price, svc.UpfrontFee, svc.Category, svc.IsActive)
}

// GetServiceByID retrieves a service by ID
func (s *Store) GetServiceByID(ctx context.Context, id int64) (*models.Service, error) {
	var svc models.Service
	err := s.db.GetContext(ctx, &svc, "SELECT * FROM services WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "service", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// ListActiveServices retrieves all active services
func (s *Store) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := s.db.SelectContext(ctx, &services,
		"SELECT * FROM services WHERE is_active = TRUE ORDER BY category, name")
	return services, err
}

// UpdateService rewrites a service row. Existing bookings keep their
// snapshotted duration and amounts.
func (s *Store) UpdateService(ctx context.Context, svc *models.Service) error {
	if err := ValidateService(svc); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE services
		SET name = $1, description = $2, duration_minutes = $3, price = $4,
		    upfront_fee = $5, category = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8`,
		svc.Name, svc.Description, svc.Duration, svc.Price, svc.UpfrontFee,
		svc.Category, svc.IsActive, svc.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Entity: "service", ID: svc.ID}
	}
	return nil
}

// DeleteService removes a service that no non-cancelled booking references.
func (s *Store) DeleteService(ctx context.Context, id int64) error {
	var referenced bool
	err := s.db.GetContext(ctx, &referenced,
		"SELECT EXISTS(SELECT 1 FROM bookings WHERE service_id = $1 AND status <> $2)",
		id, models.BookingStatusCancelled)
	if err != nil {
		return err
	}
	if referenced {
		return &models.HasDependentsError{Entity: "service", ID: id}
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM services WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Entity: "service", ID: id}
	}
	return nil
}

// CreateStaff inserts a staff row plus its weekly schedule in one
// transaction.
func (s *Store) CreateStaff(ctx context.Context, st *models.Staff) error {
	if err := ValidateStaff(st); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO staff (name, email, phone, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, st, query, st.Name, st.Email, st.Phone, st.IsActive); err != nil {
		return err
	}

	for i := range st.Hours {
		st.Hours[i].StaffID = st.ID
		if err := insertWorkingHours(ctx, tx, &st.Hours[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetStaffByID retrieves a staff member with their weekly schedule.
func (s *Store) GetStaffByID(ctx context.Context, id int64) (*models.Staff, error) {
	var st models.Staff
	err := s.db.GetContext(ctx, &st, "SELECT * FROM staff WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "staff", ID: id}
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &st.Hours,
		"SELECT * FROM staff_hours WHERE staff_id = $1 ORDER BY day_of_week", id); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListActiveStaff retrieves all active staff members, schedules included.
func (s *Store) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	err := s.db.SelectContext(ctx, &staff,
		"SELECT * FROM staff WHERE is_active = TRUE ORDER BY name")
	if err != nil {
		return nil, err
	}

	for i := range staff {
		if err := s.db.SelectContext(ctx, &staff[i].Hours,
			"SELECT * FROM staff_hours WHERE staff_id = $1 ORDER BY day_of_week", staff[i].ID); err != nil {
			return nil, err
		}
	}
	return staff, nil
}

// UpdateStaff rewrites a staff row and replaces the weekly schedule.
func (s *Store) UpdateStaff(ctx context.Context, st *models.Staff) error {
	if err := ValidateStaff(st); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE staff
		SET name = $1, email = $2, phone = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5`,
		st.Name, st.Email, st.Phone, st.IsActive, st.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Entity: "staff", ID: st.ID}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM staff_hours WHERE staff_id = $1", st.ID); err != nil {
		return err
	}
	for i := range st.Hours {
		st.Hours[i].StaffID = st.ID
		if err := insertWorkingHours(ctx, tx, &st.Hours[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteStaff removes a staff member that no non-cancelled booking
// references.
func (s *Store) DeleteStaff(ctx context.Context, id int64) error {
	var referenced bool
	err := s.db.GetContext(ctx, &referenced,
		"SELECT EXISTS(SELECT 1 FROM bookings WHERE staff_id = $1 AND status <> $2)",
		id, models.BookingStatusCancelled)
	if err != nil {
		return err
	}
	if referenced {
		return &models.HasDependentsError{Entity: "staff", ID: id}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM staff_hours WHERE staff_id = $1", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM staff WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Entity: "staff", ID: id}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertWorkingHours(ctx context.Context, tx execer, h *models.WorkingHours) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO staff_hours (staff_id, day_of_week, start_time, end_time, break_start, break_end)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.StaffID, h.DayOfWeek, h.StartTime, h.EndTime, h.BreakStart, h.BreakEnd)
	return err
}
