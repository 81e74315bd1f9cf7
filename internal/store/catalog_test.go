package store

import (
	"testing"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validService() *models.Service {
	return &models.Service{
		Name:       "Haircut",
		Duration:   60,
		Price:      5000,
		UpfrontFee: 1000,
		IsActive:   true,
	}
}

func TestValidateService(t *testing.T) {
	assert.NoError(t, ValidateService(validService()))
}

func TestValidateServiceUpfrontFeeExceedsPrice(t *testing.T) {
	svc := validService()
	svc.Price = 80
	svc.UpfrontFee = 100

	err := ValidateService(svc)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "upfront_fee", validation.Field)
	assert.Contains(t, validation.Reason, "exceeds price")
}

func TestValidateServiceDurationBounds(t *testing.T) {
	svc := validService()
	svc.Duration = 10
	err := ValidateService(svc)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "duration_minutes", validation.Field)

	svc.Duration = 481
	require.ErrorAs(t, ValidateService(svc), &validation)

	svc.Duration = 15
	assert.NoError(t, ValidateService(svc))
	svc.Duration = 480
	assert.NoError(t, ValidateService(svc))
}

func TestValidateServiceNegativePrice(t *testing.T) {
	svc := validService()
	svc.Price = -1

	err := ValidateService(svc)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "price", validation.Field)
}

func TestValidateServiceEmptyName(t *testing.T) {
	svc := validService()
	svc.Name = "  "

	err := ValidateService(svc)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "name", validation.Field)
}

func validStaff() *models.Staff {
	bs, be := "12:00", "13:00"
	return &models.Staff{
		Name:     "Dana",
		Email:    "dana@example.com",
		IsActive: true,
		Hours: []models.WorkingHours{
			{DayOfWeek: 2, StartTime: "09:00", EndTime: "18:00", BreakStart: &bs, BreakEnd: &be},
		},
	}
}

func TestValidateStaff(t *testing.T) {
	assert.NoError(t, ValidateStaff(validStaff()))
}

func TestValidateStaffBadEmail(t *testing.T) {
	st := validStaff()
	st.Email = "not-an-email"

	err := ValidateStaff(st)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "email", validation.Field)
}

func TestValidateStaffInvertedHours(t *testing.T) {
	st := validStaff()
	st.Hours[0].StartTime = "18:00"
	st.Hours[0].EndTime = "09:00"

	var validation *models.ValidationError
	require.ErrorAs(t, ValidateStaff(st), &validation)
}

func TestValidateStaffBreakOutsideHours(t *testing.T) {
	st := validStaff()
	early := "08:00"
	st.Hours[0].BreakStart = &early

	var validation *models.ValidationError
	require.ErrorAs(t, ValidateStaff(st), &validation)
}

func TestValidateStaffHalfBreak(t *testing.T) {
	st := validStaff()
	st.Hours[0].BreakEnd = nil

	var validation *models.ValidationError
	require.ErrorAs(t, ValidateStaff(st), &validation)
}
