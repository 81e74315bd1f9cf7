package service

import (
	"context"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// CatalogService fronts the catalog store, adding cache invalidation when
// a staff schedule changes: cached slot lists derive from working hours.
type CatalogService struct {
	store  *store.Store
	cache  SlotCache // optional
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(st *store.Store, cache SlotCache) *CatalogService {
	return &CatalogService{
		store:  st,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// CreateService adds a service to the catalog.
func (cs *CatalogService) CreateService(ctx context.Context, svc *models.Service) error {
	if err := cs.store.CreateService(ctx, svc); err != nil {
		return err
	}
	cs.logger.Info("Service created", zap.Int64("service_id", svc.ID), zap.String("name", svc.Name))
	return nil
}

// GetService retrieves a service by ID.
func (cs *CatalogService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	return cs.store.GetServiceByID(ctx, id)
}

// ListActiveServices lists the bookable services.
func (cs *CatalogService) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	return cs.store.ListActiveServices(ctx)
}

// UpdateService rewrites a service. Existing bookings keep their
// snapshotted amounts and duration.
func (cs *CatalogService) UpdateService(ctx context.Context, svc *models.Service) error {
	return cs.store.UpdateService(ctx, svc)
}

// DeleteService removes an unreferenced service; deactivation is the
// alternative once bookings exist.
func (cs *CatalogService) DeleteService(ctx context.Context, id int64) error {
	return cs.store.DeleteService(ctx, id)
}

// CreateStaff adds a staff member with their weekly schedule.
func (cs *CatalogService) CreateStaff(ctx context.Context, st *models.Staff) error {
	if err := cs.store.CreateStaff(ctx, st); err != nil {
		return err
	}
	cs.logger.Info("Staff created", zap.Int64("staff_id", st.ID), zap.String("name", st.Name))
	return nil
}

// GetStaff retrieves a staff member with their schedule.
func (cs *CatalogService) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	return cs.store.GetStaffByID(ctx, id)
}

// ListActiveStaff lists bookable staff.
func (cs *CatalogService) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	return cs.store.ListActiveStaff(ctx)
}

// UpdateStaff rewrites a staff member and their schedule, then drops any
// cached slots for them.
func (cs *CatalogService) UpdateStaff(ctx context.Context, st *models.Staff) error {
	if err := cs.store.UpdateStaff(ctx, st); err != nil {
		return err
	}
	if cs.cache != nil {
		if err := cs.cache.InvalidateStaff(ctx, st.ID); err != nil {
			cs.logger.Warn("Failed to invalidate slot cache for staff",
				zap.Int64("staff_id", st.ID), zap.Error(err))
		}
	}
	return nil
}

// DeleteStaff removes an unreferenced staff member.
func (cs *CatalogService) DeleteStaff(ctx context.Context, id int64) error {
	if err := cs.store.DeleteStaff(ctx, id); err != nil {
		return err
	}
	if cs.cache != nil {
		_ = cs.cache.InvalidateStaff(ctx, id)
	}
	return nil
}
