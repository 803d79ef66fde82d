package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var fleetTracer = otel.Tracer("service/fleet")

// FleetService manages a client's vehicles and consumption limits.
type FleetService struct {
	vehicles  port.VehicleStore
	limits    port.LimitStore
	dashboard port.Cache[*domain.DashboardStats]
	logger    *zap.Logger
	now       Clock
}

// NewFleetService creates a fleet service. Vehicle writes invalidate the
// client's cached dashboard.
func NewFleetService(vehicles port.VehicleStore, limits port.LimitStore, dashboard port.Cache[*domain.DashboardStats], logger *zap.Logger) *FleetService {
	return &FleetService{
		vehicles:  vehicles,
		limits:    limits,
		dashboard: dashboard,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service's time source.
func (s *FleetService) WithClock(now Clock) *FleetService {
	s.now = now
	return s
}

// ============================================================
// Vehicles
// ============================================================

func (s *FleetService) ListVehicles(ctx context.Context, clientID string) ([]domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.ListVehicles")
	defer span.End()

	return s.vehicles.ListActiveVehicles(ctx, clientID)
}

func (s *FleetService) GetVehicle(ctx context.Context, clientID, vehicleID string) (*domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.GetVehicle")
	defer span.End()

	v, err := s.vehicles.GetVehicle(ctx, clientID, vehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil || !v.IsActive {
		return nil, &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
	}
	return v, nil
}

// CreateVehicle validates the plate and rejects a duplicate among the
// client's active vehicles.
func (s *FleetService) CreateVehicle(ctx context.Context, clientID string, req *domain.VehicleRequest) (*domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.CreateVehicle")
	defer span.End()

	plate, err := validateVehicle(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePlateFree(ctx, clientID, plate, ""); err != nil {
		return nil, err
	}

	v := &domain.Vehicle{
		ID:           uuid.NewString(),
		ClientID:     clientID,
		LicensePlate: plate,
		Model:        strings.TrimSpace(req.Model),
		Year:         req.Year,
		FuelType:     req.FuelType,
		DriverName:   strings.TrimSpace(req.DriverName),
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.vehicles.CreateVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}
	s.invalidateDashboard(clientID)

	span.SetAttributes(attribute.String("vehicle.id", v.ID))
	s.logger.Info("vehicle created",
		zap.String("client_id", clientID),
		zap.String("vehicle_id", v.ID),
		zap.String("plate", plate),
	)
	return v, nil
}

func (s *FleetService) UpdateVehicle(ctx context.Context, clientID, vehicleID string, req *domain.VehicleRequest) (*domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.UpdateVehicle")
	defer span.End()

	plate, err := validateVehicle(req)
	if err != nil {
		return nil, err
	}
	v, err := s.GetVehicle(ctx, clientID, vehicleID)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePlateFree(ctx, clientID, plate, vehicleID); err != nil {
		return nil, err
	}

	v.LicensePlate = plate
	v.Model = strings.TrimSpace(req.Model)
	v.Year = req.Year
	v.FuelType = req.FuelType
	v.DriverName = strings.TrimSpace(req.DriverName)

	if err := s.vehicles.UpdateVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	s.invalidateDashboard(clientID)
	return v, nil
}

// DeleteVehicle soft-deletes the vehicle.
func (s *FleetService) DeleteVehicle(ctx context.Context, clientID, vehicleID string) error {
	ctx, span := fleetTracer.Start(ctx, "FleetService.DeleteVehicle")
	defer span.End()

	ok, err := s.vehicles.DeactivateVehicle(ctx, clientID, vehicleID)
	if err != nil {
		return fmt.Errorf("deactivate vehicle: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
	}
	s.invalidateDashboard(clientID)
	s.logger.Info("vehicle deactivated",
		zap.String("client_id", clientID),
		zap.String("vehicle_id", vehicleID),
	)
	return nil
}

func (s *FleetService) ensurePlateFree(ctx context.Context, clientID, plate, selfID string) error {
	existing, err := s.vehicles.FindActiveVehicleByPlate(ctx, clientID, plate)
	if err != nil {
		return fmt.Errorf("find vehicle by plate: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return &domain.ErrConflict{Message: "Vehicle with this license plate already exists"}
	}
	return nil
}

func (s *FleetService) invalidateDashboard(clientID string) {
	if s.dashboard != nil {
		s.dashboard.Delete(dashboardKey(clientID))
	}
}

func validateVehicle(req *domain.VehicleRequest) (string, error) {
	plate, err := NormalizePlate(req.LicensePlate)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Model) == "" {
		return "", &domain.ErrValidation{Field: "model", Message: "model is required"}
	}
	if req.Year < 1950 || req.Year > 2100 {
		return "", &domain.ErrValidation{Field: "year", Message: "year is out of range"}
	}
	if !validFuel(req.FuelType) {
		return "", &domain.ErrValidation{Field: "fuel_type", Message: "fuel_type must be gasoline, ethanol or diesel"}
	}
	return plate, nil
}

// ============================================================
// Limits
// ============================================================

func (s *FleetService) ListLimits(ctx context.Context, clientID string) ([]domain.Limit, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.ListLimits")
	defer span.End()

	return s.limits.ListActiveLimits(ctx, clientID)
}

// CreateLimit stores a new limit with its reset date derived from the period.
func (s *FleetService) CreateLimit(ctx context.Context, clientID string, req *domain.LimitRequest) (*domain.Limit, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.CreateLimit")
	defer span.End()

	if err := s.validateLimit(ctx, clientID, req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	l := &domain.Limit{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		VehicleID:  req.VehicleID,
		LimitType:  req.LimitType,
		FuelType:   req.FuelType,
		LimitValue: req.LimitValue,
		LimitUnit:  req.LimitUnit,
		ResetDate:  NextResetDate(req.LimitType, now),
		IsActive:   true,
		CreatedAt:  now,
	}
	if err := s.limits.CreateLimit(ctx, l); err != nil {
		return nil, fmt.Errorf("create limit: %w", err)
	}

	s.logger.Info("limit created",
		zap.String("client_id", clientID),
		zap.String("limit_id", l.ID),
		zap.String("limit_type", l.LimitType),
		zap.Time("reset_date", l.ResetDate),
	)
	return l, nil
}

// UpdateLimit replaces a limit's definition. The reset date is recomputed
// only when the period changes.
func (s *FleetService) UpdateLimit(ctx context.Context, clientID, limitID string, req *domain.LimitRequest) (*domain.Limit, error) {
	ctx, span := fleetTracer.Start(ctx, "FleetService.UpdateLimit")
	defer span.End()

	l, err := s.limits.GetLimit(ctx, clientID, limitID)
	if err != nil {
		return nil, err
	}
	if l == nil || !l.IsActive {
		return nil, &domain.ErrNotFound{Resource: "limit", ID: limitID}
	}
	if err := s.validateLimit(ctx, clientID, req); err != nil {
		return nil, err
	}

	if l.LimitType != req.LimitType {
		l.ResetDate = NextResetDate(req.LimitType, s.now().UTC())
	}
	l.VehicleID = req.VehicleID
	l.LimitType = req.LimitType
	l.FuelType = req.FuelType
	l.LimitValue = req.LimitValue
	l.LimitUnit = req.LimitUnit

	if err := s.limits.UpdateLimit(ctx, l); err != nil {
		return nil, fmt.Errorf("update limit: %w", err)
	}
	return l, nil
}

// DeleteLimit soft-deletes the limit.
func (s *FleetService) DeleteLimit(ctx context.Context, clientID, limitID string) error {
	ctx, span := fleetTracer.Start(ctx, "FleetService.DeleteLimit")
	defer span.End()

	ok, err := s.limits.DeactivateLimit(ctx, clientID, limitID)
	if err != nil {
		return fmt.Errorf("deactivate limit: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "limit", ID: limitID}
	}
	return nil
}

func (s *FleetService) validateLimit(ctx context.Context, clientID string, req *domain.LimitRequest) error {
	switch req.LimitType {
	case domain.LimitDaily, domain.LimitWeekly, domain.LimitMonthly:
	default:
		return &domain.ErrValidation{Field: "limit_type", Message: "limit_type must be daily, weekly or monthly"}
	}
	switch req.LimitUnit {
	case domain.UnitLiters, domain.UnitCurrency:
	default:
		return &domain.ErrValidation{Field: "limit_unit", Message: "limit_unit must be liters or currency"}
	}
	if req.LimitValue <= 0 {
		return &domain.ErrValidation{Field: "limit_value", Message: "limit_value must be positive"}
	}
	if req.FuelType != "" && !validFuel(req.FuelType) {
		return &domain.ErrValidation{Field: "fuel_type", Message: "fuel_type must be gasoline, ethanol or diesel"}
	}
	if req.VehicleID != "" {
		if _, err := s.GetVehicle(ctx, clientID, req.VehicleID); err != nil {
			return err
		}
	}
	return nil
}

// NextResetDate returns when a limit of the given period next resets:
// +1 day, +7 days, or 00:00 UTC on the 1st of the following month.
func NextResetDate(limitType string, from time.Time) time.Time {
	switch limitType {
	case domain.LimitDaily:
		return from.AddDate(0, 0, 1)
	case domain.LimitWeekly:
		return from.AddDate(0, 0, 7)
	default:
		y, m, _ := from.Date()
		if m == time.December {
			return time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	}
}
