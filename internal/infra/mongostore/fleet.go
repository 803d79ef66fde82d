package mongostore

import (
	"context"
	"fmt"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ============================================================
// VehicleStore implementation
// ============================================================

func (s *Store) ListActiveVehicles(ctx context.Context, clientID string) ([]domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListActiveVehicles")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[vehicleDoc, domain.Vehicle](ctx, s, s.coll(collVehicles),
		bson.M{"client_id": clientID, "is_active": true}, opts, (*vehicleDoc).toDomain)
}

func (s *Store) CountActiveVehicles(ctx context.Context, clientID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Mongo.CountActiveVehicles")
	defer span.End()

	n, err := s.coll(collVehicles).CountDocuments(ctx, bson.M{"client_id": clientID, "is_active": true})
	if err != nil {
		return 0, fmt.Errorf("vehicles count: %w", err)
	}
	return int(n), nil
}

func (s *Store) GetVehicle(ctx context.Context, clientID, vehicleID string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetVehicle")
	defer span.End()

	return findOne[vehicleDoc, domain.Vehicle](ctx, s.coll(collVehicles),
		bson.M{"id": vehicleID, "client_id": clientID}, (*vehicleDoc).toDomain)
}

func (s *Store) FindActiveVehicleByPlate(ctx context.Context, clientID, plate string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Mongo.FindActiveVehicleByPlate")
	defer span.End()

	return findOne[vehicleDoc, domain.Vehicle](ctx, s.coll(collVehicles),
		bson.M{"client_id": clientID, "license_plate": plate, "is_active": true}, (*vehicleDoc).toDomain)
}

func (s *Store) CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateVehicle")
	defer span.End()

	doc := vehicleDoc(*vehicle)
	if _, err := s.coll(collVehicles).InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("vehicles insert: %w", err)
	}
	return nil
}

func (s *Store) UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateVehicle")
	defer span.End()

	return s.setFields(ctx, collVehicles, "vehicle", vehicle.ID,
		bson.M{"id": vehicle.ID, "client_id": vehicle.ClientID},
		bson.M{
			"license_plate": vehicle.LicensePlate,
			"model":         vehicle.Model,
			"year":          vehicle.Year,
			"fuel_type":     vehicle.FuelType,
			"driver_name":   vehicle.DriverName,
			"is_active":     vehicle.IsActive,
		},
	)
}

func (s *Store) DeactivateVehicle(ctx context.Context, clientID, vehicleID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Mongo.DeactivateVehicle")
	defer span.End()

	res, err := s.coll(collVehicles).UpdateOne(ctx,
		bson.M{"id": vehicleID, "client_id": clientID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return false, fmt.Errorf("vehicles deactivate: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// ============================================================
// LimitStore implementation
// ============================================================

func (s *Store) ListActiveLimits(ctx context.Context, clientID string) ([]domain.Limit, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListActiveLimits")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[limitDoc, domain.Limit](ctx, s, s.coll(collLimits),
		bson.M{"client_id": clientID, "is_active": true}, opts, (*limitDoc).toDomain)
}

func (s *Store) GetLimit(ctx context.Context, clientID, limitID string) (*domain.Limit, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetLimit")
	defer span.End()

	return findOne[limitDoc, domain.Limit](ctx, s.coll(collLimits),
		bson.M{"id": limitID, "client_id": clientID}, (*limitDoc).toDomain)
}

func (s *Store) CreateLimit(ctx context.Context, limit *domain.Limit) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateLimit")
	defer span.End()

	doc := limitDoc(*limit)
	if _, err := s.coll(collLimits).InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("limits insert: %w", err)
	}
	return nil
}

func (s *Store) UpdateLimit(ctx context.Context, limit *domain.Limit) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateLimit")
	defer span.End()

	return s.setFields(ctx, collLimits, "limit", limit.ID,
		bson.M{"id": limit.ID, "client_id": limit.ClientID},
		bson.M{
			"vehicle_id":    limit.VehicleID,
			"limit_type":    limit.LimitType,
			"fuel_type":     limit.FuelType,
			"limit_value":   limit.LimitValue,
			"limit_unit":    limit.LimitUnit,
			"current_usage": limit.CurrentUsage,
			"reset_date":    limit.ResetDate,
			"is_active":     limit.IsActive,
		},
	)
}

func (s *Store) DeactivateLimit(ctx context.Context, clientID, limitID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Mongo.DeactivateLimit")
	defer span.End()

	res, err := s.coll(collLimits).UpdateOne(ctx,
		bson.M{"id": limitID, "client_id": clientID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return false, fmt.Errorf("limits deactivate: %w", err)
	}
	return res.MatchedCount > 0, nil
}
