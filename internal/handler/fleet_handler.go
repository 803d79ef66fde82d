package handler

import (
	"net/http"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Vehicles
// ============================================================

func listVehiclesHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/vehicles")
		defer span.End()

		vehicles, err := svc.ListVehicles(ctx, ClientFromContext(ctx).ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, vehicles)
	}
}

func getVehicleHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/vehicles/{vehicleId}")
		defer span.End()

		vehicleID := chi.URLParam(r, "vehicleId")
		span.SetAttributes(attribute.String("vehicle.id", vehicleID))

		v, err := svc.GetVehicle(ctx, ClientFromContext(ctx).ID, vehicleID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func createVehicleHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/vehicles")
		defer span.End()

		var req domain.VehicleRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		v, err := svc.CreateVehicle(ctx, ClientFromContext(ctx).ID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func updateVehicleHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/vehicles/{vehicleId}")
		defer span.End()

		var req domain.VehicleRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		v, err := svc.UpdateVehicle(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "vehicleId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func deleteVehicleHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/vehicles/{vehicleId}")
		defer span.End()

		if err := svc.DeleteVehicle(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "vehicleId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Vehicle deleted successfully"})
	}
}

// ============================================================
// Limits
// ============================================================

func listLimitsHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/limits")
		defer span.End()

		limits, err := svc.ListLimits(ctx, ClientFromContext(ctx).ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, limits)
	}
}

func createLimitHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/limits")
		defer span.End()

		var req domain.LimitRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		l, err := svc.CreateLimit(ctx, ClientFromContext(ctx).ID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func updateLimitHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/limits/{limitId}")
		defer span.End()

		var req domain.LimitRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		l, err := svc.UpdateLimit(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "limitId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func deleteLimitHandler(svc *service.FleetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/limits/{limitId}")
		defer span.End()

		if err := svc.DeleteLimit(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "limitId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Limit deleted successfully"})
	}
}
