package handler

import (
	"net/http"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Dev Tools (non-production only)
// ============================================================

func createTestDataHandler(svc *service.SeedService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/create-test-data")
		defer span.End()

		resp, err := svc.Seed(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
