package handler

import (
	"net/http"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Settings & contacts
// ============================================================

func getSettingsHandler(svc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Get(ClientFromContext(r.Context())))
	}
}

func updateSettingsHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/settings")
		defer span.End()

		var req domain.UpdateSettingsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		settings, err := svc.Update(ctx, ClientFromContext(ctx).ID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

func createContactHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/contacts")
		defer span.End()

		var req domain.CreateContactRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		contact, err := svc.AddContact(ctx, ClientFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ContactResponse{Message: "Contact added successfully", Contact: *contact})
	}
}

func deleteContactHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/contacts/{contactId}")
		defer span.End()

		if err := svc.DeleteContact(ctx, ClientFromContext(ctx), chi.URLParam(r, "contactId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Contact removed successfully"})
	}
}

func setPrimaryContactHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/contacts/{contactId}/primary")
		defer span.End()

		if err := svc.SetPrimaryContact(ctx, ClientFromContext(ctx), chi.URLParam(r, "contactId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Primary contact updated"})
	}
}

// ============================================================
// Credit
// ============================================================

func creditStatusHandler(svc *service.CreditMonitor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/credit-status")
		defer span.End()

		status, err := svc.CreditStatus(ctx, ClientFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func listCreditAlertsHandler(svc *service.CreditMonitor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/credit-alerts")
		defer span.End()

		alerts, err := svc.ListAlerts(ctx, ClientFromContext(ctx).ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}

func dismissCreditAlertHandler(svc *service.CreditMonitor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/credit-alerts/{alertId}/dismiss")
		defer span.End()

		alertID := chi.URLParam(r, "alertId")
		if err := svc.DismissAlert(ctx, ClientFromContext(ctx).ID, alertID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Alert dismissed", ID: alertID})
	}
}
