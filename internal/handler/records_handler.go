package handler

import (
	"net/http"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions")
		defer span.End()

		txs, err := svc.ListTransactions(ctx, ClientFromContext(ctx).ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func listVehicleTransactionsHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions/vehicle/{vehicleId}")
		defer span.End()

		txs, err := svc.ListVehicleTransactions(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "vehicleId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func getTransactionHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions/{transactionId}")
		defer span.End()

		tx, err := svc.GetTransaction(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

// ============================================================
// Invoices
// ============================================================

func listInvoicesHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/invoices")
		defer span.End()

		invoices, err := svc.ListInvoices(ctx, ClientFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	}
}

func listOpenInvoicesHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/invoices/open")
		defer span.End()

		invoices, err := svc.ListOpenInvoices(ctx, ClientFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	}
}

func getInvoiceHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/invoices/{invoiceId}")
		defer span.End()

		inv, err := svc.GetInvoice(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "invoiceId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func invoiceDetailsHandler(svc *service.RecordsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/invoices/{invoiceId}/details")
		defer span.End()

		details, err := svc.InvoiceDetails(ctx, ClientFromContext(ctx).ID, chi.URLParam(r, "invoiceId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

// ============================================================
// Dashboard
// ============================================================

func dashboardStatsHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/dashboard/stats")
		defer span.End()

		stats, err := svc.Stats(ctx, ClientFromContext(ctx).ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
