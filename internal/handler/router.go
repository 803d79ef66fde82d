package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the business services the router exposes.
type Services struct {
	Auth      *service.AuthService
	Fleet     *service.FleetService
	Records   *service.RecordsService
	Credit    *service.CreditMonitor
	Dashboard *service.DashboardService
	Settings  *service.SettingsService
	Seed      *service.SeedService

	// Store is pinged by /healthz. May be nil.
	Store Pinger
}

// Options controls deployment-dependent routing.
type Options struct {
	// DevRoutes mounts /api/auth/login-dev and /api/create-test-data.
	DevRoutes      bool
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", rootHandler())
		r.Get("/metrics/notifications", notificationMetricsHandler(metrics))

		// =============================================
		// Auth (public)
		// =============================================
		r.Post("/auth/login", authLoginHandler(svc.Auth, logger))
		r.Post("/auth/request-2fa", authRequestCodeHandler(svc.Auth, logger))
		r.Post("/auth/verify-2fa", authVerifyCodeHandler(svc.Auth, logger))

		if opts.DevRoutes {
			r.Post("/auth/login-dev", authDevLoginHandler(svc.Auth, logger))
			r.Post("/create-test-data", createTestDataHandler(svc.Seed, logger))
		}

		// =============================================
		// Protected routes
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))

			r.Post("/auth/change-password", authChangePasswordHandler(svc.Auth, logger))

			// Settings & contacts
			r.Get("/settings", getSettingsHandler(svc.Settings))
			r.Put("/settings", updateSettingsHandler(svc.Settings, logger))
			r.Post("/contacts", createContactHandler(svc.Settings, logger))
			r.Delete("/contacts/{contactId}", deleteContactHandler(svc.Settings, logger))
			r.Put("/contacts/{contactId}/primary", setPrimaryContactHandler(svc.Settings, logger))

			// Credit
			r.Get("/credit-status", creditStatusHandler(svc.Credit, logger))
			r.Get("/credit-alerts", listCreditAlertsHandler(svc.Credit, logger))
			r.Post("/credit-alerts/{alertId}/dismiss", dismissCreditAlertHandler(svc.Credit, logger))

			// Vehicles
			r.Get("/vehicles", listVehiclesHandler(svc.Fleet, logger))
			r.Post("/vehicles", createVehicleHandler(svc.Fleet, logger))
			r.Get("/vehicles/{vehicleId}", getVehicleHandler(svc.Fleet, logger))
			r.Put("/vehicles/{vehicleId}", updateVehicleHandler(svc.Fleet, logger))
			r.Delete("/vehicles/{vehicleId}", deleteVehicleHandler(svc.Fleet, logger))

			// Limits
			r.Get("/limits", listLimitsHandler(svc.Fleet, logger))
			r.Post("/limits", createLimitHandler(svc.Fleet, logger))
			r.Put("/limits/{limitId}", updateLimitHandler(svc.Fleet, logger))
			r.Delete("/limits/{limitId}", deleteLimitHandler(svc.Fleet, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(svc.Records, logger))
			r.Get("/transactions/vehicle/{vehicleId}", listVehicleTransactionsHandler(svc.Records, logger))
			r.Get("/transactions/{transactionId}", getTransactionHandler(svc.Records, logger))

			// Invoices
			r.Get("/invoices", listInvoicesHandler(svc.Records, logger))
			r.Get("/invoices/open", listOpenInvoicesHandler(svc.Records, logger))
			r.Get("/invoices/{invoiceId}", getInvoiceHandler(svc.Records, logger))
			r.Get("/invoices/{invoiceId}/details", invoiceDetailsHandler(svc.Records, logger))

			// Dashboard
			r.Get("/dashboard/stats", dashboardStatsHandler(svc.Dashboard, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Fuel portal API"})
	}
}

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "fuel-portal-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: store ping failed", zap.Error(err))
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		code := http.StatusOK
		if overallStatus == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func notificationMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.NotificationSnapshot())
	}
}
