package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/config"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/handler"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/cache"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/mongostore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/notify"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/redisstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("app_env", cfg.AppEnv),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Bool("redis_codes", cfg.RedisAddr != ""),
		zap.Bool("email_configured", cfg.EmailConfigured()),
		zap.Bool("whatsapp_configured", cfg.WhatsAppConfigured()),
		zap.Duration("jwt_ttl", cfg.JWTTTL),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fuel-portal-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	ctx := context.Background()

	// --- Store ---
	store, closeStore := openStore(ctx, cfg, resilienceCfg, logger)
	defer closeStore()

	var codes port.CodeStore = store
	if cfg.RedisAddr != "" {
		rc, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err), zap.String("addr", cfg.RedisAddr))
		}
		defer rc.Close()
		codes = rc
		logger.Info("verification codes kept in redis", zap.String("addr", cfg.RedisAddr))
	}

	// --- Notifications ---
	notifier := buildNotifier(cfg, resilienceCfg, metrics, logger)

	// --- Cache ---
	dashboardCache := cache.New[*domain.DashboardStats](cfg.CacheTTL)
	defer dashboardCache.Close()

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	monitor := service.NewCreditMonitor(store, store, store, notifier, metrics, logger)

	services := handler.Services{
		Auth:      service.NewAuthService(store, codes, notifier, tokens, metrics, logger),
		Fleet:     service.NewFleetService(store, store, dashboardCache, logger),
		Records:   service.NewRecordsService(store, store, store, monitor, logger),
		Credit:    monitor,
		Dashboard: service.NewDashboardService(store, store, store, dashboardCache, metrics, logger),
		Settings:  service.NewSettingsService(store, logger),
		Seed:      service.NewSeedService(store, logger),
		Store:     store,
	}

	// --- Router ---
	router := handler.NewRouter(services, handler.Options{
		DevRoutes:      !cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins(),
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.Bool("dev_routes", !cfg.IsProduction()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// documentStore is what both store drivers provide: the records plus a
// fallback home for verification codes.
type documentStore interface {
	port.Store
	port.CodeStore
}

// openStore returns the document store selected by STORE_DRIVER and a
// function that releases it.
func openStore(ctx context.Context, cfg *config.Config, rc resilience.Config, logger *zap.Logger) (documentStore, func()) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	ms, err := mongostore.Connect(connectCtx, cfg.MongoURL, cfg.DBName, rc, logger)
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err), zap.String("db", cfg.DBName))
	}
	if err := ms.EnsureIndexes(connectCtx); err != nil {
		logger.Fatal("failed to create indexes", zap.Error(err))
	}
	logger.Info("using mongodb store", zap.String("db", cfg.DBName))

	return ms, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ms.Close(closeCtx); err != nil {
			logger.Warn("closing mongodb", zap.Error(err))
		}
	}
}

// buildNotifier registers only the transports whose credentials are present.
func buildNotifier(cfg *config.Config, rc resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *notify.Dispatcher {
	var channels []notify.Channel

	if cfg.EmailConfigured() {
		email, err := notify.NewEmailChannel(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.HTTPTimeout,
		}, service.CodeTTL)
		if err != nil {
			logger.Error("email channel disabled", zap.Error(err))
		} else {
			channels = append(channels, email)
		}
	} else {
		logger.Warn("SMTP not configured, email delivery disabled")
	}

	if cfg.WhatsAppConfigured() {
		cb := resilience.NewCircuitBreaker("zapi", logger)
		channels = append(channels, notify.NewWhatsAppChannel(notify.ZAPIConfig{
			BaseURL:       cfg.ZAPIBaseURL,
			InstanceID:    cfg.ZAPIInstanceID,
			Token:         cfg.ZAPIToken,
			SecurityToken: cfg.ZAPISecurityToken,
			Timeout:       cfg.WhatsAppTimeout,
		}, cb, service.CodeTTL))
	} else {
		logger.Warn("Z-API not configured, whatsapp delivery disabled")
	}

	return notify.NewDispatcher(resilience.NewBulkhead(rc.MaxConcurrency), metrics, logger, channels...)
}
