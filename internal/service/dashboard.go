package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

const (
	recentTransactions = 10
	dashboardCache     = "dashboard"
)

func dashboardKey(clientID string) string {
	return "dashboard:" + clientID
}

// DashboardService aggregates the client's current-month activity.
type DashboardService struct {
	vehicles     port.VehicleStore
	transactions port.TransactionStore
	invoices     port.InvoiceStore
	cache        port.Cache[*domain.DashboardStats]
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          Clock
}

// NewDashboardService creates a dashboard service. cache may be nil.
func NewDashboardService(vehicles port.VehicleStore, transactions port.TransactionStore, invoices port.InvoiceStore, cache port.Cache[*domain.DashboardStats], metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		vehicles:     vehicles,
		transactions: transactions,
		invoices:     invoices,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service's time source.
func (s *DashboardService) WithClock(now Clock) *DashboardService {
	s.now = now
	return s
}

// Stats returns the dashboard for the current calendar month in UTC.
func (s *DashboardService) Stats(ctx context.Context, clientID string) (*domain.DashboardStats, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Stats")
	defer span.End()

	key := dashboardKey(clientID)
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			s.metrics.IncrCacheHit(dashboardCache)
			return stats, nil
		}
		s.metrics.IncrCacheMiss(dashboardCache)
	}

	start := time.Now()
	stats, err := s.compute(ctx, clientID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRequestDuration("dashboard_stats", time.Since(start))

	if s.cache != nil {
		s.cache.Set(key, stats)
	}
	return stats, nil
}

func (s *DashboardService) compute(ctx context.Context, clientID string) (*domain.DashboardStats, error) {
	from, to := monthWindow(s.now())

	var (
		vehicleCount int
		monthTxs     []domain.FuelTransaction
		open         []domain.Invoice
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.vehicles.CountActiveVehicles(gctx, clientID)
		if err != nil {
			return fmt.Errorf("count vehicles: %w", err)
		}
		vehicleCount = n
		return nil
	})
	g.Go(func() error {
		txs, err := s.transactions.ListTransactions(gctx, clientID, port.TransactionFilter{From: from, To: to})
		if err != nil {
			return fmt.Errorf("list month transactions: %w", err)
		}
		monthTxs = txs
		return nil
	})
	g.Go(func() error {
		invs, err := s.invoices.ListInvoices(gctx, clientID, port.InvoiceFilter{
			Statuses: []string{domain.InvoiceOpen, domain.InvoiceOverdue},
		})
		if err != nil {
			return fmt.Errorf("list open invoices: %w", err)
		}
		open = invs
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard aggregation failed", zap.String("client_id", clientID), zap.Error(err))
		return nil, err
	}

	// monthTxs comes back newest first
	recent := monthTxs
	if len(recent) > recentTransactions {
		recent = recent[:recentTransactions]
	}

	stats := &domain.DashboardStats{
		VehiclesCount:         vehicleCount,
		MonthTransactionCount: len(monthTxs),
		OpenInvoicesCount:     len(open),
		FuelBreakdown:         make(map[string]domain.FuelBreakdown),
		RecentTransactions:    make([]domain.RecentTransaction, 0, len(recent)),
		PeriodStart:           from,
	}

	amount, liters := decimal.Zero, decimal.Zero
	perFuel := make(map[string][2]decimal.Decimal)
	for _, tx := range monthTxs {
		a := decimal.NewFromFloat(tx.TotalAmount)
		l := decimal.NewFromFloat(tx.Liters)
		amount = amount.Add(a)
		liters = liters.Add(l)
		acc := perFuel[tx.FuelType]
		perFuel[tx.FuelType] = [2]decimal.Decimal{acc[0].Add(l), acc[1].Add(a)}
	}
	for fuel, acc := range perFuel {
		stats.FuelBreakdown[fuel] = domain.FuelBreakdown{
			Liters: acc[0].Round(2).InexactFloat64(),
			Amount: acc[1].Round(2).InexactFloat64(),
		}
	}
	stats.MonthTotalAmount = amount.Round(2).InexactFloat64()
	stats.MonthTotalLiters = liters.Round(2).InexactFloat64()

	openTotal := decimal.Zero
	for _, inv := range open {
		openTotal = openTotal.Add(decimal.NewFromFloat(inv.TotalAmount))
	}
	stats.TotalOpenAmount = openTotal.Round(2).InexactFloat64()

	for _, tx := range recent {
		stats.RecentTransactions = append(stats.RecentTransactions, domain.RecentTransaction{
			ID:              tx.ID,
			LicensePlate:    tx.LicensePlate,
			FuelType:        tx.FuelType,
			Liters:          tx.Liters,
			TotalAmount:     tx.TotalAmount,
			TransactionDate: tx.TransactionDate,
		})
	}
	return stats, nil
}
