package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var recordsTracer = otel.Tracer("service/records")

const listLimit = 100

// RecordsService exposes a client's fuel transactions and invoices.
// Invoice reads trigger a credit check.
type RecordsService struct {
	vehicles     port.VehicleStore
	transactions port.TransactionStore
	invoices     port.InvoiceStore
	monitor      *CreditMonitor
	logger       *zap.Logger
}

// NewRecordsService creates a records service. monitor may be nil.
func NewRecordsService(vehicles port.VehicleStore, transactions port.TransactionStore, invoices port.InvoiceStore, monitor *CreditMonitor, logger *zap.Logger) *RecordsService {
	return &RecordsService{
		vehicles:     vehicles,
		transactions: transactions,
		invoices:     invoices,
		monitor:      monitor,
		logger:       logger,
	}
}

// ============================================================
// Transactions
// ============================================================

// ListTransactions returns the client's latest transactions, newest first.
func (s *RecordsService) ListTransactions(ctx context.Context, clientID string) ([]domain.FuelTransaction, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.ListTransactions")
	defer span.End()

	txs, err := s.transactions.ListTransactions(ctx, clientID, port.TransactionFilter{Limit: listLimit})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	s.checkTotals(clientID, txs)
	return txs, nil
}

// ListVehicleTransactions returns transactions of one of the client's vehicles.
func (s *RecordsService) ListVehicleTransactions(ctx context.Context, clientID, vehicleID string) ([]domain.FuelTransaction, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.ListVehicleTransactions")
	defer span.End()

	v, err := s.vehicles.GetVehicle(ctx, clientID, vehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
	}
	return s.transactions.ListTransactions(ctx, clientID, port.TransactionFilter{VehicleID: vehicleID, Limit: listLimit})
}

func (s *RecordsService) GetTransaction(ctx context.Context, clientID, transactionID string) (*domain.FuelTransaction, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.GetTransaction")
	defer span.End()

	tx, err := s.transactions.GetTransaction(ctx, clientID, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return tx, nil
}

// checkTotals logs transactions whose total drifts from liters * price.
func (s *RecordsService) checkTotals(clientID string, txs []domain.FuelTransaction) {
	for i := range txs {
		if !txs[i].TotalConsistent() {
			s.logger.Warn("transaction total mismatch",
				zap.String("client_id", clientID),
				zap.String("transaction_id", txs[i].ID),
				zap.Float64("total_amount", txs[i].TotalAmount),
				zap.Float64("liters", txs[i].Liters),
				zap.Float64("price_per_liter", txs[i].PricePerLiter),
			)
		}
	}
}

// ============================================================
// Invoices
// ============================================================

// ListInvoices returns the client's latest invoices and runs a credit check.
func (s *RecordsService) ListInvoices(ctx context.Context, client *domain.Client) ([]domain.Invoice, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.ListInvoices")
	defer span.End()

	invoices, err := s.invoices.ListInvoices(ctx, client.ID, port.InvoiceFilter{Limit: listLimit})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	s.creditCheck(ctx, client)
	return invoices, nil
}

// ListOpenInvoices returns open and overdue invoices by due date and runs a credit check.
func (s *RecordsService) ListOpenInvoices(ctx context.Context, client *domain.Client) ([]domain.Invoice, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.ListOpenInvoices")
	defer span.End()

	invoices, err := s.invoices.ListInvoices(ctx, client.ID, port.InvoiceFilter{
		Statuses:  []string{domain.InvoiceOpen, domain.InvoiceOverdue},
		SortByDue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	s.creditCheck(ctx, client)
	return invoices, nil
}

func (s *RecordsService) GetInvoice(ctx context.Context, clientID, invoiceID string) (*domain.Invoice, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.GetInvoice")
	defer span.End()

	inv, err := s.invoices.GetInvoice(ctx, clientID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: invoiceID}
	}
	return inv, nil
}

// InvoiceDetails returns the invoice with its transactions. Invoices without
// explicit transaction ids fall back to the client's transactions dated in
// the invoice's creation month.
func (s *RecordsService) InvoiceDetails(ctx context.Context, clientID, invoiceID string) (*domain.InvoiceDetails, error) {
	ctx, span := recordsTracer.Start(ctx, "RecordsService.InvoiceDetails")
	defer span.End()

	inv, err := s.GetInvoice(ctx, clientID, invoiceID)
	if err != nil {
		return nil, err
	}

	filter := port.TransactionFilter{}
	if len(inv.TransactionIDs) > 0 {
		filter.IDs = inv.TransactionIDs
	} else {
		filter.From, filter.To = monthWindow(inv.CreatedAt)
	}
	txs, err := s.transactions.ListTransactions(ctx, clientID, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoice transactions: %w", err)
	}

	liters := decimal.Zero
	for _, tx := range txs {
		liters = liters.Add(decimal.NewFromFloat(tx.Liters))
	}

	return &domain.InvoiceDetails{
		Invoice:          *inv,
		Transactions:     txs,
		TransactionCount: len(txs),
		TotalLiters:      liters.Round(2).InexactFloat64(),
	}, nil
}

func (s *RecordsService) creditCheck(ctx context.Context, client *domain.Client) {
	if s.monitor == nil {
		return
	}
	if _, err := s.monitor.CheckAndAlert(ctx, client); err != nil {
		s.logger.Warn("credit check failed", zap.String("client_id", client.ID), zap.Error(err))
	}
}

// monthWindow returns [first day of t's month, first day of next month) in UTC.
func monthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
