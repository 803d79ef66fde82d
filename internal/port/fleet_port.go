package port

import (
	"context"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
)

// VehicleStore handles vehicle records. Get/Find return (nil, nil) when
// nothing matches.
type VehicleStore interface {
	ListActiveVehicles(ctx context.Context, clientID string) ([]domain.Vehicle, error)
	CountActiveVehicles(ctx context.Context, clientID string) (int, error)
	GetVehicle(ctx context.Context, clientID, vehicleID string) (*domain.Vehicle, error)
	FindActiveVehicleByPlate(ctx context.Context, clientID, plate string) (*domain.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	DeactivateVehicle(ctx context.Context, clientID, vehicleID string) (bool, error)
}

// LimitStore handles consumption limits.
type LimitStore interface {
	ListActiveLimits(ctx context.Context, clientID string) ([]domain.Limit, error)
	GetLimit(ctx context.Context, clientID, limitID string) (*domain.Limit, error)
	CreateLimit(ctx context.Context, limit *domain.Limit) error
	UpdateLimit(ctx context.Context, limit *domain.Limit) error
	DeactivateLimit(ctx context.Context, clientID, limitID string) (bool, error)
}

// TransactionFilter narrows a transaction listing. Zero values mean "no filter".
type TransactionFilter struct {
	VehicleID string
	IDs       []string
	From      time.Time // inclusive
	To        time.Time // exclusive
	Limit     int
}

// TransactionStore handles fuel transactions. Listings are sorted by
// transaction_date, newest first.
type TransactionStore interface {
	ListTransactions(ctx context.Context, clientID string, filter TransactionFilter) ([]domain.FuelTransaction, error)
	GetTransaction(ctx context.Context, clientID, transactionID string) (*domain.FuelTransaction, error)
	InsertTransactions(ctx context.Context, txs []domain.FuelTransaction) error
}

// InvoiceFilter narrows an invoice listing.
type InvoiceFilter struct {
	Statuses  []string
	SortByDue bool // due_date ascending; default is created_at descending
	Limit     int
}

// InvoiceStore handles invoices.
type InvoiceStore interface {
	ListInvoices(ctx context.Context, clientID string, filter InvoiceFilter) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, clientID, invoiceID string) (*domain.Invoice, error)
	InsertInvoice(ctx context.Context, invoice *domain.Invoice) error
}

// AlertStore handles credit alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *domain.CreditAlert) error
	ListAlerts(ctx context.Context, clientID string, includeDismissed bool, limit int) ([]domain.CreditAlert, error)
	DismissAlert(ctx context.Context, clientID, alertID string) (bool, error)
}
