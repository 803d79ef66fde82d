package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRecords(t *testing.T) (*service.RecordsService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	monitor := service.NewCreditMonitor(store, store, store, newFakeNotifier(), observability.NewMetrics(), zap.NewNop())
	return service.NewRecordsService(store, store, store, monitor, zap.NewNop()), store
}

func TestInvoiceDetails_ExplicitTransactionIDs(t *testing.T) {
	svc, store := newRecords(t)
	ctx := context.Background()
	march := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	addTransaction(t, store, "tx-1", "client-1", "v1", domain.FuelDiesel, 40, march)
	addTransaction(t, store, "tx-2", "client-1", "v1", domain.FuelDiesel, 10.5, march.AddDate(0, 1, 0))
	addTransaction(t, store, "tx-3", "client-1", "v1", domain.FuelDiesel, 99, march)
	require.NoError(t, store.InsertInvoice(ctx, &domain.Invoice{
		ID: "inv-1", ClientID: "client-1", InvoiceNumber: "INV-1", TotalAmount: 252.5,
		Status: domain.InvoiceOpen, TransactionIDs: []string{"tx-1", "tx-2"}, CreatedAt: march,
	}))

	details, err := svc.InvoiceDetails(ctx, "client-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, details.TransactionCount)
	assert.Equal(t, 50.5, details.TotalLiters)
	assert.Equal(t, "tx-2", details.Transactions[0].ID)
}

func TestInvoiceDetails_FallsBackToCreationMonth(t *testing.T) {
	svc, store := newRecords(t)
	ctx := context.Background()

	addTransaction(t, store, "feb", "client-1", "v1", domain.FuelDiesel, 10, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC))
	addTransaction(t, store, "mar-1", "client-1", "v1", domain.FuelDiesel, 20, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	addTransaction(t, store, "mar-31", "client-1", "v1", domain.FuelEthanol, 30, time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC))
	addTransaction(t, store, "apr", "client-1", "v1", domain.FuelDiesel, 40, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	addTransaction(t, store, "other", "client-2", "v9", domain.FuelDiesel, 50, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	addInvoice(t, store, "inv-1", "client-1", domain.InvoiceOpen, 250, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))

	details, err := svc.InvoiceDetails(ctx, "client-1", "inv-1")
	require.NoError(t, err)
	ids := []string{}
	for _, tx := range details.Transactions {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"mar-31", "mar-1"}, ids)
	assert.Equal(t, 50.0, details.TotalLiters)
}

func TestInvoice_OtherClientIsNotFound(t *testing.T) {
	svc, store := newRecords(t)
	addInvoice(t, store, "inv-1", "client-1", domain.InvoiceOpen, 250, time.Now())

	_, err := svc.GetInvoice(context.Background(), "client-2", "inv-1")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	_, err = svc.InvoiceDetails(context.Background(), "client-2", "inv-1")
	assert.True(t, errors.As(err, &nf))
}

func TestListOpenInvoices_SortedByDueAndUpdatesUsage(t *testing.T) {
	svc, store := newRecords(t)
	ctx := context.Background()
	client := seedClient(t, store)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertInvoice(ctx, &domain.Invoice{ID: "late", ClientID: client.ID, TotalAmount: 100, Status: domain.InvoiceOpen, DueDate: base.AddDate(0, 0, 30), CreatedAt: base}))
	require.NoError(t, store.InsertInvoice(ctx, &domain.Invoice{ID: "soon", ClientID: client.ID, TotalAmount: 200, Status: domain.InvoiceOverdue, DueDate: base.AddDate(0, 0, 1), CreatedAt: base}))
	require.NoError(t, store.InsertInvoice(ctx, &domain.Invoice{ID: "paid", ClientID: client.ID, TotalAmount: 300, Status: domain.InvoicePaid, DueDate: base, CreatedAt: base}))

	invoices, err := svc.ListOpenInvoices(ctx, client)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "soon", invoices[0].ID)
	assert.Equal(t, "late", invoices[1].ID)

	stored, err := store.GetClientByID(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, stored.CurrentUsage)

	all, err := svc.ListInvoices(ctx, client)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTransactions_ScopedToClientAndVehicle(t *testing.T) {
	svc, store := newRecords(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateVehicle(ctx, &domain.Vehicle{ID: "v1", ClientID: "client-1", LicensePlate: "ABC1234", IsActive: true}))
	addTransaction(t, store, "tx-1", "client-1", "v1", domain.FuelDiesel, 40, now)
	addTransaction(t, store, "tx-2", "client-1", "v2", domain.FuelDiesel, 40, now.Add(time.Hour))
	addTransaction(t, store, "tx-3", "client-2", "v1", domain.FuelDiesel, 40, now)

	all, err := svc.ListTransactions(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tx-2", all[0].ID)
	for _, tx := range all {
		assert.True(t, tx.TotalConsistent())
	}

	byVehicle, err := svc.ListVehicleTransactions(ctx, "client-1", "v1")
	require.NoError(t, err)
	require.Len(t, byVehicle, 1)
	assert.Equal(t, "tx-1", byVehicle[0].ID)

	_, err = svc.ListVehicleTransactions(ctx, "client-2", "v1")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	_, err = svc.GetTransaction(ctx, "client-2", "tx-1")
	assert.True(t, errors.As(err, &nf))
}
