package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeed_CreatesDemoDataOnce(t *testing.T) {
	store := memstore.New()
	svc := service.NewSeedService(store, zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Test data created successfully", resp.Message)
	assert.Equal(t, 2, resp.Vehicles)
	assert.Equal(t, 20, resp.Transactions)

	client, err := store.GetClientByCNPJ(ctx, service.SeedCNPJ)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "Transportadora ABC Ltda", client.CompanyName)
	assert.True(t, service.VerifyPassword(service.SeedPassword, client.PasswordHash))

	txs, err := store.ListTransactions(ctx, client.ID, port.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 20)
	for _, tx := range txs {
		assert.True(t, tx.TotalConsistent(), "tx %s: %.2f != %.2f * %.2f", tx.ID, tx.TotalAmount, tx.Liters, tx.PricePerLiter)
		assert.GreaterOrEqual(t, tx.Liters, 30.0)
		assert.LessOrEqual(t, tx.Liters, 80.0)
	}

	invoices, err := store.ListInvoices(ctx, client.ID, port.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-2024-001", invoices[0].InvoiceNumber)
	assert.Equal(t, domain.InvoiceOpen, invoices[0].Status)

	again, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Test data already exists", again.Message)
	vehicles, err := store.ListActiveVehicles(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)
}

func TestCreateClient_RejectsDuplicateAndBadInput(t *testing.T) {
	store := memstore.New()
	svc := service.NewSeedService(store, zap.NewNop())
	ctx := context.Background()

	req := &domain.NewClientRequest{CNPJ: "11.222.333/0001-81", CompanyName: "ACME", Email: "a@acme.com", Password: "secret1"}
	client, err := svc.CreateClient(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", client.CNPJ)
	assert.Equal(t, 15000.0, client.CreditLimit)

	_, err = svc.CreateClient(ctx, req)
	var conflict *domain.ErrConflict
	assert.True(t, errors.As(err, &conflict))

	_, err = svc.CreateClient(ctx, &domain.NewClientRequest{CNPJ: "123", CompanyName: "X", Password: "secret1"})
	var ve *domain.ErrValidation
	assert.True(t, errors.As(err, &ve))
}
