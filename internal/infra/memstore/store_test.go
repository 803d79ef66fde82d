package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateClientRejectsDuplicateCNPJ(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateClient(ctx, &domain.Client{ID: "c1", CNPJ: "12345678901234"}))
	err := s.CreateClient(ctx, &domain.Client{ID: "c2", CNPJ: "12345678901234"})

	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateClient(ctx, &domain.Client{ID: "c1", CNPJ: "1", Contacts: []domain.Contact{{ID: "x"}}}))

	got, _ := s.GetClientByID(ctx, "c1")
	got.Contacts[0].ID = "mutated"
	got.CompanyName = "mutated"

	again, _ := s.GetClientByID(ctx, "c1")
	assert.Equal(t, "x", again.Contacts[0].ID)
	assert.Empty(t, again.CompanyName)
}

func TestStore_ListTransactionsFiltersAndSorts(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertTransactions(ctx, []domain.FuelTransaction{
		{ID: "t1", ClientID: "c1", VehicleID: "v1", TransactionDate: base},
		{ID: "t2", ClientID: "c1", VehicleID: "v2", TransactionDate: base.Add(time.Hour)},
		{ID: "t3", ClientID: "c1", VehicleID: "v1", TransactionDate: base.Add(2 * time.Hour)},
		{ID: "t4", ClientID: "other", VehicleID: "v1", TransactionDate: base},
	}))

	all, err := s.ListTransactions(ctx, "c1", port.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].ID)
	assert.Equal(t, "t1", all[2].ID)

	byVehicle, _ := s.ListTransactions(ctx, "c1", port.TransactionFilter{VehicleID: "v1", Limit: 1})
	require.Len(t, byVehicle, 1)
	assert.Equal(t, "t3", byVehicle[0].ID)

	window, _ := s.ListTransactions(ctx, "c1", port.TransactionFilter{From: base, To: base.Add(2 * time.Hour)})
	assert.Len(t, window, 2)

	byIDs, _ := s.ListTransactions(ctx, "c1", port.TransactionFilter{IDs: []string{"t2", "t4"}})
	require.Len(t, byIDs, 1)
	assert.Equal(t, "t2", byIDs[0].ID)
}

func TestStore_ConsumeCodeIsSingleUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveCode(ctx, &domain.VerificationCode{CNPJ: "1", Code: "123456", ExpiresAt: now.Add(5 * time.Minute)}))

	ok, err := s.ConsumeCode(ctx, "1", "000000", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = s.ConsumeCode(ctx, "1", "123456", now)
	assert.True(t, ok)

	ok, _ = s.ConsumeCode(ctx, "1", "123456", now)
	assert.False(t, ok)
}

func TestStore_ConsumeCodeRejectsExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SaveCode(ctx, &domain.VerificationCode{CNPJ: "1", Code: "123456", ExpiresAt: now}))

	ok, _ := s.ConsumeCode(ctx, "1", "123456", now)
	assert.False(t, ok)
}
