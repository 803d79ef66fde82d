package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type sentMessage struct {
	method string
	to     string
	msg    domain.Notification
}

type fakeNotifier struct {
	mu         sync.Mutex
	configured map[string]bool
	failing    map[string]bool
	sent       []sentMessage
}

func newFakeNotifier(methods ...string) *fakeNotifier {
	n := &fakeNotifier{configured: map[string]bool{}, failing: map[string]bool{}}
	for _, m := range methods {
		n.configured[m] = true
	}
	return n
}

func (n *fakeNotifier) Configured(method string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.configured[method]
}

func (n *fakeNotifier) Send(_ context.Context, method, to string, msg *domain.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.configured[method] {
		return false
	}
	n.sent = append(n.sent, sentMessage{method: method, to: to, msg: *msg})
	return !n.failing[method]
}

func (n *fakeNotifier) fail(method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[method] = true
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func (n *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	msgs := n.messages()
	require.NotEmpty(t, msgs, "no notification sent")
	code := msgs[len(msgs)-1].msg.Code
	require.Len(t, code, 6)
	return code
}

// --- Clock ---

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Fixtures ---

const (
	testCNPJ     = "11222333000181"
	testPassword = "s3cret!"
)

var (
	hashOnce sync.Once
	testHash string
)

func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := service.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testHash = h
	})
	return testHash
}

func seedClient(t *testing.T, store *memstore.Store, mutate ...func(c *domain.Client)) *domain.Client {
	t.Helper()
	c := &domain.Client{
		ID:                 "client-1",
		CNPJ:               testCNPJ,
		CompanyName:        "Transportes Teste Ltda",
		Email:              "frota@teste.com.br",
		Phone:              "11988887777",
		PasswordHash:       passwordHash(t),
		IsActive:           true,
		EmailNotifications: true,
		CreditLimit:        15000,
		CreatedAt:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, store.CreateClient(context.Background(), c))
	return c
}

func addInvoice(t *testing.T, store *memstore.Store, id, clientID, status string, amount float64, created time.Time) {
	t.Helper()
	require.NoError(t, store.InsertInvoice(context.Background(), &domain.Invoice{
		ID:             id,
		ClientID:       clientID,
		InvoiceNumber:  "INV-" + id,
		TotalAmount:    amount,
		DueDate:        created.AddDate(0, 0, 15),
		Status:         status,
		TransactionIDs: []string{},
		CreatedAt:      created,
	}))
}

func addTransaction(t *testing.T, store *memstore.Store, id, clientID, vehicleID, fuel string, liters float64, at time.Time) {
	t.Helper()
	require.NoError(t, store.InsertTransactions(context.Background(), []domain.FuelTransaction{{
		ID:              id,
		ClientID:        clientID,
		VehicleID:       vehicleID,
		LicensePlate:    "ABC1234",
		FuelType:        fuel,
		Liters:          liters,
		PricePerLiter:   5,
		TotalAmount:     liters * 5,
		StationID:       "station_001",
		StationName:     "Posto Teste",
		TransactionDate: at,
		Status:          domain.TxCompleted,
	}}))
}
