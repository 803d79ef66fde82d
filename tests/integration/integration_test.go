package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/handler"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/cache"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/notify"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/redisstore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inbox is an email channel that keeps what it was asked to deliver.
type inbox struct {
	mu   sync.Mutex
	sent map[string][]*domain.Notification
}

func (i *inbox) Name() string { return domain.MethodEmail }

func (i *inbox) Send(_ context.Context, to string, n *domain.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sent == nil {
		i.sent = make(map[string][]*domain.Notification)
	}
	i.sent[to] = append(i.sent[to], n)
	return nil
}

func (i *inbox) lastCode(to string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	for k := len(i.sent[to]) - 1; k >= 0; k-- {
		if i.sent[to][k].IsCode() {
			return i.sent[to][k].Code
		}
	}
	return ""
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) call(method, path string, body, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// TestIntegration_FullFlow seeds the demo account, logs in through the
// two-factor flow and walks the portal's read and write endpoints.
func TestIntegration_FullFlow(t *testing.T) {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	codes := redisstore.New(rdb)

	store := memstore.New()
	mail := &inbox{}
	notifier := notify.NewDispatcher(resilience.NewBulkhead(8), metrics, logger, mail)

	dashboardCache := cache.New[*domain.DashboardStats](time.Minute)
	t.Cleanup(dashboardCache.Close)

	monitor := service.NewCreditMonitor(store, store, store, notifier, metrics, logger)
	router := handler.NewRouter(handler.Services{
		Auth:      service.NewAuthService(store, codes, notifier, service.NewTokenIssuer("integration-secret", time.Hour), metrics, logger),
		Fleet:     service.NewFleetService(store, store, dashboardCache, logger),
		Records:   service.NewRecordsService(store, store, store, monitor, logger),
		Credit:    monitor,
		Dashboard: service.NewDashboardService(store, store, store, dashboardCache, metrics, logger),
		Settings:  service.NewSettingsService(store, logger),
		Seed:      service.NewSeedService(store, logger),
		Store:     store,
	}, handler.Options{DevRoutes: true}, metrics, logger)

	srv := httptest.NewServer(router)
	defer srv.Close()

	api := &apiClient{t: t, base: srv.URL}

	// --- Seed ---
	var seeded domain.SeedResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/create-test-data", nil, &seeded))
	assert.Equal(t, "Test data created successfully", seeded.Message)

	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/create-test-data", nil, &seeded))
	assert.Equal(t, "Test data already exists", seeded.Message)

	// --- Login: email transport is configured, so 2FA is required ---
	creds := map[string]string{"taxId": "12.345.678/9012-34", "password": service.SeedPassword}

	var login domain.LoginResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/login", creds, &login))
	assert.True(t, login.Requires2FA)
	assert.Empty(t, login.AccessToken)
	assert.Contains(t, login.AvailableMethods, domain.MethodEmail)

	var sent domain.RequestCodeResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/request-2fa", map[string]string{
		"taxId": creds["taxId"], "password": creds["password"], "method": domain.MethodEmail,
	}, &sent))
	assert.Equal(t, domain.MethodEmail, sent.Method)

	code := mail.lastCode("admin@transportadoraabc.com")
	require.Len(t, code, 6)

	assert.Equal(t, http.StatusUnauthorized, api.call(http.MethodPost, "/api/auth/verify-2fa",
		map[string]string{"taxId": service.SeedCNPJ, "code": "000000x"}, nil))

	var verified domain.LoginResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/verify-2fa",
		map[string]string{"taxId": service.SeedCNPJ, "code": code}, &verified))
	require.NotEmpty(t, verified.AccessToken)
	assert.Equal(t, service.SeedCNPJ, verified.Client.CNPJ)

	// codes are single use
	assert.Equal(t, http.StatusUnauthorized, api.call(http.MethodPost, "/api/auth/verify-2fa",
		map[string]string{"taxId": service.SeedCNPJ, "code": code}, nil))

	api.token = verified.AccessToken

	// --- Fleet ---
	var vehicles []domain.Vehicle
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/vehicles", nil, &vehicles))
	require.Len(t, vehicles, 2)

	var vehicleTxs []domain.FuelTransaction
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/transactions/vehicle/"+vehicles[0].ID, nil, &vehicleTxs))
	for _, tx := range vehicleTxs {
		assert.Equal(t, vehicles[0].ID, tx.VehicleID)
	}

	var limit domain.Limit
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/limits", domain.LimitRequest{
		VehicleID: vehicles[0].ID, LimitType: domain.LimitMonthly, LimitValue: 500, LimitUnit: domain.UnitLiters,
	}, &limit))
	assert.True(t, limit.IsActive)
	assert.True(t, limit.ResetDate.After(time.Now()))

	var limits []domain.Limit
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/limits", nil, &limits))
	assert.Len(t, limits, 1)

	// --- Records ---
	var txs []domain.FuelTransaction
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/transactions", nil, &txs))
	assert.Len(t, txs, 20)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].TransactionDate.After(txs[i-1].TransactionDate), "transactions must be newest first")
	}

	var invoices []domain.Invoice
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/invoices", nil, &invoices))
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-2024-001", invoices[0].InvoiceNumber)

	var details domain.InvoiceDetails
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/invoices/"+invoices[0].ID+"/details", nil, &details))
	assert.Equal(t, invoices[0].ID, details.Invoice.ID)
	assert.Equal(t, len(details.Transactions), details.TransactionCount)

	// --- Credit ---
	var status domain.CreditStatus
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/credit-status", nil, &status))
	assert.Equal(t, 15000.0, status.CreditLimit)
	assert.Equal(t, 2850.75, status.CurrentUsage)
	assert.Equal(t, 19.01, status.UsagePercentage)
	assert.Equal(t, domain.CreditNormal, status.Status)

	var alerts []domain.CreditAlert
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/credit-alerts", nil, &alerts))
	assert.Empty(t, alerts)

	// --- Dashboard ---
	var stats domain.DashboardStats
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/dashboard/stats", nil, &stats))
	assert.Equal(t, 2, stats.VehiclesCount)
	assert.Equal(t, 1, stats.OpenInvoicesCount)
	assert.Equal(t, 2850.75, stats.TotalOpenAmount)
	assert.LessOrEqual(t, len(stats.RecentTransactions), 10)

	// --- Settings & contacts ---
	enabled := true
	var settings domain.Settings
	require.Equal(t, http.StatusOK, api.call(http.MethodPut, "/api/settings", domain.UpdateSettingsRequest{
		WhatsAppNotifications: &enabled,
	}, &settings))
	assert.True(t, settings.WhatsAppNotifications)

	var added domain.ContactResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/contacts", domain.CreateContactRequest{
		Type: domain.ContactEmail, Value: "financeiro@transportadoraabc.com", Label: "Financeiro",
	}, &added))
	assert.True(t, added.Contact.IsPrimary)

	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/settings", nil, &settings))
	require.Len(t, settings.Contacts, 1)
	assert.Equal(t, added.Contact.ID, settings.Contacts[0].ID)

	require.Equal(t, http.StatusOK, api.call(http.MethodDelete, "/api/contacts/"+added.Contact.ID, nil, nil))
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/settings", nil, &settings))
	assert.Empty(t, settings.Contacts)

	// --- Password change invalidates the old password ---
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/change-password", domain.ChangePasswordRequest{
		CurrentPassword: service.SeedPassword, NewPassword: "n3w-s3cret",
	}, nil))
	api.token = ""
	assert.Equal(t, http.StatusUnauthorized, api.call(http.MethodPost, "/api/auth/login-dev", creds, nil))
	assert.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/login-dev",
		map[string]string{"taxId": service.SeedCNPJ, "password": "n3w-s3cret"}, nil))
}
