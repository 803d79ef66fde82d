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

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type creditFixture struct {
	store    *memstore.Store
	notifier *fakeNotifier
	clock    *testClock
	monitor  *service.CreditMonitor
}

func newCreditFixture(t *testing.T) *creditFixture {
	t.Helper()
	store := memstore.New()
	notifier := newFakeNotifier(domain.MethodEmail, domain.MethodWhatsApp)
	clock := newTestClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	monitor := service.NewCreditMonitor(store, store, store, notifier, observability.NewMetrics(), zap.NewNop()).
		WithClock(clock.Now)
	return &creditFixture{store: store, notifier: notifier, clock: clock, monitor: monitor}
}

func (f *creditFixture) client(t *testing.T) *domain.Client {
	t.Helper()
	c, err := f.store.GetClientByID(context.Background(), "client-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestUsage_ExcludesPaidInvoices(t *testing.T) {
	f := newCreditFixture(t)
	created := f.clock.Now()
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 1000.10, created)
	addInvoice(t, f.store, "b", "client-1", domain.InvoiceOverdue, 500.20, created)
	addInvoice(t, f.store, "c", "client-1", domain.InvoicePaid, 9999, created)
	addInvoice(t, f.store, "d", "client-2", domain.InvoiceOpen, 300, created)

	usage, err := f.monitor.Usage(context.Background(), "client-1")
	require.NoError(t, err)
	assert.True(t, usage.Equal(decimal.RequireFromString("1500.30")), "usage = %s", usage)

	require.True(t, f.store.SetInvoiceStatus("a", domain.InvoicePaid))
	usage, err = f.monitor.Usage(context.Background(), "client-1")
	require.NoError(t, err)
	assert.True(t, usage.Equal(decimal.RequireFromString("500.20")), "usage = %s", usage)
}

func TestCheckAndAlert_NinetyPercentWarning(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store)
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 10000, f.clock.Now())
	addInvoice(t, f.store, "b", "client-1", domain.InvoiceOverdue, 3500, f.clock.Now())
	ctx := context.Background()

	client := f.client(t)
	alert, err := f.monitor.CheckAndAlert(ctx, client)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "90", alert.AlertType)
	assert.Equal(t, 90.0, alert.UsagePercentage)
	assert.Equal(t, 13500.0, alert.CurrentUsage)

	stored := f.client(t)
	assert.Equal(t, 13500.0, stored.CurrentUsage)
	assert.Equal(t, f.clock.Now(), stored.LastAlertSent["90"])

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.MethodEmail, msgs[0].method)
	assert.Contains(t, msgs[0].msg.Text, "13500.00")

	status, err := f.monitor.CreditStatus(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, domain.CreditWarning, status.Status)
	assert.Equal(t, 1500.0, status.AvailableCredit)

	alerts, err := f.monitor.ListAlerts(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)
}

func TestCheckAndAlert_Bands(t *testing.T) {
	tests := []struct {
		usage float64
		want  string
	}{
		{usage: 6999, want: ""},
		{usage: 7000, want: "70"},
		{usage: 8500, want: "80"},
		{usage: 9999.99, want: "90"},
		{usage: 10000, want: "100"},
		{usage: 25000, want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+decimal.NewFromFloat(tt.usage).String(), func(t *testing.T) {
			f := newCreditFixture(t)
			seedClient(t, f.store, func(c *domain.Client) { c.CreditLimit = 10000 })
			addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, tt.usage, f.clock.Now())

			alert, err := f.monitor.CheckAndAlert(context.Background(), f.client(t))
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, tt.want, alert.AlertType)
		})
	}
}

func TestCheckAndAlert_Cooldown(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) { c.CreditLimit = 10000 })
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 7500, f.clock.Now())
	ctx := context.Background()

	first, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	require.NotNil(t, first)

	f.clock.Advance(23 * time.Hour)
	again, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	assert.Nil(t, again)

	f.clock.Advance(time.Hour)
	again, err = f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, "70", again.AlertType)
}

func TestCheckAndAlert_ExceededCooldownIsSixHours(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) { c.CreditLimit = 10000 })
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 12000, f.clock.Now())
	ctx := context.Background()

	first, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "100", first.AlertType)

	f.clock.Advance(5*time.Hour + 59*time.Minute)
	again, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	assert.Nil(t, again)

	f.clock.Advance(time.Minute)
	again, err = f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	assert.NotNil(t, again)
}

func TestCheckAndAlert_HigherBandIgnoresLowerCooldown(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) { c.CreditLimit = 10000 })
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 7500, f.clock.Now())
	ctx := context.Background()

	_, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)

	addInvoice(t, f.store, "b", "client-1", domain.InvoiceOpen, 1500, f.clock.Now())
	alert, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "90", alert.AlertType)
}

func TestCheckAndAlert_ZeroLimitNeverAlerts(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) { c.CreditLimit = 0 })
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 500, f.clock.Now())

	alert, err := f.monitor.CheckAndAlert(context.Background(), f.client(t))
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, 500.0, f.client(t).CurrentUsage)
	assert.Empty(t, f.notifier.messages())
}

func TestCheckAndAlert_NotificationFailureIsSwallowed(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) {
		c.CreditLimit = 1000
		c.WhatsAppNotifications = true
		c.WhatsApp = "11999990000"
	})
	f.notifier.fail(domain.MethodEmail)
	f.notifier.fail(domain.MethodWhatsApp)
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 950, f.clock.Now())

	alert, err := f.monitor.CheckAndAlert(context.Background(), f.client(t))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Len(t, f.notifier.messages(), 2)
	assert.Equal(t, f.clock.Now(), f.client(t).LastAlertSent["90"])
}

func TestCheckAndAlert_RespectsOptOut(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) {
		c.CreditLimit = 1000
		c.EmailNotifications = false
	})
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 950, f.clock.Now())

	alert, err := f.monitor.CheckAndAlert(context.Background(), f.client(t))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Empty(t, f.notifier.messages())
}

func TestBuildCreditStatus(t *testing.T) {
	tests := []struct {
		name      string
		limit     float64
		usage     string
		status    string
		pct       float64
		available float64
	}{
		{"normal", 15000, "1000", domain.CreditNormal, 6.67, 14000},
		{"warning at 90", 15000, "13500", domain.CreditWarning, 90, 1500},
		{"critical at 100", 10000, "10000", domain.CreditCritical, 100, 0},
		{"over limit clamps available", 10000, "12500.50", domain.CreditCritical, 125.01, 0},
		{"no limit", 0, "300", domain.CreditNormal, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.BuildCreditStatus(tt.limit, decimal.RequireFromString(tt.usage))
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.pct, got.UsagePercentage)
			assert.Equal(t, tt.available, got.AvailableCredit)
		})
	}
}

func TestDismissAlert(t *testing.T) {
	f := newCreditFixture(t)
	seedClient(t, f.store, func(c *domain.Client) { c.CreditLimit = 1000 })
	addInvoice(t, f.store, "a", "client-1", domain.InvoiceOpen, 800, f.clock.Now())
	ctx := context.Background()

	alert, err := f.monitor.CheckAndAlert(ctx, f.client(t))
	require.NoError(t, err)
	require.NotNil(t, alert)

	var nf *domain.ErrNotFound
	assert.True(t, errors.As(f.monitor.DismissAlert(ctx, "client-2", alert.ID), &nf))

	require.NoError(t, f.monitor.DismissAlert(ctx, "client-1", alert.ID))
	alerts, err := f.monitor.ListAlerts(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
