package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var creditTracer = otel.Tracer("service/credit")

const (
	alertCooldown         = 24 * time.Hour
	exceededAlertCooldown = 6 * time.Hour
	alertListLimit        = 50
)

// creditBand is a usage range [from, next band) that raises one alert type.
type creditBand struct {
	label    string
	from     int64
	cooldown time.Duration
	subject  string
}

// Bands are checked highest first; the first match wins.
var creditBands = []creditBand{
	{label: "100", from: 100, cooldown: exceededAlertCooldown, subject: "Limite de crédito excedido"},
	{label: "90", from: 90, cooldown: alertCooldown, subject: "Alerta crítico de crédito - 90%"},
	{label: "80", from: 80, cooldown: alertCooldown, subject: "Alerta de crédito - 80%"},
	{label: "70", from: 70, cooldown: alertCooldown, subject: "Aviso de crédito - 70%"},
}

// CreditMonitor recomputes usage from outstanding invoices and raises
// threshold alerts over the client's opted-in channels.
type CreditMonitor struct {
	clients  port.ClientStore
	invoices port.InvoiceStore
	alerts   port.AlertStore
	notifier port.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      Clock
}

// NewCreditMonitor creates a credit monitor.
func NewCreditMonitor(clients port.ClientStore, invoices port.InvoiceStore, alerts port.AlertStore, notifier port.Notifier, metrics *observability.Metrics, logger *zap.Logger) *CreditMonitor {
	return &CreditMonitor{
		clients:  clients,
		invoices: invoices,
		alerts:   alerts,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the monitor's time source.
func (m *CreditMonitor) WithClock(now Clock) *CreditMonitor {
	m.now = now
	return m
}

// Usage sums total_amount over the client's open and overdue invoices.
func (m *CreditMonitor) Usage(ctx context.Context, clientID string) (decimal.Decimal, error) {
	invoices, err := m.invoices.ListInvoices(ctx, clientID, port.InvoiceFilter{
		Statuses: []string{domain.InvoiceOpen, domain.InvoiceOverdue},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("list outstanding invoices: %w", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		if inv.Outstanding() {
			total = total.Add(decimal.NewFromFloat(inv.TotalAmount))
		}
	}
	return total.Round(2), nil
}

// CheckAndAlert recomputes and persists usage, then raises the alert for the
// matched band unless it is still cooling down. Notification failures are
// logged and never returned. It returns the alert raised, if any.
func (m *CreditMonitor) CheckAndAlert(ctx context.Context, client *domain.Client) (*domain.CreditAlert, error) {
	ctx, span := creditTracer.Start(ctx, "CreditMonitor.CheckAndAlert")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", client.ID))

	usage, err := m.Usage(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	usageF := usage.InexactFloat64()
	if err := m.clients.UpdateCreditUsage(ctx, client.ID, usageF); err != nil {
		return nil, fmt.Errorf("persist credit usage: %w", err)
	}
	client.CurrentUsage = usageF

	if client.CreditLimit <= 0 {
		return nil, nil
	}
	ratio := usageRatio(usage, client.CreditLimit)
	pct := ratio.Round(2).InexactFloat64()

	band, ok := matchBand(ratio)
	if !ok {
		return nil, nil
	}

	now := m.now().UTC()
	if last, sent := client.LastAlertSent[band.label]; sent && now.Sub(last) < band.cooldown {
		m.logger.Debug("credit alert suppressed by cooldown",
			zap.String("client_id", client.ID),
			zap.String("threshold", band.label),
			zap.Time("last_sent", last),
		)
		return nil, nil
	}

	alert := &domain.CreditAlert{
		ID:              uuid.NewString(),
		ClientID:        client.ID,
		AlertType:       band.label,
		CurrentUsage:    usageF,
		CreditLimit:     client.CreditLimit,
		UsagePercentage: pct,
		CreatedAt:       now,
	}
	if err := m.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("create credit alert: %w", err)
	}
	if err := m.clients.MarkAlertSent(ctx, client.ID, band.label, now); err != nil {
		return nil, fmt.Errorf("mark alert sent: %w", err)
	}
	if client.LastAlertSent == nil {
		client.LastAlertSent = make(map[string]time.Time)
	}
	client.LastAlertSent[band.label] = now
	m.metrics.IncrCreditAlert(band.label)

	m.logger.Info("credit alert raised",
		zap.String("client_id", client.ID),
		zap.String("threshold", band.label),
		zap.Float64("usage_percentage", pct),
	)

	m.dispatch(ctx, client, band, alert)
	return alert, nil
}

func (m *CreditMonitor) dispatch(ctx context.Context, client *domain.Client, band creditBand, alert *domain.CreditAlert) {
	msg := &domain.Notification{
		Subject: band.subject,
		Text: fmt.Sprintf("%s: uso de R$ %.2f de um limite de R$ %.2f (%.1f%%). Disponível: R$ %.2f.",
			client.CompanyName, alert.CurrentUsage, alert.CreditLimit, alert.UsagePercentage,
			max(0, alert.CreditLimit-alert.CurrentUsage)),
	}

	if client.EmailNotifications {
		if to := client.EmailContact(); to != "" {
			m.notifier.Send(ctx, domain.MethodEmail, to, msg)
		}
	}
	if client.WhatsAppNotifications {
		if to := client.WhatsAppContact(); to != "" {
			m.notifier.Send(ctx, domain.MethodWhatsApp, to, msg)
		}
	}
}

// CreditStatus reports usage against the limit, reading usage fresh from invoices.
func (m *CreditMonitor) CreditStatus(ctx context.Context, client *domain.Client) (*domain.CreditStatus, error) {
	ctx, span := creditTracer.Start(ctx, "CreditMonitor.CreditStatus")
	defer span.End()

	usage, err := m.Usage(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	return BuildCreditStatus(client.CreditLimit, usage), nil
}

// BuildCreditStatus derives the status view: critical at 100% or more,
// warning at 90% or more, normal otherwise.
func BuildCreditStatus(limit float64, usage decimal.Decimal) *domain.CreditStatus {
	ratio := decimal.Zero
	if limit > 0 {
		ratio = usageRatio(usage, limit)
	}
	available := decimal.NewFromFloat(limit).Sub(usage)
	if available.IsNegative() {
		available = decimal.Zero
	}

	status := domain.CreditNormal
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(100)):
		status = domain.CreditCritical
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(90)):
		status = domain.CreditWarning
	}

	return &domain.CreditStatus{
		CreditLimit:     limit,
		CurrentUsage:    usage.InexactFloat64(),
		AvailableCredit: available.Round(2).InexactFloat64(),
		UsagePercentage: ratio.Round(2).InexactFloat64(),
		Status:          status,
	}
}

// ListAlerts returns the client's undismissed alerts, newest first.
func (m *CreditMonitor) ListAlerts(ctx context.Context, clientID string) ([]domain.CreditAlert, error) {
	ctx, span := creditTracer.Start(ctx, "CreditMonitor.ListAlerts")
	defer span.End()

	return m.alerts.ListAlerts(ctx, clientID, false, alertListLimit)
}

// DismissAlert hides an alert from the client's list.
func (m *CreditMonitor) DismissAlert(ctx context.Context, clientID, alertID string) error {
	ctx, span := creditTracer.Start(ctx, "CreditMonitor.DismissAlert")
	defer span.End()

	ok, err := m.alerts.DismissAlert(ctx, clientID, alertID)
	if err != nil {
		return fmt.Errorf("dismiss alert: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "alert", ID: alertID}
	}
	return nil
}

func matchBand(ratio decimal.Decimal) (creditBand, bool) {
	for _, b := range creditBands {
		if ratio.GreaterThanOrEqual(decimal.NewFromInt(b.from)) {
			return b, true
		}
	}
	return creditBand{}, false
}

// usageRatio returns usage as a percentage of limit, unrounded. Bands and
// status compare against it; responses carry it rounded to two decimals.
func usageRatio(usage decimal.Decimal, limit float64) decimal.Decimal {
	return usage.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromFloat(limit))
}
