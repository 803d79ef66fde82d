package notify

import (
	"context"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"go.uber.org/zap"
)

var _ port.Notifier = (*Dispatcher)(nil)

// Channel is a single delivery transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, to string, n *domain.Notification) error
}

// Dispatcher routes notifications to the configured channels. Failures are
// logged and counted, never returned.
type Dispatcher struct {
	channels map[string]Channel
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDispatcher registers the given channels. Nil channels are skipped, so
// callers can pass an unconfigured transport as nil.
func NewDispatcher(bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger, channels ...Channel) *Dispatcher {
	d := &Dispatcher{
		channels: make(map[string]Channel),
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
	}
	for _, ch := range channels {
		if ch != nil {
			d.channels[ch.Name()] = ch
		}
	}
	return d
}

// Configured reports whether a transport exists for method.
func (d *Dispatcher) Configured(method string) bool {
	_, ok := d.channels[method]
	return ok
}

// Send delivers n to the recipient over method and reports success.
func (d *Dispatcher) Send(ctx context.Context, method, to string, n *domain.Notification) bool {
	ch, ok := d.channels[method]
	if !ok {
		d.logger.Warn("notification channel not configured", zap.String("method", method))
		return false
	}
	if to == "" {
		d.logger.Warn("notification has no recipient", zap.String("method", method))
		d.metrics.IncrNotification(method, false)
		return false
	}

	err := d.bulkhead.Do(ctx, func() error {
		return ch.Send(ctx, to, n)
	})
	d.metrics.IncrNotification(method, err == nil)
	if err != nil {
		d.metrics.IncrExternalError(method)
		d.logger.Error("notification delivery failed",
			zap.String("method", method),
			zap.Bool("is_code", n.IsCode()),
			zap.Error(err),
		)
		return false
	}

	d.logger.Info("notification delivered",
		zap.String("method", method),
		zap.Bool("is_code", n.IsCode()),
	)
	return true
}
