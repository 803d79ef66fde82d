package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// ZAPIConfig configures the WhatsApp gateway.
type ZAPIConfig struct {
	BaseURL       string
	InstanceID    string
	Token         string
	SecurityToken string
	Timeout       time.Duration
}

// WhatsAppChannel posts text messages to the Z-API gateway. Calls go
// through a circuit breaker and are never retried.
type WhatsAppChannel struct {
	httpClient *http.Client
	cfg        ZAPIConfig
	cb         *gobreaker.CircuitBreaker
	codeTTL    time.Duration
}

// NewWhatsAppChannel creates the channel with its own fixed-timeout HTTP client.
func NewWhatsAppChannel(cfg ZAPIConfig, cb *gobreaker.CircuitBreaker, codeTTL time.Duration) *WhatsAppChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppChannel{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		cb:         cb,
		codeTTL:    codeTTL,
	}
}

// Name implements Channel.
func (w *WhatsAppChannel) Name() string { return domain.MethodWhatsApp }

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send implements Channel.
func (w *WhatsAppChannel) Send(ctx context.Context, to string, n *domain.Notification) error {
	ctx, span := tracer.Start(ctx, "WhatsApp.Send")
	defer span.End()

	phone := digitsOnly(to)
	span.SetAttributes(attribute.Int("phone.len", len(phone)))
	if phone == "" {
		return fmt.Errorf("no WhatsApp number")
	}

	body, err := json.Marshal(sendTextRequest{Phone: phone, Message: w.render(n)})
	if err != nil {
		return err
	}

	_, err = w.cb.Execute(func() (any, error) {
		url := fmt.Sprintf("%s/instances/%s/token/%s/send-text",
			strings.TrimRight(w.cfg.BaseURL, "/"), w.cfg.InstanceID, w.cfg.Token)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if w.cfg.SecurityToken != "" {
			req.Header.Set("Client-Token", w.cfg.SecurityToken)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("z-api returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if resilience.IsBreakerOpen(err) {
		return &domain.ErrCircuitOpen{Service: "whatsapp"}
	}
	if err != nil {
		return &domain.ErrExternalService{Service: "whatsapp", Err: err}
	}
	return nil
}

func (w *WhatsAppChannel) render(n *domain.Notification) string {
	if n.IsCode() {
		return fmt.Sprintf("*Portal de Combustível*\n\nSeu código de verificação é: *%s*\n\nVálido por %d minutos.",
			n.Code, int(w.codeTTL.Minutes()))
	}
	if n.Subject != "" {
		return fmt.Sprintf("*%s*\n\n%s", n.Subject, n.Text)
	}
	return n.Text
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
