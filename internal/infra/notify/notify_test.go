package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ============================================================
// Email
// ============================================================

type captureSender struct {
	msgs []*mail.Msg
	err  error
}

func (c *captureSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func TestEmailChannel_RendersCode(t *testing.T) {
	sender := &captureSender{}
	ch := newEmailChannel(sender, "portal@fuel.test", 5*time.Minute)

	err := ch.Send(context.Background(), "ops@client.test", &domain.Notification{Code: "482913"})
	require.NoError(t, err)
	require.Len(t, sender.msgs, 1)

	var buf bytes.Buffer
	_, err = sender.msgs[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "482913")
	assert.Contains(t, buf.String(), "ops@client.test")
}

func TestEmailChannel_RejectsBadRecipient(t *testing.T) {
	ch := newEmailChannel(&captureSender{}, "portal@fuel.test", 5*time.Minute)

	err := ch.Send(context.Background(), "not an address", &domain.Notification{Text: "hi"})
	assert.Error(t, err)
}

func TestEmailChannel_PropagatesTransportError(t *testing.T) {
	ch := newEmailChannel(&captureSender{err: errors.New("connection refused")}, "portal@fuel.test", 5*time.Minute)

	err := ch.Send(context.Background(), "ops@client.test", &domain.Notification{Subject: "Alerta", Text: "90%"})
	assert.ErrorContains(t, err, "connection refused")
}

// ============================================================
// WhatsApp
// ============================================================

func TestWhatsAppChannel_PostsToGateway(t *testing.T) {
	var got sendTextRequest
	var path, clientToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		clientToken = r.Header.Get("Client-Token")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messageId":"abc"}`))
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(ZAPIConfig{
		BaseURL:       srv.URL,
		InstanceID:    "inst1",
		Token:         "tok1",
		SecurityToken: "sec1",
	}, resilience.NewCircuitBreaker("whatsapp-test", zap.NewNop()), 5*time.Minute)

	err := ch.Send(context.Background(), "+55 (11) 99999-0000", &domain.Notification{Code: "123456"})
	require.NoError(t, err)

	assert.Equal(t, "/instances/inst1/token/tok1/send-text", path)
	assert.Equal(t, "sec1", clientToken)
	assert.Equal(t, "5511999990000", got.Phone)
	assert.Contains(t, got.Message, "123456")
}

func TestWhatsAppChannel_Non2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(ZAPIConfig{BaseURL: srv.URL, InstanceID: "i", Token: "t"},
		resilience.NewCircuitBreaker("whatsapp-test", zap.NewNop()), 5*time.Minute)

	err := ch.Send(context.Background(), "5511999990000", &domain.Notification{Text: "alerta"})

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
}

// ============================================================
// Dispatcher
// ============================================================

type fakeChannel struct {
	name string
	err  error
	sent []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, to string, _ *domain.Notification) error {
	f.sent = append(f.sent, to)
	return f.err
}

func TestDispatcher_RoutesAndCounts(t *testing.T) {
	metrics := observability.NewMetrics()
	email := &fakeChannel{name: domain.MethodEmail}
	wa := &fakeChannel{name: domain.MethodWhatsApp, err: errors.New("gateway down")}
	d := NewDispatcher(resilience.NewBulkhead(4), metrics, zap.NewNop(), email, wa)

	assert.True(t, d.Configured(domain.MethodEmail))
	assert.True(t, d.Configured(domain.MethodWhatsApp))

	ok := d.Send(context.Background(), domain.MethodEmail, "a@b.test", &domain.Notification{Code: "1"})
	assert.True(t, ok)
	ok = d.Send(context.Background(), domain.MethodWhatsApp, "5511", &domain.Notification{Code: "1"})
	assert.False(t, ok)

	snap := metrics.NotificationSnapshot()
	assert.Equal(t, int64(1), snap.EmailSent)
	assert.Equal(t, int64(1), snap.WhatsAppFailed)
	assert.InDelta(t, 0.5, snap.FailureRate, 1e-9)
}

func TestDispatcher_UnconfiguredMethod(t *testing.T) {
	d := NewDispatcher(resilience.NewBulkhead(1), observability.NewMetrics(), zap.NewNop())

	assert.False(t, d.Configured(domain.MethodWhatsApp))
	assert.False(t, d.Send(context.Background(), domain.MethodWhatsApp, "5511", &domain.Notification{Text: "x"}))
}

func TestDispatcher_EmptyRecipientFails(t *testing.T) {
	email := &fakeChannel{name: domain.MethodEmail}
	d := NewDispatcher(resilience.NewBulkhead(1), observability.NewMetrics(), zap.NewNop(), email)

	assert.False(t, d.Send(context.Background(), domain.MethodEmail, "", &domain.Notification{Code: "1"}))
	assert.Empty(t, email.sent)
}
