// Package notify delivers verification codes and credit alerts over email
// (SMTP) and WhatsApp (Z-API gateway).
package notify

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"

	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("notify")

var (
	codeTemplate = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>Portal de Combustível</h2>
<p>Seu código de verificação é:</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:6px">
{{.Code}}
</p>
<p>O código expira em {{.Minutes}} minutos. Se você não solicitou este acesso, ignore esta mensagem.</p>
</body></html>`))

	alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>{{.Subject}}</h2>
<p>{{.Text}}</p>
</body></html>`))
)

// SMTPConfig configures the email channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// mailSender is the slice of *mail.Client the channel needs.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// EmailChannel renders HTML messages and sends them over SMTP.
type EmailChannel struct {
	sender  mailSender
	from    string
	codeTTL time.Duration
}

// NewEmailChannel builds an SMTP client. STARTTLS is used when the server offers it.
func NewEmailChannel(cfg SMTPConfig, codeTTL time.Duration) (*EmailChannel, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return newEmailChannel(client, cfg.From, codeTTL), nil
}

func newEmailChannel(sender mailSender, from string, codeTTL time.Duration) *EmailChannel {
	return &EmailChannel{sender: sender, from: from, codeTTL: codeTTL}
}

// Name implements Channel.
func (e *EmailChannel) Name() string { return domain.MethodEmail }

// Send implements Channel.
func (e *EmailChannel) Send(ctx context.Context, to string, n *domain.Notification) error {
	ctx, span := tracer.Start(ctx, "Email.Send")
	defer span.End()

	msg, err := e.buildMessage(to, n)
	if err != nil {
		return err
	}
	if err := e.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (e *EmailChannel) buildMessage(to string, n *domain.Notification) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.from, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	if n.IsCode() {
		m.Subject("Código de verificação - Portal de Combustível")
		data := struct {
			Code    string
			Minutes int
		}{n.Code, int(e.codeTTL.Minutes())}
		if err := m.SetBodyHTMLTemplate(codeTemplate, data); err != nil {
			return nil, fmt.Errorf("render code email: %w", err)
		}
		return m, nil
	}

	subject := n.Subject
	if subject == "" {
		subject = "Portal de Combustível"
	}
	m.Subject(subject)
	if err := m.SetBodyHTMLTemplate(alertTemplate, struct{ Subject, Text string }{subject, n.Text}); err != nil {
		return nil, fmt.Errorf("render alert email: %w", err)
	}
	m.AddAlternativeString(mail.TypeTextPlain, n.Text)
	return m, nil
}
