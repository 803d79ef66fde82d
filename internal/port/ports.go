// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations (MongoDB, Redis, SMTP, WhatsApp).
package port

import (
	"context"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ClientStore holds client accounts. Lookups return (nil, nil) when the
// client does not exist.
type ClientStore interface {
	GetClientByID(ctx context.Context, clientID string) (*domain.Client, error)
	GetClientByCNPJ(ctx context.Context, cnpj string) (*domain.Client, error)
	CreateClient(ctx context.Context, client *domain.Client) error
	UpdatePassword(ctx context.Context, clientID, passwordHash string) error
	UpdateCreditUsage(ctx context.Context, clientID string, usage float64) error
	MarkAlertSent(ctx context.Context, clientID, threshold string, at time.Time) error
	UpdateSettings(ctx context.Context, clientID string, req *domain.UpdateSettingsRequest) error
	SetContacts(ctx context.Context, clientID string, contacts []domain.Contact) error
}

// Store is the full document store used by the services.
type Store interface {
	ClientStore
	VehicleStore
	LimitStore
	TransactionStore
	InvoiceStore
	AlertStore

	Ping(ctx context.Context) error
}

// CodeStore holds live verification codes, at most one per CNPJ.
type CodeStore interface {
	// SaveCode stores the code, superseding any previous code for the same CNPJ.
	SaveCode(ctx context.Context, code *domain.VerificationCode) error
	// ConsumeCode atomically removes the code if it matches and has not
	// expired at now. It reports whether a code was consumed.
	ConsumeCode(ctx context.Context, cnpj, code string, now time.Time) (bool, error)
	// DeleteCodes removes any code held for the CNPJ.
	DeleteCodes(ctx context.Context, cnpj string) error
}

// Notifier delivers verification codes and alerts. Send never returns an
// error: delivery is best-effort and the caller only learns success or failure.
type Notifier interface {
	Configured(method string) bool
	Send(ctx context.Context, method, to string, msg *domain.Notification) bool
}
