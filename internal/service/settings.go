package service

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var settingsTracer = otel.Tracer("service/settings")

// SettingsService reads and updates a client's notification settings and
// contact list.
type SettingsService struct {
	clients port.ClientStore
	logger  *zap.Logger
}

func NewSettingsService(clients port.ClientStore, logger *zap.Logger) *SettingsService {
	return &SettingsService{clients: clients, logger: logger}
}

// Get builds the settings view of the client.
func (s *SettingsService) Get(client *domain.Client) *domain.Settings {
	contacts := client.Contacts
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return &domain.Settings{
		CompanyName:           client.CompanyName,
		Email:                 client.Email,
		Phone:                 client.Phone,
		WhatsApp:              client.WhatsApp,
		TwoFactorEnabled:      client.TwoFactorEnabled,
		EmailNotifications:    client.EmailNotifications,
		WhatsAppNotifications: client.WhatsAppNotifications,
		NotificationEmail:     client.NotificationEmail,
		NotificationWhatsApp:  client.NotificationWhatsApp,
		CreditLimit:           client.CreditLimit,
		Contacts:              contacts,
	}
}

// Update applies the non-nil fields of req and returns the stored settings.
func (s *SettingsService) Update(ctx context.Context, clientID string, req *domain.UpdateSettingsRequest) (*domain.Settings, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.Update")
	defer span.End()

	if req.NotificationEmail != nil && *req.NotificationEmail != "" {
		if _, err := mail.ParseAddress(*req.NotificationEmail); err != nil {
			return nil, &domain.ErrValidation{Field: "notification_email", Message: "invalid email address"}
		}
	}
	if req.Contacts != nil {
		contacts, err := normalizeContacts(req.Contacts)
		if err != nil {
			return nil, err
		}
		req.Contacts = contacts
	}

	if err := s.clients.UpdateSettings(ctx, clientID, req); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	s.logger.Info("settings updated", zap.String("client_id", clientID))

	client, err := s.reload(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.Get(client), nil
}

// ============================================================
// Contacts
// ============================================================

// AddContact appends a contact. The first contact of a type, or one flagged
// primary, becomes the primary of that type.
func (s *SettingsService) AddContact(ctx context.Context, client *domain.Client, req *domain.CreateContactRequest) (*domain.Contact, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.AddContact")
	defer span.End()

	c := domain.Contact{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Value:     strings.TrimSpace(req.Value),
		Label:     strings.TrimSpace(req.Label),
		IsPrimary: req.IsPrimary,
	}
	if err := validateContact(&c); err != nil {
		return nil, err
	}

	contacts := slices.Clone(client.Contacts)
	hasType := slices.ContainsFunc(contacts, func(o domain.Contact) bool { return o.Type == c.Type })
	if !hasType {
		c.IsPrimary = true
	}
	if c.IsPrimary {
		clearPrimary(contacts, c.Type)
	}
	contacts = append(contacts, c)

	if err := s.clients.SetContacts(ctx, client.ID, contacts); err != nil {
		return nil, fmt.Errorf("save contacts: %w", err)
	}
	client.Contacts = contacts
	return &c, nil
}

// DeleteContact removes a contact. When it was primary the next contact of
// the same type is promoted.
func (s *SettingsService) DeleteContact(ctx context.Context, client *domain.Client, contactID string) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.DeleteContact")
	defer span.End()

	idx := slices.IndexFunc(client.Contacts, func(c domain.Contact) bool { return c.ID == contactID })
	if idx < 0 {
		return &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	removed := client.Contacts[idx]
	contacts := slices.Delete(slices.Clone(client.Contacts), idx, idx+1)
	if removed.IsPrimary {
		for i := range contacts {
			if contacts[i].Type == removed.Type {
				contacts[i].IsPrimary = true
				break
			}
		}
	}

	if err := s.clients.SetContacts(ctx, client.ID, contacts); err != nil {
		return fmt.Errorf("save contacts: %w", err)
	}
	client.Contacts = contacts
	return nil
}

// SetPrimaryContact makes the contact the only primary of its type.
func (s *SettingsService) SetPrimaryContact(ctx context.Context, client *domain.Client, contactID string) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.SetPrimaryContact")
	defer span.End()

	contacts := slices.Clone(client.Contacts)
	idx := slices.IndexFunc(contacts, func(c domain.Contact) bool { return c.ID == contactID })
	if idx < 0 {
		return &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	clearPrimary(contacts, contacts[idx].Type)
	contacts[idx].IsPrimary = true

	if err := s.clients.SetContacts(ctx, client.ID, contacts); err != nil {
		return fmt.Errorf("save contacts: %w", err)
	}
	client.Contacts = contacts
	return nil
}

func (s *SettingsService) reload(ctx context.Context, clientID string) (*domain.Client, error) {
	client, err := s.clients.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, &domain.ErrNotFound{Resource: "client", ID: clientID}
	}
	return client, nil
}

func clearPrimary(contacts []domain.Contact, kind string) {
	for i := range contacts {
		if contacts[i].Type == kind {
			contacts[i].IsPrimary = false
		}
	}
}

func validateContact(c *domain.Contact) error {
	switch c.Type {
	case domain.ContactEmail:
		if _, err := mail.ParseAddress(c.Value); err != nil {
			return &domain.ErrValidation{Field: "value", Message: "invalid email address"}
		}
	case domain.ContactPhone, domain.ContactWhatsApp:
		if len(digitsIn(c.Value)) < 10 {
			return &domain.ErrValidation{Field: "value", Message: "phone number must have at least 10 digits"}
		}
	default:
		return &domain.ErrValidation{Field: "type", Message: "type must be email, phone or whatsapp"}
	}
	return nil
}

// normalizeContacts validates a full contact list, assigns missing ids and
// keeps at most one primary per type (the first flagged one).
func normalizeContacts(in []domain.Contact) ([]domain.Contact, error) {
	out := make([]domain.Contact, 0, len(in))
	seenPrimary := make(map[string]bool)
	for _, c := range in {
		c.Value = strings.TrimSpace(c.Value)
		if err := validateContact(&c); err != nil {
			return nil, err
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.IsPrimary {
			if seenPrimary[c.Type] {
				c.IsPrimary = false
			}
			seenPrimary[c.Type] = true
		}
		out = append(out, c)
	}
	return out, nil
}
