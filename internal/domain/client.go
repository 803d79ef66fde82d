// Package domain defines the core business entities of the fuel portal.
// These models are independent of the document store and represent the
// canonical data structures used throughout the service layer.
package domain

import "time"

// ============================================================
// Client / Contacts
// ============================================================

// Contact types accepted in the client's contact list.
const (
	ContactEmail    = "email"
	ContactPhone    = "phone"
	ContactWhatsApp = "whatsapp"
)

// Contact is an additional email/phone/WhatsApp contact of a client.
type Contact struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // email, phone, whatsapp
	Value     string `json:"value"`
	Label     string `json:"label,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// Client is a corporate fleet account, keyed by its CNPJ.
type Client struct {
	ID           string    `json:"id"`
	CNPJ         string    `json:"cnpj"` // 14 digits, no punctuation
	CompanyName  string    `json:"company_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	WhatsApp     string    `json:"whatsapp,omitempty"`
	Contacts     []Contact `json:"contacts"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`

	TwoFactorEnabled      bool   `json:"two_factor_enabled"`
	EmailNotifications    bool   `json:"email_notifications"`
	WhatsAppNotifications bool   `json:"whatsapp_notifications"`
	NotificationEmail     string `json:"notification_email,omitempty"`
	NotificationWhatsApp  string `json:"notification_whatsapp,omitempty"`

	CreditLimit   float64              `json:"credit_limit"`
	CurrentUsage  float64              `json:"current_usage"`
	LastAlertSent map[string]time.Time `json:"last_alert_sent,omitempty"` // threshold label -> last send

	CreatedAt time.Time `json:"created_at"`
}

// WhatsAppContact returns the number used for WhatsApp delivery, if any.
// The explicit notification number wins, then the primary WhatsApp contact,
// then the legacy whatsapp field.
func (c *Client) WhatsAppContact() string {
	if c.NotificationWhatsApp != "" {
		return c.NotificationWhatsApp
	}
	if v := c.primaryContact(ContactWhatsApp); v != "" {
		return v
	}
	return c.WhatsApp
}

// EmailContact returns the address used for email delivery.
func (c *Client) EmailContact() string {
	if c.NotificationEmail != "" {
		return c.NotificationEmail
	}
	if v := c.primaryContact(ContactEmail); v != "" {
		return v
	}
	return c.Email
}

func (c *Client) primaryContact(kind string) string {
	first := ""
	for _, ct := range c.Contacts {
		if ct.Type != kind {
			continue
		}
		if ct.IsPrimary {
			return ct.Value
		}
		if first == "" {
			first = ct.Value
		}
	}
	return first
}

// ClientSummary is the public view of a client returned with session tokens.
type ClientSummary struct {
	ID          string `json:"id"`
	CNPJ        string `json:"cnpj"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
}

// Summary builds the token-response view of the client.
func (c *Client) Summary() ClientSummary {
	return ClientSummary{
		ID:          c.ID,
		CNPJ:        c.CNPJ,
		CompanyName: c.CompanyName,
		Email:       c.Email,
	}
}

// NewClientRequest is used by the admin CLI and the seed endpoint to create a client.
type NewClientRequest struct {
	CNPJ        string  `json:"cnpj"`
	CompanyName string  `json:"company_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	WhatsApp    string  `json:"whatsapp,omitempty"`
	Password    string  `json:"password"`
	CreditLimit float64 `json:"credit_limit"`
}

// ============================================================
// Settings
// ============================================================

// Settings is the body of GET /api/settings.
type Settings struct {
	CompanyName           string    `json:"company_name"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone"`
	WhatsApp              string    `json:"whatsapp,omitempty"`
	TwoFactorEnabled      bool      `json:"two_factor_enabled"`
	EmailNotifications    bool      `json:"email_notifications"`
	WhatsAppNotifications bool      `json:"whatsapp_notifications"`
	NotificationEmail     string    `json:"notification_email,omitempty"`
	NotificationWhatsApp  string    `json:"notification_whatsapp,omitempty"`
	CreditLimit           float64   `json:"credit_limit"`
	Contacts              []Contact `json:"contacts"`
}

// UpdateSettingsRequest is the body of PUT /api/settings. Nil fields are left untouched.
type UpdateSettingsRequest struct {
	TwoFactorEnabled      *bool     `json:"two_factor_enabled,omitempty"`
	EmailNotifications    *bool     `json:"email_notifications,omitempty"`
	WhatsAppNotifications *bool     `json:"whatsapp_notifications,omitempty"`
	NotificationEmail     *string   `json:"notification_email,omitempty"`
	NotificationWhatsApp  *string   `json:"notification_whatsapp,omitempty"`
	Contacts              []Contact `json:"contacts,omitempty"`
}

// CreateContactRequest is the body of POST /api/contacts.
type CreateContactRequest struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Label     string `json:"label,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// ContactResponse wraps a created contact.
type ContactResponse struct {
	Message string  `json:"message"`
	Contact Contact `json:"contact"`
}
