package mongostore

import (
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
)

// Documents carry their own string "id"; Mongo's _id is left to the server
// and ignored on decode.

type contactDoc struct {
	ID        string `bson:"id"`
	Type      string `bson:"type"`
	Value     string `bson:"value"`
	Label     string `bson:"label,omitempty"`
	IsPrimary bool   `bson:"is_primary"`
}

type clientDoc struct {
	ID                    string               `bson:"id"`
	CNPJ                  string               `bson:"cnpj"`
	CompanyName           string               `bson:"company_name"`
	Email                 string               `bson:"email"`
	Phone                 string               `bson:"phone"`
	WhatsApp              string               `bson:"whatsapp,omitempty"`
	Contacts              []contactDoc         `bson:"contacts"`
	PasswordHash          string               `bson:"password_hash"`
	IsActive              bool                 `bson:"is_active"`
	TwoFactorEnabled      bool                 `bson:"two_factor_enabled"`
	EmailNotifications    bool                 `bson:"email_notifications"`
	WhatsAppNotifications bool                 `bson:"whatsapp_notifications"`
	NotificationEmail     string               `bson:"notification_email,omitempty"`
	NotificationWhatsApp  string               `bson:"notification_whatsapp,omitempty"`
	CreditLimit           float64              `bson:"credit_limit"`
	CurrentUsage          float64              `bson:"current_usage"`
	LastAlertSent         map[string]time.Time `bson:"last_alert_sent,omitempty"`
	CreatedAt             time.Time            `bson:"created_at"`
}

func contactsToDocs(in []domain.Contact) []contactDoc {
	out := make([]contactDoc, 0, len(in))
	for _, c := range in {
		out = append(out, contactDoc(c))
	}
	return out
}

func newClientDoc(c *domain.Client) *clientDoc {
	return &clientDoc{
		ID:                    c.ID,
		CNPJ:                  c.CNPJ,
		CompanyName:           c.CompanyName,
		Email:                 c.Email,
		Phone:                 c.Phone,
		WhatsApp:              c.WhatsApp,
		Contacts:              contactsToDocs(c.Contacts),
		PasswordHash:          c.PasswordHash,
		IsActive:              c.IsActive,
		TwoFactorEnabled:      c.TwoFactorEnabled,
		EmailNotifications:    c.EmailNotifications,
		WhatsAppNotifications: c.WhatsAppNotifications,
		NotificationEmail:     c.NotificationEmail,
		NotificationWhatsApp:  c.NotificationWhatsApp,
		CreditLimit:           c.CreditLimit,
		CurrentUsage:          c.CurrentUsage,
		LastAlertSent:         c.LastAlertSent,
		CreatedAt:             c.CreatedAt,
	}
}

func (d *clientDoc) toDomain() (domain.Client, error) {
	if d.ID == "" || d.CNPJ == "" {
		return domain.Client{}, fmt.Errorf("client record missing id or cnpj")
	}
	contacts := make([]domain.Contact, 0, len(d.Contacts))
	for _, c := range d.Contacts {
		contacts = append(contacts, domain.Contact(c))
	}
	alerts := make(map[string]time.Time, len(d.LastAlertSent))
	for k, v := range d.LastAlertSent {
		alerts[k] = v.UTC()
	}
	return domain.Client{
		ID:                    d.ID,
		CNPJ:                  d.CNPJ,
		CompanyName:           d.CompanyName,
		Email:                 d.Email,
		Phone:                 d.Phone,
		WhatsApp:              d.WhatsApp,
		Contacts:              contacts,
		PasswordHash:          d.PasswordHash,
		IsActive:              d.IsActive,
		TwoFactorEnabled:      d.TwoFactorEnabled,
		EmailNotifications:    d.EmailNotifications,
		WhatsAppNotifications: d.WhatsAppNotifications,
		NotificationEmail:     d.NotificationEmail,
		NotificationWhatsApp:  d.NotificationWhatsApp,
		CreditLimit:           d.CreditLimit,
		CurrentUsage:          d.CurrentUsage,
		LastAlertSent:         alerts,
		CreatedAt:             d.CreatedAt.UTC(),
	}, nil
}

type vehicleDoc struct {
	ID           string    `bson:"id"`
	ClientID     string    `bson:"client_id"`
	LicensePlate string    `bson:"license_plate"`
	Model        string    `bson:"model"`
	Year         int       `bson:"year"`
	FuelType     string    `bson:"fuel_type"`
	DriverName   string    `bson:"driver_name,omitempty"`
	IsActive     bool      `bson:"is_active"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d *vehicleDoc) toDomain() (domain.Vehicle, error) {
	if d.ID == "" || d.ClientID == "" || d.LicensePlate == "" {
		return domain.Vehicle{}, fmt.Errorf("vehicle record %q is incomplete", d.ID)
	}
	v := domain.Vehicle(*d)
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

type limitDoc struct {
	ID           string    `bson:"id"`
	ClientID     string    `bson:"client_id"`
	VehicleID    string    `bson:"vehicle_id,omitempty"`
	LimitType    string    `bson:"limit_type"`
	FuelType     string    `bson:"fuel_type,omitempty"`
	LimitValue   float64   `bson:"limit_value"`
	LimitUnit    string    `bson:"limit_unit"`
	CurrentUsage float64   `bson:"current_usage"`
	ResetDate    time.Time `bson:"reset_date"`
	IsActive     bool      `bson:"is_active"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d *limitDoc) toDomain() (domain.Limit, error) {
	if d.ID == "" || d.ClientID == "" {
		return domain.Limit{}, fmt.Errorf("limit record %q is incomplete", d.ID)
	}
	l := domain.Limit(*d)
	l.ResetDate = l.ResetDate.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

type transactionDoc struct {
	ID              string    `bson:"id"`
	ClientID        string    `bson:"client_id"`
	VehicleID       string    `bson:"vehicle_id"`
	LicensePlate    string    `bson:"license_plate"`
	FuelType        string    `bson:"fuel_type"`
	Liters          float64   `bson:"liters"`
	PricePerLiter   float64   `bson:"price_per_liter"`
	TotalAmount     float64   `bson:"total_amount"`
	StationID       string    `bson:"station_id"`
	StationName     string    `bson:"station_name"`
	TransactionDate time.Time `bson:"transaction_date"`
	Status          string    `bson:"status"`
}

func (d *transactionDoc) toDomain() (domain.FuelTransaction, error) {
	if d.ID == "" || d.ClientID == "" {
		return domain.FuelTransaction{}, fmt.Errorf("transaction record %q is incomplete", d.ID)
	}
	if d.Liters < 0 || d.TotalAmount < 0 {
		return domain.FuelTransaction{}, fmt.Errorf("transaction record %q has negative amounts", d.ID)
	}
	tx := domain.FuelTransaction(*d)
	tx.TransactionDate = tx.TransactionDate.UTC()
	return tx, nil
}

type invoiceDoc struct {
	ID             string    `bson:"id"`
	ClientID       string    `bson:"client_id"`
	InvoiceNumber  string    `bson:"invoice_number"`
	TotalAmount    float64   `bson:"total_amount"`
	DueDate        time.Time `bson:"due_date"`
	Status         string    `bson:"status"`
	TransactionIDs []string  `bson:"transactions"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (d *invoiceDoc) toDomain() (domain.Invoice, error) {
	if d.ID == "" || d.ClientID == "" {
		return domain.Invoice{}, fmt.Errorf("invoice record %q is incomplete", d.ID)
	}
	switch d.Status {
	case domain.InvoiceOpen, domain.InvoicePaid, domain.InvoiceOverdue:
	default:
		return domain.Invoice{}, fmt.Errorf("invoice record %q has unknown status %q", d.ID, d.Status)
	}
	inv := domain.Invoice(*d)
	if inv.TransactionIDs == nil {
		inv.TransactionIDs = []string{}
	}
	inv.DueDate = inv.DueDate.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	return inv, nil
}

type alertDoc struct {
	ID              string    `bson:"id"`
	ClientID        string    `bson:"client_id"`
	AlertType       string    `bson:"alert_type"`
	CurrentUsage    float64   `bson:"current_usage"`
	CreditLimit     float64   `bson:"credit_limit"`
	UsagePercentage float64   `bson:"usage_percentage"`
	Dismissed       bool      `bson:"dismissed"`
	CreatedAt       time.Time `bson:"created_at"`
}

func (d *alertDoc) toDomain() (domain.CreditAlert, error) {
	if d.ID == "" || d.ClientID == "" {
		return domain.CreditAlert{}, fmt.Errorf("alert record %q is incomplete", d.ID)
	}
	a := domain.CreditAlert(*d)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

type codeDoc struct {
	CNPJ      string    `bson:"cnpj"`
	Code      string    `bson:"code"`
	Method    string    `bson:"method"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
