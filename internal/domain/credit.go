package domain

import "time"

// ============================================================
// Credit monitoring
// ============================================================

// Credit status labels.
const (
	CreditNormal   = "normal"
	CreditWarning  = "warning"
	CreditCritical = "critical"
)

// CreditStatus is the body of GET /api/credit-status.
type CreditStatus struct {
	CreditLimit     float64 `json:"credit_limit"`
	CurrentUsage    float64 `json:"current_usage"`
	AvailableCredit float64 `json:"available_credit"`
	UsagePercentage float64 `json:"usage_percentage"`
	Status          string  `json:"status"`
}

// CreditAlert records one threshold crossing that was notified to the client.
type CreditAlert struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	AlertType       string    `json:"alert_type"` // "70", "80", "90", "100"
	CurrentUsage    float64   `json:"current_usage"`
	CreditLimit     float64   `json:"credit_limit"`
	UsagePercentage float64   `json:"usage_percentage"`
	Dismissed       bool      `json:"dismissed"`
	CreatedAt       time.Time `json:"created_at"`
}
