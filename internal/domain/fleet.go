package domain

import (
	"math"
	"time"
)

// ============================================================
// Vehicles
// ============================================================

// Fuel types accepted for vehicles, limits and transactions.
const (
	FuelGasoline = "gasoline"
	FuelEthanol  = "ethanol"
	FuelDiesel   = "diesel"
)

// Vehicle is a fleet vehicle owned by a client.
type Vehicle struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	LicensePlate string    `json:"license_plate"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	FuelType     string    `json:"fuel_type"`
	DriverName   string    `json:"driver_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// VehicleRequest is the body of POST /api/vehicles and PUT /api/vehicles/{id}.
type VehicleRequest struct {
	LicensePlate string `json:"license_plate"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	FuelType     string `json:"fuel_type"`
	DriverName   string `json:"driver_name,omitempty"`
}

// ============================================================
// Consumption limits
// ============================================================

// Limit periods.
const (
	LimitDaily   = "daily"
	LimitWeekly  = "weekly"
	LimitMonthly = "monthly"
)

// Limit units.
const (
	UnitLiters   = "liters"
	UnitCurrency = "currency"
)

// Limit caps consumption for all vehicles of a client, or a single one.
type Limit struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	VehicleID    string    `json:"vehicle_id,omitempty"` // empty = all vehicles
	LimitType    string    `json:"limit_type"`
	FuelType     string    `json:"fuel_type,omitempty"` // empty = all fuels
	LimitValue   float64   `json:"limit_value"`
	LimitUnit    string    `json:"limit_unit"`
	CurrentUsage float64   `json:"current_usage"`
	ResetDate    time.Time `json:"reset_date"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// LimitRequest is the body of POST /api/limits and PUT /api/limits/{id}.
type LimitRequest struct {
	VehicleID  string  `json:"vehicle_id,omitempty"`
	LimitType  string  `json:"limit_type"`
	FuelType   string  `json:"fuel_type,omitempty"`
	LimitValue float64 `json:"limit_value"`
	LimitUnit  string  `json:"limit_unit"`
}

// ============================================================
// Fuel transactions
// ============================================================

// Transaction statuses.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxCancelled = "cancelled"
)

// totalTolerance is the accepted drift between total_amount and liters*price.
const totalTolerance = 0.01

// FuelTransaction is a single purchase at a station. Immutable once recorded.
type FuelTransaction struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	VehicleID       string    `json:"vehicle_id"`
	LicensePlate    string    `json:"license_plate"`
	FuelType        string    `json:"fuel_type"`
	Liters          float64   `json:"liters"`
	PricePerLiter   float64   `json:"price_per_liter"`
	TotalAmount     float64   `json:"total_amount"`
	StationID       string    `json:"station_id"`
	StationName     string    `json:"station_name"`
	TransactionDate time.Time `json:"transaction_date"`
	Status          string    `json:"status"`
}

// TotalConsistent reports whether total_amount matches liters * price_per_liter.
func (t *FuelTransaction) TotalConsistent() bool {
	return math.Abs(t.TotalAmount-t.Liters*t.PricePerLiter) <= totalTolerance
}

// ============================================================
// Invoices
// ============================================================

// Invoice statuses.
const (
	InvoiceOpen    = "open"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// Invoice aggregates transactions for billing.
type Invoice struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	InvoiceNumber  string    `json:"invoice_number"`
	TotalAmount    float64   `json:"total_amount"`
	DueDate        time.Time `json:"due_date"`
	Status         string    `json:"status"`
	TransactionIDs []string  `json:"transactions"`
	CreatedAt      time.Time `json:"created_at"`
}

// Outstanding reports whether the invoice counts toward credit usage.
func (i *Invoice) Outstanding() bool {
	return i.Status == InvoiceOpen || i.Status == InvoiceOverdue
}

// InvoiceDetails is the body of GET /api/invoices/{id}/details.
type InvoiceDetails struct {
	Invoice          Invoice           `json:"invoice"`
	Transactions     []FuelTransaction `json:"transactions"`
	TransactionCount int               `json:"transaction_count"`
	TotalLiters      float64           `json:"total_liters"`
}
