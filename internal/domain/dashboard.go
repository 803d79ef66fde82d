package domain

import "time"

// FuelBreakdown sums one fuel type within the dashboard period.
type FuelBreakdown struct {
	Liters float64 `json:"liters"`
	Amount float64 `json:"amount"`
}

// RecentTransaction is the compact transaction view shown on the dashboard.
type RecentTransaction struct {
	ID              string    `json:"id"`
	LicensePlate    string    `json:"license_plate"`
	FuelType        string    `json:"fuel_type"`
	Liters          float64   `json:"liters"`
	TotalAmount     float64   `json:"total_amount"`
	TransactionDate time.Time `json:"transaction_date"`
}

// DashboardStats is the body of GET /api/dashboard/stats.
type DashboardStats struct {
	VehiclesCount         int                      `json:"vehicles_count"`
	MonthTransactionCount int                      `json:"month_transaction_count"`
	MonthTotalAmount      float64                  `json:"month_total_amount"`
	MonthTotalLiters      float64                  `json:"month_total_liters"`
	OpenInvoicesCount     int                      `json:"open_invoices_count"`
	TotalOpenAmount       float64                  `json:"total_open_amount"`
	FuelBreakdown         map[string]FuelBreakdown `json:"fuel_breakdown"`
	RecentTransactions    []RecentTransaction      `json:"recent_transactions"`
	PeriodStart           time.Time                `json:"period_start"`
}

// SeedResponse is returned by POST /api/create-test-data.
type SeedResponse struct {
	Message      string `json:"message"`
	ClientID     string `json:"client_id,omitempty"`
	CNPJ         string `json:"cnpj,omitempty"`
	Vehicles     int    `json:"vehicles"`
	Transactions int    `json:"transactions"`
	Invoices     int    `json:"invoices"`
}
