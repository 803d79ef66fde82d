package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// NotificationMetrics is returned by GET /api/metrics/notifications.
type NotificationMetrics struct {
	EmailSent      int64   `json:"emailSent"`
	EmailFailed    int64   `json:"emailFailed"`
	WhatsAppSent   int64   `json:"whatsappSent"`
	WhatsAppFailed int64   `json:"whatsappFailed"`
	CreditAlerts   int64   `json:"creditAlerts"`
	FailureRate    float64 `json:"failureRate"`
	CacheHitRate   float64 `json:"cacheHitRate"`
	Period         string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
