package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Auth — Request / Response types
// ============================================================

// Delivery methods for verification codes.
const (
	MethodEmail    = "email"
	MethodWhatsApp = "whatsapp"
)

// LoginRequest is the body for POST /api/auth/login and /api/auth/login-dev.
// Older clients send the tax id as "cnpj".
type LoginRequest struct {
	TaxID    string `json:"taxId"`
	CNPJ     string `json:"cnpj,omitempty"`
	Password string `json:"password"`
}

// Document returns whichever tax id field the caller filled.
func (r *LoginRequest) Document() string {
	if r.TaxID != "" {
		return r.TaxID
	}
	return r.CNPJ
}

// LoginResponse is the 200 body of the login endpoints. Either the token
// fields or the 2FA fields are set.
type LoginResponse struct {
	AccessToken string         `json:"accessToken,omitempty"`
	TokenType   string         `json:"tokenType,omitempty"`
	Client      *ClientSummary `json:"client,omitempty"`

	Requires2FA      bool     `json:"requires2fa,omitempty"`
	AvailableMethods []string `json:"availableMethods"`

	DevMode bool `json:"devMode,omitempty"`
}

// MarshalJSON always emits availableMethods on a 2FA response, as [] when no
// method is usable, and leaves it out of token responses.
func (r LoginResponse) MarshalJSON() ([]byte, error) {
	type plain LoginResponse
	if r.Requires2FA {
		if r.AvailableMethods == nil {
			r.AvailableMethods = []string{}
		}
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		AvailableMethods []string `json:"availableMethods,omitempty"`
	}{plain: plain(r)})
}

// RequestCodeRequest is the body for POST /api/auth/request-2fa.
type RequestCodeRequest struct {
	TaxID    string `json:"taxId"`
	CNPJ     string `json:"cnpj,omitempty"`
	Password string `json:"password"`
	Method   string `json:"method"`
}

// Document returns whichever tax id field the caller filled.
func (r *RequestCodeRequest) Document() string {
	if r.TaxID != "" {
		return r.TaxID
	}
	return r.CNPJ
}

// RequestCodeResponse is the 200 body of POST /api/auth/request-2fa.
type RequestCodeResponse struct {
	Message string `json:"message"`
	Method  string `json:"method"`
}

// VerifyCodeRequest is the body for POST /api/auth/verify-2fa.
type VerifyCodeRequest struct {
	TaxID string `json:"taxId"`
	CNPJ  string `json:"cnpj,omitempty"`
	Code  string `json:"code"`
}

// Document returns whichever tax id field the caller filled.
func (r *VerifyCodeRequest) Document() string {
	if r.TaxID != "" {
		return r.TaxID
	}
	return r.CNPJ
}

// ChangePasswordRequest is the body for POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// VerificationCode is a live 2FA code. At most one exists per CNPJ.
type VerificationCode struct {
	CNPJ      string    `json:"cnpj"`
	Code      string    `json:"code"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
