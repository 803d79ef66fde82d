package domain

import "fmt"

// Error types for consistent error handling across the portal.

// ErrNotFound indicates a resource owned by the caller was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidCredentials indicates an unknown tax id or a wrong password.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "Invalid CNPJ or password"
}

// ErrAccountDisabled indicates the client account was deactivated.
type ErrAccountDisabled struct {
	ClientID string
}

func (e *ErrAccountDisabled) Error() string {
	return "Account is deactivated"
}

// ErrUnauthorized indicates a missing, invalid or expired token or code.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (duplicate plate, duplicate CNPJ).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrDeliveryFailed indicates a verification code could not be delivered.
type ErrDeliveryFailed struct {
	Method string
	Reason string
}

func (e *ErrDeliveryFailed) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("failed to send code via %s: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("failed to send code via %s", e.Method)
}
