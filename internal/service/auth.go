// Package service holds the portal's business logic: the two-factor login
// workflow, the credit monitor and the per-client record services.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const (
	// CodeTTL is how long a verification code stays valid.
	CodeTTL = 5 * time.Minute

	minPasswordLength = 6
)

// AuthService orchestrates login, 2FA code issuance/verification and
// password changes.
type AuthService struct {
	clients  port.ClientStore
	codes    port.CodeStore
	notifier port.Notifier
	tokens   *TokenIssuer
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      Clock
}

// NewAuthService creates a new auth service.
func NewAuthService(clients port.ClientStore, codes port.CodeStore, notifier port.Notifier, tokens *TokenIssuer, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		clients:  clients,
		codes:    codes,
		notifier: notifier,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the service's time source.
func (s *AuthService) WithClock(now Clock) *AuthService {
	s.now = now
	return s
}

// ============================================================
// Login — POST /api/auth/login
// ============================================================

// Login checks credentials. When any notification transport is configured,
// or the client enabled 2FA, it returns the delivery methods instead of a token.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	client, err := s.checkCredentials(ctx, req.Document(), req.Password)
	if err != nil {
		s.metrics.IncrLogin("rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("client.id", client.ID))

	methods := s.availableMethods(client)
	anyTransport := s.notifier.Configured(domain.MethodEmail) || s.notifier.Configured(domain.MethodWhatsApp)

	if !anyTransport && !client.TwoFactorEnabled {
		s.metrics.IncrLogin("token")
		s.logger.Info("login: token issued without 2FA", zap.String("client_id", client.ID))
		return s.tokenResponse(client)
	}

	s.metrics.IncrLogin("2fa")
	s.logger.Info("login: 2FA required",
		zap.String("client_id", client.ID),
		zap.Strings("methods", methods),
	)
	return &domain.LoginResponse{
		Requires2FA:      true,
		AvailableMethods: methods,
	}, nil
}

// DevLogin issues a token straight from valid credentials. Routed only
// outside production.
func (s *AuthService) DevLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.DevLogin")
	defer span.End()

	client, err := s.checkCredentials(ctx, req.Document(), req.Password)
	if err != nil {
		return nil, err
	}

	s.logger.Warn("dev login used, 2FA bypassed", zap.String("client_id", client.ID))
	resp, err := s.tokenResponse(client)
	if err != nil {
		return nil, err
	}
	resp.DevMode = true
	return resp, nil
}

// ============================================================
// RequestCode — POST /api/auth/request-2fa
// ============================================================

// RequestCode issues a new 6-digit code, superseding any previous one, and
// delivers it over the chosen method.
func (s *AuthService) RequestCode(ctx context.Context, req *domain.RequestCodeRequest) (*domain.RequestCodeResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.RequestCode")
	defer span.End()
	span.SetAttributes(attribute.String("method", req.Method))

	client, err := s.checkCredentials(ctx, req.Document(), req.Password)
	if err != nil {
		return nil, err
	}
	if !validMethod(req.Method) {
		return nil, &domain.ErrValidation{Field: "method", Message: "method must be email or whatsapp"}
	}

	to, err := s.destination(client, req.Method)
	if err != nil {
		return nil, err
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}
	now := s.now()

	if err := s.codes.DeleteCodes(ctx, client.CNPJ); err != nil {
		return nil, fmt.Errorf("delete previous code: %w", err)
	}
	if err := s.codes.SaveCode(ctx, &domain.VerificationCode{
		CNPJ:      client.CNPJ,
		Code:      code,
		Method:    req.Method,
		CreatedAt: now,
		ExpiresAt: now.Add(CodeTTL),
	}); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	if !s.notifier.Send(ctx, req.Method, to, &domain.Notification{Code: code}) {
		// A code the client never received must not stay redeemable.
		if err := s.codes.DeleteCodes(ctx, client.CNPJ); err != nil {
			s.logger.Warn("request-2fa: failed to drop undelivered code", zap.Error(err))
		}
		return nil, &domain.ErrDeliveryFailed{Method: req.Method}
	}

	s.logger.Info("request-2fa: code sent",
		zap.String("client_id", client.ID),
		zap.String("method", req.Method),
	)

	message := "Código enviado por email!"
	if req.Method == domain.MethodWhatsApp {
		message = "Código enviado via WhatsApp!"
	}
	return &domain.RequestCodeResponse{Message: message, Method: req.Method}, nil
}

// destination resolves where a code goes, failing when the method cannot be used.
func (s *AuthService) destination(client *domain.Client, method string) (string, error) {
	if !s.notifier.Configured(method) {
		return "", &domain.ErrDeliveryFailed{Method: method, Reason: "method not configured"}
	}
	var to string
	if method == domain.MethodWhatsApp {
		to = client.WhatsAppContact()
	} else {
		to = client.EmailContact()
	}
	if to == "" {
		return "", &domain.ErrDeliveryFailed{Method: method, Reason: "no contact registered"}
	}
	return to, nil
}

// ============================================================
// VerifyCode — POST /api/auth/verify-2fa
// ============================================================

// VerifyCode consumes a live code and issues a session token.
func (s *AuthService) VerifyCode(ctx context.Context, req *domain.VerifyCodeRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.VerifyCode")
	defer span.End()

	cnpj, err := NormalizeCNPJ(req.Document())
	if err != nil {
		return nil, err
	}

	ok, err := s.codes.ConsumeCode(ctx, cnpj, req.Code, s.now())
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if !ok {
		s.logger.Warn("verify-2fa: invalid or expired code", zap.String("cnpj", cnpj))
		return nil, &domain.ErrUnauthorized{Message: "Invalid or expired code"}
	}

	client, err := s.clients.GetClientByCNPJ(ctx, cnpj)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, &domain.ErrUnauthorized{Message: "Invalid or expired code"}
	}
	if !client.IsActive {
		return nil, &domain.ErrAccountDisabled{ClientID: client.ID}
	}

	s.logger.Info("verify-2fa: token issued", zap.String("client_id", client.ID))
	return s.tokenResponse(client)
}

// ============================================================
// ChangePassword — POST /api/auth/change-password
// ============================================================

func (s *AuthService) ChangePassword(ctx context.Context, client *domain.Client, req *domain.ChangePasswordRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	if !VerifyPassword(req.CurrentPassword, client.PasswordHash) {
		return &domain.ErrValidation{Field: "currentPassword", Message: "Current password is incorrect"}
	}
	if len(req.NewPassword) < minPasswordLength {
		return &domain.ErrValidation{Field: "newPassword", Message: fmt.Sprintf("New password must have at least %d characters", minPasswordLength)}
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.clients.UpdatePassword(ctx, client.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password changed", zap.String("client_id", client.ID))
	return nil
}

// ============================================================
// Authenticate — used by middleware
// ============================================================

// Authenticate verifies a bearer token and resolves it to an active client.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Client, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.GetClientByID(ctx, claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil || !client.IsActive {
		return nil, &domain.ErrUnauthorized{Message: "User not found"}
	}
	return client, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) checkCredentials(ctx context.Context, taxID, password string) (*domain.Client, error) {
	cnpj, err := NormalizeCNPJ(taxID)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.GetClientByCNPJ(ctx, cnpj)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil || !VerifyPassword(password, client.PasswordHash) {
		s.logger.Warn("login: invalid credentials", zap.String("cnpj", cnpj))
		return nil, &domain.ErrInvalidCredentials{}
	}
	if !client.IsActive {
		s.logger.Warn("login: account disabled", zap.String("client_id", client.ID))
		return nil, &domain.ErrAccountDisabled{ClientID: client.ID}
	}
	return client, nil
}

func (s *AuthService) availableMethods(client *domain.Client) []string {
	methods := []string{}
	if s.notifier.Configured(domain.MethodEmail) {
		methods = append(methods, domain.MethodEmail)
	}
	if s.notifier.Configured(domain.MethodWhatsApp) && client.WhatsAppContact() != "" {
		methods = append(methods, domain.MethodWhatsApp)
	}
	return methods
}

func (s *AuthService) tokenResponse(client *domain.Client) (*domain.LoginResponse, error) {
	token, err := s.tokens.Issue(client.ID, client.CNPJ)
	if err != nil {
		return nil, err
	}
	summary := client.Summary()
	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		Client:      &summary,
	}, nil
}
