package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const clientKey contextKey = "client"

// JWTAuthMiddleware validates Bearer tokens and injects the authenticated
// client into the request context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Invalid authentication")
				return
			}

			client, err := authSvc.Authenticate(r.Context(), parts[1])
			if err != nil {
				logger.Warn("auth: rejected token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), clientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientFromContext returns the authenticated client. Only valid behind JWTAuthMiddleware.
func ClientFromContext(ctx context.Context) *domain.Client {
	c, _ := ctx.Value(clientKey).(*domain.Client)
	return c
}
