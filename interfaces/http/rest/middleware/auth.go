package middleware

import (
	"net"
	"net/http"
	"strings"

	"nodes-backend/pkg/auth"
	apperrors "nodes-backend/pkg/errors"

	"go.uber.org/zap"
)

// TokenValidator turns a bearer token into claims
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and attaches the caller to the
// request context. A non-nil limiter is applied per client IP before the
// token is checked.
func Authenticate(validator TokenValidator, limiter auth.RateLimiter, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				allowed, err := limiter.Allow(r.Context(), "ip:"+clientIP(r))
				if err != nil {
					errorHandler.Handle(w, r, err)
					return
				}
				if !allowed {
					errorHandler.Handle(w, r, apperrors.NewRateLimitError(limiter.Limit(), "minute"))
					return
				}
			}

			token := bearerToken(r)
			if token == "" {
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP(r)),
					zap.String("path", r.URL.Path),
				)
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError(err.Error()))
				return
			}

			ctx := auth.SetUserInContext(r.Context(), auth.UserFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already
// rewritten from forwarding headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
