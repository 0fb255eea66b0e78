package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop/internal/domain/auth"
	"github.com/xenking/shop/pkg/httpmiddleware"
)

// API key headers, checked in order.
var apiKeyHeaders = []string{"X-API-Key", "api_key"}

// Security authenticates requests with HMAC-hashed API keys and enforces
// per-route scopes.
type Security struct {
	auth *auth.Authenticator
}

// NewSecurity creates a Security backed by authenticator.
func NewSecurity(authenticator *auth.Authenticator) *Security {
	return &Security{auth: authenticator}
}

// Require returns a wrapper admitting only keys that grant scope.
func (s *Security) Require(scope string) func(http.HandlerFunc) http.Handler {
	return func(next http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := s.auth.Authenticate(r.Context(), apiKey(r), scope)
			switch {
			case err == nil:
				ctx := zctx.With(r.Context(), zap.String("api_key", info.Name))
				next.ServeHTTP(w, r.WithContext(ctx))
			case errors.Is(err, auth.ErrUnauthorized):
				s.reject(w, r, http.StatusUnauthorized, "Unauthorized", scope)
			case errors.Is(err, auth.ErrForbidden):
				s.reject(w, r, http.StatusForbidden, "Forbidden", scope)
			default:
				zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
				httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}

func (s *Security) reject(w http.ResponseWriter, r *http.Request, status int, msg, scope string) {
	zctx.From(r.Context()).Warn("Access denied",
		zap.Int("status", status),
		zap.String("ip", httpmiddleware.ClientIP(r)),
		zap.String("endpoint", r.Method+" "+r.URL.Path),
		zap.String("scope", scope),
	)
	httpmiddleware.WriteError(w, status, msg)
}

func apiKey(r *http.Request) string {
	for _, h := range apiKeyHeaders {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}
