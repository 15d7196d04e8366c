// Package middleware provides the bearer-token gate protecting the API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/contextkeys"
	"github.com/walletvault/walletvault/pkg/httputil"
	"github.com/walletvault/walletvault/pkg/observability"
)

// AuthMiddleware rejects requests without a valid, unrevoked bearer token
// and attaches the authenticated identity to the request context.
type AuthMiddleware struct {
	service *auth.Service
	logger  *observability.Logger
	metrics *observability.Metrics
}

// AuthOption customizes an AuthMiddleware
type AuthOption func(*AuthMiddleware)

// WithLogger sets the middleware logger
func WithLogger(logger *observability.Logger) AuthOption {
	return func(m *AuthMiddleware) { m.logger = logger }
}

// WithMetrics counts token rejections by reason
func WithMetrics(metrics *observability.Metrics) AuthOption {
	return func(m *AuthMiddleware) { m.metrics = metrics }
}

// NewAuthMiddleware creates the bearer-token gate
func NewAuthMiddleware(service *auth.Service, opts ...AuthOption) *AuthMiddleware {
	m := &AuthMiddleware{
		service: service,
		logger:  observability.NewLogger(observability.InfoLevel, nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps an HTTP handler with the bearer-token gate. The checks run
// in a fixed order: header presence, token presence, revocation, then
// signature and expiry. Revocation is checked before the signature so a
// logged-out token is reported as revoked even after it expires.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, "missing_header", "Authorization header is missing")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			m.reject(w, "missing_token", "Invalid token")
			return
		}

		revoked, err := m.service.IsTokenRevoked(r.Context(), token)
		if err != nil {
			m.logger.WithError(err).Error("auth gate: revocation lookup failed")
			httputil.WriteErrorField(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if revoked {
			m.reject(w, "revoked", "Token has been revoked")
			return
		}

		claims, err := m.service.ValidateToken(token)
		if err != nil {
			m.reject(w, "invalid", "Invalid token")
			return
		}

		identity := &auth.Identity{ID: claims.Subject}
		ctx := contextkeys.WithAuth(r.Context(), identity)
		ctx = contextkeys.WithUserID(ctx, identity.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, reason, message string) {
	if m.metrics != nil {
		m.metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
	}
	httputil.WriteMessage(w, http.StatusUnauthorized, message)
}

// GetIdentity returns the authenticated identity attached by the gate.
func GetIdentity(r *http.Request) (*auth.Identity, bool) {
	identity, ok := r.Context().Value(contextkeys.AuthKey).(*auth.Identity)
	return identity, ok
}
