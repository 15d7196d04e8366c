package api

import (
	"net/http"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/httputil"
	"github.com/walletvault/walletvault/pkg/observability"
)

// AuthHandlers serves the register, login, and logout endpoints.
type AuthHandlers struct {
	service *auth.Service
	logger  *observability.Logger
}

// NewAuthHandlers creates the auth endpoint handlers
func NewAuthHandlers(service *auth.Service, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{service: service, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, r, "User registered successfully", result) //nolint:errcheck
}

// Login handles POST /api/auth/login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, r, "User logged in successfully", result) //nolint:errcheck
}

// Logout handles POST /api/auth/logout. The token to revoke comes from the
// caller's own Authorization header.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := httputil.BearerToken(r)

	if err := h.service.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, r, "User logged out successfully", nil) //nolint:errcheck
}
