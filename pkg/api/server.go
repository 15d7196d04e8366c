// Package api wires the HTTP surface: route registration, the handler
// structs, and the shared error translation from service errors to
// response envelopes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/httputil"
	"github.com/walletvault/walletvault/pkg/middleware"
	"github.com/walletvault/walletvault/pkg/observability"
	"github.com/walletvault/walletvault/pkg/wallet"
)

// Server represents our API server
type Server struct {
	router         *mux.Router
	authService    *auth.Service
	wallets        wallet.Store
	authGate       *middleware.AuthMiddleware
	authHandlers   *AuthHandlers
	walletHandlers *WalletHandlers
	logger         *observability.Logger
	metrics        *observability.Metrics
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *observability.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics enables request and rejection metrics
func WithMetrics(metrics *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = metrics }
}

// NewServer creates a new API server
func NewServer(authService *auth.Service, wallets wallet.Store, opts ...ServerOption) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		authService: authService,
		wallets:     wallets,
		logger:      observability.NewLogger(observability.InfoLevel, nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	gateOpts := []middleware.AuthOption{middleware.WithLogger(s.logger)}
	if s.metrics != nil {
		gateOpts = append(gateOpts, middleware.WithMetrics(s.metrics))
	}
	s.authGate = middleware.NewAuthMiddleware(authService, gateOpts...)

	s.authHandlers = NewAuthHandlers(authService, s.logger)
	s.walletHandlers = NewWalletHandlers(wallets, s.logger)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Auth routes. Logout sits behind the gate like the wallet routes, so
	// only the holder of a live token can revoke it.
	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", s.authHandlers.Register).Methods("POST")
	authRouter.HandleFunc("/login", s.authHandlers.Login).Methods("POST")
	authRouter.Handle("/logout", s.authGate.Handler(http.HandlerFunc(s.authHandlers.Logout))).Methods("POST")

	// Wallet routes, all behind the gate.
	walletRouter := api.PathPrefix("/wallet").Subrouter()
	walletRouter.Use(s.authGate.Handler)
	walletRouter.HandleFunc("", s.walletHandlers.Create).Methods("POST")
	walletRouter.HandleFunc("", s.walletHandlers.List).Methods("GET")
	walletRouter.HandleFunc("/{id}", s.walletHandlers.Get).Methods("GET")
	walletRouter.HandleFunc("/{id}", s.walletHandlers.Update).Methods("PUT")
	walletRouter.HandleFunc("/{id}", s.walletHandlers.Delete).Methods("DELETE")
}

// Router returns the underlying router for middleware wrapping
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// writeServiceError translates a service error into an envelope. Unknown
// errors become opaque 500s.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if authErr, ok := auth.AsError(err); ok {
		httputil.WriteAPIError(w, r, authErr.StatusCode, authErr.Message)
		return
	}
	httputil.WriteInternalError(w, r)
}
