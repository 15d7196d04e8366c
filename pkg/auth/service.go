package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/walletvault/walletvault/pkg/observability"
	"github.com/walletvault/walletvault/pkg/storage"
)

// defaultHashConcurrency bounds how many bcrypt computations run at once.
// Each hash pins a core for tens of milliseconds, so unbounded concurrency
// lets a burst of registrations starve every other request.
const defaultHashConcurrency = 8

// UserDirectory is the persistence surface the service needs for accounts.
type UserDirectory interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}

// RevocationStore records tokens invalidated by logout. Entries carry the
// token's own expiry so the store can drop them once they would have
// expired anyway.
type RevocationStore interface {
	RevokeToken(ctx context.Context, token RevokedToken) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// Service implements registration, login, and logout on top of a user
// directory and a revocation store.
type Service struct {
	users       UserDirectory
	revocations RevocationStore
	hasher      Hasher
	issuer      *Issuer
	hashSem     *semaphore.Weighted
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *observability.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the service metrics.
func WithMetrics(metrics *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithHashConcurrency bounds concurrent password hashing. Zero or negative
// values keep the default.
func WithHashConcurrency(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.hashSem = semaphore.NewWeighted(n)
		}
	}
}

// NewService creates an auth service.
func NewService(users UserDirectory, revocations RevocationStore, hasher Hasher, issuer *Issuer, opts ...ServiceOption) *Service {
	s := &Service{
		users:       users,
		revocations: revocations,
		hasher:      hasher,
		issuer:      issuer,
		hashSem:     semaphore.NewWeighted(defaultHashConcurrency),
		logger:      observability.NewLogger(observability.InfoLevel, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account and returns a signed token for it.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*UserToken, error) {
	if err := req.Validate(); err != nil {
		s.countRegistration("invalid")
		return nil, err
	}

	// Friendly pre-check. The UNIQUE constraint on email is the real
	// guard against concurrent registrations of the same address.
	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.WithError(err).Error("register: email lookup failed")
		s.countRegistration("error")
		return nil, Internal("")
	}
	if existing != nil {
		s.countRegistration("conflict")
		return nil, BadRequest("User already exists")
	}

	hash, err := s.hashPassword(ctx, req.Password)
	if err != nil {
		s.logger.WithError(err).Error("register: password hashing failed")
		s.countRegistration("error")
		return nil, Internal("")
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.countRegistration("conflict")
			return nil, BadRequest("User already exists")
		}
		s.logger.WithError(err).Error("register: user insert failed")
		s.countRegistration("error")
		return nil, Internal("")
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("register: token signing failed")
		s.countRegistration("error")
		return nil, Internal("Failed to generate token")
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	s.countRegistration("success")
	return &UserToken{Token: token, User: user.Public()}, nil
}

// Login verifies credentials and returns a fresh token. A missing account
// and a wrong password produce the same error so the response does not
// reveal which addresses are registered.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*UserToken, error) {
	if err := req.Validate(); err != nil {
		s.countLogin("invalid")
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.countLogin("denied")
			return nil, BadRequest("Invalid credentials")
		}
		s.logger.WithError(err).Error("login: email lookup failed")
		s.countLogin("error")
		return nil, Internal("")
	}

	if !s.comparePassword(ctx, req.Password, user.PasswordHash) {
		s.countLogin("denied")
		return nil, BadRequest("Invalid credentials")
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("login: token signing failed")
		s.countLogin("error")
		return nil, Internal("Failed to generate token")
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")
	s.countLogin("success")
	return &UserToken{Token: token, User: user.Public()}, nil
}

// Logout revokes the given token. Revocation is idempotent and the token
// is recorded with its own expiry so the store can expire the entry.
// Tokens that do not decode at all are rejected with a 400 rather than
// stored, since they can never authenticate a request anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		s.countLogout("invalid")
		return BadRequest("Token is missing")
	}

	expiresAt, err := s.issuer.DecodeExpiryUnsafe(token)
	if err != nil {
		s.countLogout("invalid")
		return BadRequest("Invalid token")
	}

	if err := s.revocations.RevokeToken(ctx, RevokedToken{Token: token, ExpiresAt: expiresAt}); err != nil {
		s.logger.WithError(err).Error("logout: revocation write failed")
		s.countLogout("error")
		return Internal("Logout failed")
	}

	if s.metrics != nil {
		s.metrics.TokensRevokedTotal.Inc()
	}
	s.countLogout("success")
	return nil
}

// IsTokenRevoked reports whether a token has been revoked by logout.
func (s *Service) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	return s.revocations.IsTokenRevoked(ctx, token)
}

// ValidateToken checks the token signature and expiry and returns its claims.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	return s.issuer.Validate(token)
}

// PurgeExpiredTokens removes revocation entries whose tokens have expired.
// Called periodically; an expired token fails signature validation on its
// own, so its revocation entry is dead weight.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.revocations.DeleteExpiredTokens(ctx, time.Now().UTC())
}

func (s *Service) issueToken(subject string) (string, error) {
	token, err := s.issuer.Issue(subject, s.issuer.TTL())
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.TokensIssuedTotal.Inc()
	}
	return token, nil
}

func (s *Service) hashPassword(ctx context.Context, password string) (string, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.hashSem.Release(1)

	start := time.Now()
	hash, err := s.hasher.Hash(password)
	if s.metrics != nil {
		s.metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	}
	return hash, err
}

func (s *Service) comparePassword(ctx context.Context, password, hash string) bool {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer s.hashSem.Release(1)
	return s.hasher.Compare(password, hash)
}

func (s *Service) countRegistration(status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) countLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) countLogout(status string) {
	if s.metrics != nil {
		s.metrics.LogoutsTotal.WithLabelValues(status).Inc()
	}
}
