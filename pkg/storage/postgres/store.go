package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/walletvault/walletvault/pkg/observability"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits
const uniqueViolation = "23505"

// Store implements the user directory, revocation store, and wallet store
// on a single PostgreSQL database.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// StoreOption customizes a Store
type StoreOption func(*Store)

// WithMetrics records per-operation counters and latencies
func WithMetrics(metrics *observability.Metrics) StoreOption {
	return func(s *Store) { s.metrics = metrics }
}

// NewStore creates a store over an open database handle
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveStorageOperation(operation, "postgres", status, time.Since(start))
	stats := s.db.Stats()
	s.metrics.DBConnectionsActive.Set(float64(stats.InUse))
	s.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
