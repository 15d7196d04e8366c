// Package observability provides logging, metrics, health checks, and
// graceful shutdown for the wallet service.
//
// Logging is structured JSON built on slog. The logger is injected into
// components rather than accessed through a global, so unit tests can
// capture output or silence it entirely.
//
// Metrics are Prometheus collectors registered against an explicit
// registry and exposed on the health port, separate from the API port.
//
// Health checks probe the SQL database and, when configured, Redis, and
// back the /healthz (liveness) and /readyz (readiness) endpoints.
package observability
