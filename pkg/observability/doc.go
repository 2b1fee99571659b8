// Package observability provides the ambient concerns of the gatekeeper
// service: structured JSON logging over slog, Prometheus metrics for the
// SSO flows, liveness/readiness probes over the store and directory, and
// graceful shutdown coordination.
package observability
