// Package observability provides structured logging and metrics for the
// tenant gateway.
//
// This package implements:
//   - zap logger construction with request ID propagation
//   - Prometheus collectors for chat calls, tokens and audit entries
package observability
