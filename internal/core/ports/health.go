package ports

import "context"

// HealthChecker is one dependency reported by GET /health.
type HealthChecker interface {
	// Ping returns nil when the dependency can serve the ledger.
	Ping(ctx context.Context) error
	Name() string
}
