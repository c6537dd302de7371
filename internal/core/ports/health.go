package ports

import "context"

// HealthChecker checks one dependency for /health. Check returns nil when it is usable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
