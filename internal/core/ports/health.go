package ports

import "context"

// HealthChecker abstracts a dependency health probe (cache backend, quota store, broker).
// Check returns an error when the dependency is unreachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
