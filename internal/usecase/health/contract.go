package health

import "context"

// GraphPinger checks graph store availability.
type GraphPinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks model endpoint availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}
