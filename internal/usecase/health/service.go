package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results. The graph store and the
// model endpoint are both hard dependencies of the pipeline, so either
// failing degrades the service.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	graph GraphPinger
	model ModelChecker
}

// New creates a Service.
func New(graph GraphPinger, model ModelChecker) *Service {
	return &Service{graph: graph, model: model}
}

// Check runs health checks against all dependencies.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.graph.Ping(ctx); err != nil {
		checks["graph"] = CheckError
	} else {
		checks["graph"] = CheckOK
	}

	if err := s.model.HealthCheck(ctx); err != nil {
		checks["model"] = CheckError
	} else {
		checks["model"] = CheckOK
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
