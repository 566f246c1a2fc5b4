package domain

import "errors"

var (
	// ErrSchemaNotFound signals an unknown domain schema id.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrParse signals unparseable model output. Absorbed locally by
	// bounded retry; callers see ErrAnalysis once the budget is spent.
	ErrParse = errors.New("model output parse failure")
	// ErrAnalysis signals that intent extraction failed after all retries.
	ErrAnalysis = errors.New("query analysis failed")
	// ErrConnectivity signals a transient store or endpoint failure.
	ErrConnectivity = errors.New("connectivity failure")
	// ErrServiceUnavailable signals an exhausted retry budget against a dependency.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrConstraint signals a compiled query the store rejects. Never retried.
	ErrConstraint = errors.New("constraint violation")
	// ErrGenerationTimeout signals that answer generation exceeded its budget.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrCancelled signals caller-initiated cancellation.
	ErrCancelled = errors.New("query cancelled")
	// ErrTimeout signals a hit stage or aggregate deadline.
	ErrTimeout = errors.New("query timeout")
)
