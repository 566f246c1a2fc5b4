// Package graph executes compiled query plans against the graph store.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/cypher"
	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
	"github.com/kitaq-care/soudan/internal/metrics"
)

// Runner is the read contract over the graph store.
type Runner interface {
	Run(ctx context.Context, text string, params map[string]any) ([]domain.ResultRecord, error)
}

// Repo translates plans to Cypher and runs them with bounded retries.
type Repo struct {
	runner      Runner
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a graph executor. maxAttempts counts the first try;
// backoffBase doubles after each transient failure.
func New(runner Runner, maxAttempts int, backoffBase time.Duration, logger *zap.Logger) *Repo {
	return &Repo{
		runner:      runner,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Execute runs the plan. Transient connectivity failures retry with
// exponential backoff up to the attempt bound, then surface as
// ErrServiceUnavailable. Constraint errors are fatal and never retried.
// Empty result sets pass through unchanged.
func (r *Repo) Execute(ctx context.Context, q plan.CompiledQuery, s schema.Schema) (domain.ResultSet, error) {
	cq, err := cypher.Build(q, s)
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("%v: %w", err, domain.ErrConstraint)
	}

	var lastErr error
	delay := r.backoffBase
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		records, err := r.runner.Run(ctx, cq.Text, cq.Params)
		if err == nil {
			return domain.ResultSet{Records: records, TotalMatched: len(records)}, nil
		}

		if errors.Is(err, domain.ErrConstraint) {
			return domain.ResultSet{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.ResultSet{}, err
		}

		lastErr = err
		if attempt == r.maxAttempts {
			break
		}

		metrics.GraphRetriesTotal.Inc()
		r.logger.Warn("graph query retry",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return domain.ResultSet{}, err
		}
		delay *= 2
	}

	return domain.ResultSet{}, fmt.Errorf("graph query after %d attempts: %v: %w",
		r.maxAttempts, lastErr, domain.ErrServiceUnavailable)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
