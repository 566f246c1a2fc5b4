// Package neo4j adapts the graph store behind a narrow read interface.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/domain"
)

// Config holds the graph connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	// MaxPoolSize bounds the shared connection pool. Callers block (with
	// AcquireTimeout) when the pool is exhausted.
	MaxPoolSize    int
	AcquireTimeout time.Duration
}

// Store wraps the Neo4j driver with session management and error
// classification.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewStore creates a graph store and verifies connectivity.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			if cfg.AcquireTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.AcquireTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w: %w", err, domain.ErrConnectivity)
	}

	return &Store{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Run executes a read query and returns the property map of each
// returned node. Errors are classified: store-side constraint and
// statement errors wrap domain.ErrConstraint (fatal, not retried),
// everything else wraps domain.ErrConnectivity (transient).
func (s *Store) Run(ctx context.Context, text string, params map[string]any) ([]domain.ResultRecord, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, text, params)
		if err != nil {
			return nil, err
		}
		var out []domain.ResultRecord
		for result.Next(ctx) {
			rec := result.Record()
			if len(rec.Values) == 0 {
				continue
			}
			if node, ok := rec.Values[0].(neo4j.Node); ok {
				out = append(out, domain.ResultRecord(node.Props))
			}
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, classify(err)
	}
	out, _ := records.([]domain.ResultRecord)
	return out, nil
}

// Ping reports graph reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connectivity: %w: %w", err, domain.ErrConnectivity)
	}
	return nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// classify maps driver errors onto the pipeline taxonomy by the Neo4j
// status code family.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError.Statement"),
			strings.HasPrefix(neoErr.Code, "Neo.ClientError.Schema"),
			strings.HasPrefix(neoErr.Code, "Neo.ClientError.Procedure"):
			return fmt.Errorf("%s: %w", neoErr.Msg, domain.ErrConstraint)
		case strings.HasPrefix(neoErr.Code, "Neo.TransientError"):
			return fmt.Errorf("%s: %w", neoErr.Msg, domain.ErrConnectivity)
		default:
			return fmt.Errorf("%s: %w", neoErr.Msg, domain.ErrConnectivity)
		}
	}

	// Pool exhaustion, broken sockets, routing failures.
	return fmt.Errorf("%v: %w", err, domain.ErrConnectivity)
}
