// Package pipeline orchestrates one query end to end: analyze, compile,
// execute, assemble, generate. It owns the per-request state machine,
// timeouts, cancellation, and the request cache.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/config"
	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/evidence"
	"github.com/kitaq-care/soudan/internal/domain/intent"
	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
	"github.com/kitaq-care/soudan/internal/metrics"
	"github.com/kitaq-care/soudan/internal/repository/reqcache"
	"github.com/kitaq-care/soudan/internal/usecase/answer"
	"github.com/kitaq-care/soudan/internal/usecase/extract"
)

// Result is the terminal outcome of one run. Exactly one of Answer and
// Clarification is set, discriminated by State.
type Result struct {
	QueryID       string                `json:"query_id"`
	State         State                 `json:"-"`
	Answer        *domain.Answer        `json:"answer,omitempty"`
	Clarification *intent.Clarification `json:"clarification,omitempty"`
}

// Service drives the pipeline.
type Service struct {
	schemas     SchemaRegistry
	extractor   Extractor
	executor    Executor
	synthesizer Synthesizer
	cache       *reqcache.Flight
	cfg         config.PipelineConfig
	cacheCfg    config.CacheConfig
	logger      *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

// New creates the orchestrator.
func New(
	schemas SchemaRegistry,
	extractor Extractor,
	executor Executor,
	synthesizer Synthesizer,
	cache *reqcache.Flight,
	cfg config.PipelineConfig,
	cacheCfg config.CacheConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		schemas:     schemas,
		extractor:   extractor,
		executor:    executor,
		synthesizer: synthesizer,
		cache:       cache,
		cfg:         cfg,
		cacheCfg:    cacheCfg,
		logger:      logger,
		running:     make(map[string]context.CancelCauseFunc),
	}
}

// Submit runs one query to a terminal state. Every exit path is Done,
// Clarifying, Failed, or Cancelled; callers never see a hung request.
// queryID is the cancellation handle; clients that want to cancel from
// a second connection supply their own, an empty one is generated.
func (s *Service) Submit(ctx context.Context, queryID, rawText string, history []domain.Turn, schemaID string) (Result, error) {
	sch, err := s.schemas.Get(schemaID)
	if err != nil {
		return Result{}, err
	}

	if queryID == "" {
		queryID = uuid.NewString()
	}
	q := domain.Query{
		ID:       queryID,
		RawText:  rawText,
		History:  history,
		SchemaID: schemaID,
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	ctx, cancelTimeout := context.WithTimeoutCause(ctx, s.cfg.TotalTimeout(), domain.ErrTimeout)
	defer cancelTimeout()

	if !s.register(q.ID, cancel) {
		return Result{}, fmt.Errorf("query %q is already running: %w", q.ID, domain.ErrConstraint)
	}
	defer s.unregister(q.ID)

	t := newTracker(time.Now)
	res, err := s.run(ctx, t, q, sch)
	if err != nil {
		classified, terminal := s.classify(ctx, err)
		breakdown := t.breakdown(terminal)
		metrics.PipelineRequestsTotal.WithLabelValues(schemaID, terminal.String()).Inc()
		s.logger.Warn("pipeline terminal failure",
			zap.String("query_id", q.ID),
			zap.String("schema", schemaID),
			zap.String("state", terminal.String()),
			zap.Duration("total", breakdown.Total),
			zap.Error(classified),
		)
		return Result{QueryID: q.ID, State: terminal}, classified
	}

	metrics.PipelineRequestsTotal.WithLabelValues(schemaID, res.State.String()).Inc()
	return res, nil
}

// Cancel aborts the identified run at its next suspension point.
// Returns false if the query is not running.
func (s *Service) Cancel(queryID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[queryID]
	s.mu.Unlock()
	if ok {
		cancel(domain.ErrCancelled)
	}
	return ok
}

// run executes the stage sequence. Stages run strictly in order within
// one query; errors propagate to Submit for terminal classification.
func (s *Service) run(ctx context.Context, t *tracker, q domain.Query, sch schema.Schema) (Result, error) {
	t.transition(StateAnalyzing)
	outcome, err := s.extractCached(ctx, q, sch)
	if err != nil {
		return Result{}, err
	}
	if outcome.NeedsClarification {
		// Terminal for this request: the caller answers the question in
		// a fresh query.
		breakdown := t.breakdown(StateClarifying)
		s.logger.Info("clarification requested",
			zap.String("query_id", q.ID),
			zap.String("schema", q.SchemaID),
			zap.Duration("total", breakdown.Total),
		)
		clar := outcome.Clarification
		return Result{QueryID: q.ID, State: StateClarifying, Clarification: &clar}, nil
	}

	t.transition(StateCompiling)
	compiled := plan.Compile(outcome.Intent, sch, plan.Options{
		MinConfidence: s.cfg.MinConfidence,
		Limit:         s.cfg.ResultLimit,
	})

	t.transition(StateExecuting)
	set, err := s.executeCached(ctx, compiled, sch)
	if err != nil {
		return Result{}, err
	}

	t.transition(StateAssembling)
	window := evidence.Assemble(set, compiled, sch, s.cfg.ContextBudgetRunes)

	t.transition(StateGenerating)
	ans, err := s.synthesizer.Synthesize(ctx, q, window)
	if err != nil {
		return Result{}, err
	}
	if !ans.GroundingOK {
		ans.Text += answer.Disclaimer
	}

	ans.Latency = t.breakdown(StateDone)
	s.logger.Info("pipeline done",
		zap.String("query_id", q.ID),
		zap.String("schema", q.SchemaID),
		zap.Bool("grounding_ok", ans.GroundingOK),
		zap.Int("evidence", len(ans.EvidenceIDs)),
		zap.Bool("truncated", window.Truncated),
		zap.Duration("total", ans.Latency.Total),
	)
	return Result{QueryID: q.ID, State: StateDone, Answer: &ans}, nil
}

// extractCached memoizes extraction by normalized text. Concurrent
// identical queries collapse into one model call.
func (s *Service) extractCached(ctx context.Context, q domain.Query, sch schema.Schema) (extract.Outcome, error) {
	key := reqcache.IntentKey(s.cacheCfg.KeyPrefix, q.SchemaID, q.NormalizedText())
	data, err := s.cache.Do(ctx, "intent", key, s.cacheCfg.IntentTTL(), s.cfg.ExtractTimeout(),
		func(ctx context.Context) ([]byte, error) {
			outcome, err := s.extractor.Extract(ctx, q, sch)
			if err != nil {
				return nil, err
			}
			return json.Marshal(outcome)
		})
	if err != nil {
		return extract.Outcome{}, err
	}
	var outcome extract.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return extract.Outcome{}, fmt.Errorf("decode cached intent: %w", err)
	}
	return outcome, nil
}

// executeCached memoizes graph execution by compiled-query fingerprint.
func (s *Service) executeCached(ctx context.Context, compiled plan.CompiledQuery, sch schema.Schema) (domain.ResultSet, error) {
	key := reqcache.ResultKey(s.cacheCfg.KeyPrefix, compiled.SchemaID, compiled.Fingerprint())
	data, err := s.cache.Do(ctx, "result", key, s.cacheCfg.ResultTTL(), s.cfg.ExecuteTimeout(),
		func(ctx context.Context) ([]byte, error) {
			set, err := s.executor.Execute(ctx, compiled, sch)
			if err != nil {
				return nil, err
			}
			return json.Marshal(set)
		})
	if err != nil {
		return domain.ResultSet{}, err
	}
	var set domain.ResultSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.ResultSet{}, fmt.Errorf("decode cached result set: %w", err)
	}
	return set, nil
}

// classify maps a stage error onto the terminal state and the
// caller-visible classification.
func (s *Service) classify(ctx context.Context, err error) (error, State) {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, domain.ErrCancelled), errors.Is(err, domain.ErrCancelled):
		return domain.ErrCancelled, StateCancelled
	case errors.Is(cause, domain.ErrTimeout):
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout), StateFailed
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout), StateFailed
	case errors.Is(err, context.Canceled):
		return domain.ErrCancelled, StateCancelled
	default:
		return err, StateFailed
	}
}

func (s *Service) register(id string, cancel context.CancelCauseFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[id]; ok {
		return false
	}
	s.running[id] = cancel
	return true
}

func (s *Service) unregister(id string) {
	s.mu.Lock()
	delete(s.running, id)
	s.mu.Unlock()
}
