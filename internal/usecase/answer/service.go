// Package answer synthesizes the final response from the assembled
// evidence window, with a post-hoc grounding check.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/evidence"
	"github.com/kitaq-care/soudan/internal/metrics"
	"github.com/kitaq-care/soudan/internal/transport/openai"
)

// noMatchAnswer is returned without a model call when the evidence
// window is empty.
const noMatchAnswer = "申し訳ございません。該当する事業所が見つかりませんでした。検索条件を変えて再度お試しください。"

// Disclaimer is appended by the orchestrator when grounding fails.
const Disclaimer = "\n\n※この回答には検索結果で確認できない情報が含まれている可能性があります。事業所へ直接ご確認ください。"

// Generator is the model-serving contract.
type Generator interface {
	Generate(ctx context.Context, call string, req openai.Request) (string, error)
}

// Service is the answer synthesizer.
type Service struct {
	gen             Generator
	temperature     float32
	maxTokens       int
	generateTimeout time.Duration
	logger          *zap.Logger
}

// New creates a synthesizer.
func New(gen Generator, temperature float32, maxTokens int, generateTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		gen:             gen,
		temperature:     temperature,
		maxTokens:       maxTokens,
		generateTimeout: generateTimeout,
		logger:          logger,
	}
}

// Synthesize generates the grounded answer for the query. An empty
// window yields the canned no-match answer without touching the model,
// so nothing facility-like can ever be invented for zero matches.
// Generation beyond its budget surfaces as ErrGenerationTimeout.
func (s *Service) Synthesize(ctx context.Context, q domain.Query, w evidence.Window) (domain.Answer, error) {
	if w.Empty() {
		return domain.Answer{Text: noMatchAnswer, GroundingOK: true}, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	text, err := s.gen.Generate(genCtx, "generate", openai.Request{
		System:      groundingSystemPrompt,
		Prompt:      userPrompt(q, w),
		History:     q.History,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.Answer{}, fmt.Errorf("answer generation: %w", domain.ErrGenerationTimeout)
		}
		return domain.Answer{}, fmt.Errorf("answer generation: %w", err)
	}

	ids := w.IDs()
	ok := checkGrounding(text, ids)
	if !ok {
		metrics.GroundingViolationsTotal.Inc()
		s.logger.Warn("grounding violation",
			zap.String("schema", q.SchemaID),
			zap.Strings("evidence_ids", ids),
		)
	}

	return domain.Answer{Text: text, GroundingOK: ok, EvidenceIDs: ids}, nil
}
