// Package extract turns free text into a structured intent via the
// model endpoint, or into a clarification request when the query is too
// ambiguous to compile.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/intent"
	"github.com/kitaq-care/soudan/internal/domain/schema"
	"github.com/kitaq-care/soudan/internal/transport/openai"
)

// Outcome is the extraction result: either a usable intent or a
// clarification question for the caller. Exactly one is meaningful,
// discriminated by NeedsClarification.
type Outcome struct {
	Intent             intent.Intent        `json:"intent"`
	NeedsClarification bool                 `json:"needs_clarification"`
	Clarification      intent.Clarification `json:"clarification,omitempty"`
}

// Service is the intent extractor.
type Service struct {
	gen             Generator
	minConfidence   float64
	maxParseRetries int
	temperature     float32
	logger          *zap.Logger
}

// New creates an extractor. maxParseRetries bounds re-prompts after
// unparseable output; the total attempt count is maxParseRetries+1.
func New(gen Generator, minConfidence float64, maxParseRetries int, temperature float32, logger *zap.Logger) *Service {
	return &Service{
		gen:             gen,
		minConfidence:   minConfidence,
		maxParseRetries: maxParseRetries,
		temperature:     temperature,
		logger:          logger,
	}
}

// Extract analyzes the query under the schema. Parse failures are
// retried with a stricter reformat instruction up to the bound, then
// surface as ErrAnalysis. Ambiguity is not an error: it yields an
// Outcome carrying the clarification question.
func (s *Service) Extract(ctx context.Context, q domain.Query, sch schema.Schema) (Outcome, error) {
	system := systemPrompt(sch)

	var lastErr error
	for attempt := 0; attempt <= s.maxParseRetries; attempt++ {
		if attempt > 0 {
			system = systemPrompt(sch) + reformatInstruction
		}

		raw, err := s.gen.Generate(ctx, "extract", openai.Request{
			System:      system,
			Prompt:      q.RawText,
			History:     q.History,
			Temperature: s.temperature,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("extraction call: %w", err)
		}

		in, clarification, err := parseResponse(raw, sch.ID)
		if err != nil {
			lastErr = err
			s.logger.Warn("unparseable extraction output",
				zap.Int("attempt", attempt+1),
				zap.String("schema", sch.ID),
				zap.Error(err),
			)
			continue
		}

		return s.route(in, clarification), nil
	}

	return Outcome{}, fmt.Errorf("%v: %w", lastErr, domain.ErrAnalysis)
}

// route decides between intent and clarification: the model's explicit
// ambiguity flag, or no dimension reaching the confidence floor.
func (s *Service) route(in intent.Intent, clarification string) Outcome {
	if in.Ambiguous || !in.HasConfident(s.minConfidence) {
		if clarification == "" {
			clarification = "どの地域で、どのようなサービスをお探しか教えていただけますか？"
		}
		in.Ambiguous = true
		return Outcome{
			Intent:             in,
			NeedsClarification: true,
			Clarification:      intent.Clarification{Question: clarification},
		}
	}
	return Outcome{Intent: in}
}
