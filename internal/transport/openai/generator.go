// Package openai is the model-serving transport. It speaks the
// OpenAI-compatible chat API, which local servers (Ollama, vLLM) and
// hosted providers expose alike.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/metrics"
)

// Config holds the model endpoint settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
	BackoffBase time.Duration
	Logger      *zap.Logger
}

// Generator issues chat completions against the configured endpoint,
// retrying transient failures with exponential backoff.
type Generator struct {
	client      *openai.Client
	model       string
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerator creates a model client.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxAttempts: maxAttempts,
		backoffBase: cfg.BackoffBase,
		logger:      cfg.Logger,
		sleep:       sleepCtx,
	}
}

// Request holds one generation call.
type Request struct {
	System      string
	Prompt      string
	History     []domain.Turn
	Temperature float32
	MaxTokens   int
}

// Generate returns the model's completion text. call labels the
// metrics series ("extract" or "generate"). Transient endpoint failures
// retry with exponential backoff up to the attempt bound, then surface
// as ErrServiceUnavailable.
func (g *Generator) Generate(ctx context.Context, call string, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.Prompt,
	})

	var lastErr error
	delay := g.backoffBase
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		start := time.Now()
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		duration := time.Since(start)

		if err == nil {
			if len(resp.Choices) == 0 {
				metrics.ModelRequestsTotal.WithLabelValues(call, "error").Inc()
				return "", fmt.Errorf("empty completion response: %w", domain.ErrServiceUnavailable)
			}
			metrics.ModelRequestsTotal.WithLabelValues(call, "success").Inc()
			metrics.ModelRequestDuration.WithLabelValues(call).Observe(duration.Seconds())
			if resp.Usage.TotalTokens > 0 {
				metrics.ModelTokensTotal.WithLabelValues(call).Add(float64(resp.Usage.TotalTokens))
			}
			return resp.Choices[0].Message.Content, nil
		}

		metrics.ModelRequestsTotal.WithLabelValues(call, "error").Inc()
		classified := classifyAPIError(err)
		if !errors.Is(classified, domain.ErrConnectivity) {
			return "", classified
		}

		lastErr = classified
		if attempt == g.maxAttempts {
			break
		}

		metrics.ModelRetriesTotal.Inc()
		g.logger.Warn("model call retry",
			zap.String("call", call),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", fmt.Errorf("model call after %d attempts: %v: %w",
		g.maxAttempts, lastErr, domain.ErrServiceUnavailable)
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

// HealthCheck verifies endpoint availability via ListModels (the cheap
// endpoint), so submissions can fail fast when the model is down.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w: %w", err, domain.ErrServiceUnavailable)
	}
	return nil
}

// classifyAPIError maps client errors onto the pipeline taxonomy.
func classifyAPIError(err error) error {
	// Deadline and cancellation pass through unchanged; the owning
	// stage maps them onto its own timeout classification.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429 {
			return fmt.Errorf("model API error %d: %s: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrConnectivity)
		}
		return fmt.Errorf("model API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrServiceUnavailable)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("model request error %d: %w",
			reqErr.HTTPStatusCode, domain.ErrConnectivity)
	}

	return fmt.Errorf("model request failed: %v: %w", err, domain.ErrConnectivity)
}
