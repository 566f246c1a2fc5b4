package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// chatCompletionResponse mirrors the OpenAI-compatible chat response.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	resp := chatCompletionResponse{ID: "cmpl-1", Object: "chat.completion", Model: "test-model"}
	resp.Choices = append(resp.Choices, struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}{})
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = content
	resp.Choices[0].FinishReason = "stop"
	resp.Usage.TotalTokens = 12
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "server_error"},
	})
}

func TestGeneratorGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		writeCompletion(w, "了解しました。")
	}))
	defer server.Close()

	gen := NewGenerator(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		MaxAttempts: 1,
		Logger:      zap.NewNop(),
	})

	text, err := gen.Generate(context.Background(), "extract", Request{Prompt: "こんにちは"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "了解しました。" {
		t.Errorf("unexpected completion: %q", text)
	}
}

func TestGeneratorRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeAPIError(w, http.StatusInternalServerError, "upstream failure")
			return
		}
		writeCompletion(w, "三回目で成功")
	}))
	defer server.Close()

	gen := NewGenerator(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		Logger:      zap.NewNop(),
	})

	text, err := gen.Generate(context.Background(), "generate", Request{Prompt: "質問"})
	if err != nil {
		t.Fatalf("Generate failed after retries: %v", err)
	}
	if text != "三回目で成功" {
		t.Errorf("unexpected completion: %q", text)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGeneratorRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusInternalServerError, "upstream failure")
	}))
	defer server.Close()

	gen := NewGenerator(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		MaxAttempts: 3,
		BackoffBase: 10 * time.Millisecond,
		Logger:      zap.NewNop(),
	})
	var delays []time.Duration
	gen.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := gen.Generate(context.Background(), "generate", Request{Prompt: "質問"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("exhausted retries must surface ErrServiceUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", got)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("backoff must double per attempt, got %v", delays)
	}
}

func TestGeneratorNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusBadRequest, "bad request")
	}))
	defer server.Close()

	gen := NewGenerator(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		Logger:      zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), "extract", Request{Prompt: "質問"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("client errors must not retry, got %d attempts", got)
	}
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"server error",
			&openai.APIError{HTTPStatusCode: 500, Message: "internal"},
			domain.ErrConnectivity,
		},
		{
			"rate limited",
			&openai.APIError{HTTPStatusCode: 429, Message: "slow down"},
			domain.ErrConnectivity,
		},
		{
			"client error",
			&openai.APIError{HTTPStatusCode: 400, Message: "bad request"},
			domain.ErrServiceUnavailable,
		},
		{
			"request error",
			&openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")},
			domain.ErrConnectivity,
		},
		{
			"plain error",
			errors.New("dial tcp: connection refused"),
			domain.ErrConnectivity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyAPIError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyAPIErrorContextPassThrough(t *testing.T) {
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		got := classifyAPIError(err)
		if !errors.Is(got, err) {
			t.Errorf("classifyAPIError(%v) = %v", err, got)
		}
		if errors.Is(got, domain.ErrConnectivity) || errors.Is(got, domain.ErrServiceUnavailable) {
			t.Errorf("context errors must pass through unclassified: %v", got)
		}
	}
}
