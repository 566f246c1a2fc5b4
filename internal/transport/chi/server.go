// Package chi is the HTTP API: query submission, cancellation, and
// health. Errors map onto machine-readable codes plus short,
// non-technical messages, so the calling UI can decide whether to offer
// a retry or a rephrase.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/domain"
	healthuc "github.com/kitaq-care/soudan/internal/usecase/health"
	pipelineuc "github.com/kitaq-care/soudan/internal/usecase/pipeline"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the pipeline over HTTP.
type Server struct {
	pipeline      *pipelineuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(pipeline *pipelineuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{pipeline: pipeline, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSchemaNotFound, http.StatusNotFound,
			"schema_not_found", "指定された検索ドメインが見つかりません。"),
		sentinelHandler(domain.ErrAnalysis, http.StatusUnprocessableEntity,
			"analysis_failed", "ご質問を解析できませんでした。表現を変えてお試しください。"),
		sentinelHandler(domain.ErrConstraint, http.StatusBadRequest,
			"constraint_violation", "検索条件を処理できませんでした。条件を変えてお試しください。"),
		sentinelHandler(domain.ErrGenerationTimeout, http.StatusGatewayTimeout,
			"generation_timeout", "回答の生成に時間がかかりすぎました。もう一度お試しください。"),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout,
			"timeout", "処理に時間がかかりすぎました。もう一度お試しください。"),
		sentinelHandler(domain.ErrServiceUnavailable, http.StatusServiceUnavailable,
			"service_unavailable", "現在サービスが混み合っています。しばらくしてからお試しください。"),
		sentinelHandler(domain.ErrConnectivity, http.StatusServiceUnavailable,
			"service_unavailable", "現在サービスに接続できません。しばらくしてからお試しください。"),
		sentinelHandler(domain.ErrCancelled, http.StatusBadRequest,
			"cancelled", "リクエストはキャンセルされました。"),
	}
	return s
}

// Routes mounts the API onto the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/queries", s.SubmitQuery)
	r.Delete("/v1/queries/{queryID}", s.CancelQuery)
	r.Get("/healthz", s.Healthz)
}

// submitRequest is the submission body. QueryID is optional; clients
// that want to cancel a run from a second connection supply their own
// handle and DELETE it while the submission is still in flight.
type submitRequest struct {
	QueryID  string        `json:"query_id"`
	Text     string        `json:"text"`
	History  []domain.Turn `json:"history"`
	SchemaID string        `json:"schema"`
}

// submitResponse wraps the terminal pipeline result.
type submitResponse struct {
	QueryID       string `json:"query_id"`
	Status        string `json:"status"` // answered / clarification
	Answer        any    `json:"answer,omitempty"`
	Clarification any    `json:"clarification,omitempty"`
}

// SubmitQuery handles POST /v1/queries.
func (s *Server) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "リクエスト形式が不正です。")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "質問文を入力してください。")
		return
	}
	if req.SchemaID == "" {
		req.SchemaID = "facility_search"
	}

	res, err := s.pipeline.Submit(r.Context(), req.QueryID, req.Text, req.History, req.SchemaID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := submitResponse{QueryID: res.QueryID}
	switch {
	case res.Clarification != nil:
		resp.Status = "clarification"
		resp.Clarification = res.Clarification
	default:
		resp.Status = "answered"
		resp.Answer = res.Answer
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelQuery handles DELETE /v1/queries/{queryID}.
func (s *Server) CancelQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "queryID")
	if !s.pipeline.Cancel(id) {
		writeError(w, http.StatusNotFound, "query_not_found", "該当する実行中のクエリがありません。")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"query_id": id, "status": "cancelling"})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// handleDomainError walks the sentinel table; unmatched errors become
// an opaque 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("unhandled pipeline error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "内部エラーが発生しました。")
}

func sentinelHandler(sentinel error, status int, code, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, message)
		return true
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
