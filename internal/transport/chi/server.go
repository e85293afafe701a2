// Package chi exposes the clauseidx HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search/request"
	"github.com/lawman-hq/clauseidx/internal/domain/search/result"
	askuc "github.com/lawman-hq/clauseidx/internal/usecase/ask"
	healthuc "github.com/lawman-hq/clauseidx/internal/usecase/health"
	ingestuc "github.com/lawman-hq/clauseidx/internal/usecase/ingest"
)

// ErrorCode identifies a machine-readable error class in responses.
type ErrorCode string

const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeIndexNotFound        ErrorCode = "index_not_found"
	CodeDimensionMismatch    ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeQueryTimeout         ErrorCode = "query_timeout"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestService accepts clause batches for dual-store indexing.
type IngestService interface {
	Ingest(ctx context.Context, indexName string, inputs []ingestuc.Input, reset bool) (domain.IngestReport, error)
}

// AskService runs hybrid queries.
type AskService interface {
	Ask(ctx context.Context, indexName string, req *request.Request) (*askuc.Answer, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services to HTTP handlers.
type Server struct {
	ingest        IngestService
	ask           AskService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(ingest IngestService, ask AskService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		ingest: ingest,
		ask:    ask,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, CodeDimensionMismatch),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrQueryTimeout, http.StatusGatewayTimeout, CodeQueryTimeout),
	}
	return s
}

// Routes registers all API routes on the given router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/ingest", s.Ingest)
	r.Post("/ask", s.Ask)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// ClausePayload is the wire form of one clause record.
type ClausePayload struct {
	ContractID string `json:"contract_id"`
	ClauseID   string `json:"clause_id"`
	Heading    string `json:"heading,omitempty"`
	Text       string `json:"text"`
	Page       int    `json:"page,omitempty"`
	LineStart  int    `json:"line_start,omitempty"`
	LineEnd    int    `json:"line_end,omitempty"`
	Lang       string `json:"lang,omitempty"`
	Source     string `json:"source,omitempty"`
}

// IngestRequest is the POST /ingest body.
type IngestRequest struct {
	IndexName string          `json:"index_name"`
	Reset     bool            `json:"reset,omitempty"`
	Clauses   []ClausePayload `json:"clauses"`
}

// BatchFailurePayload reports one batch that did not commit.
type BatchFailurePayload struct {
	Offset int    `json:"offset"`
	Count  int    `json:"count"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// IngestResponse is the POST /ingest reply.
type IngestResponse struct {
	IndexName      string                `json:"index_name"`
	CollectionName string                `json:"collection_name"`
	IndexedCount   int                   `json:"indexed_count"`
	Reset          bool                  `json:"reset"`
	Failures       []BatchFailurePayload `json:"failures,omitempty"`
}

// Ingest handles POST /ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.IndexName == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "index_name is required")
		return
	}
	if len(req.Clauses) == 0 && !req.Reset {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "clauses must not be empty unless reset is set")
		return
	}

	inputs := make([]ingestuc.Input, len(req.Clauses))
	for i, c := range req.Clauses {
		inputs[i] = ingestuc.Input{
			ContractID: c.ContractID,
			ClauseID:   c.ClauseID,
			Heading:    c.Heading,
			Text:       c.Text,
			Page:       c.Page,
			LineStart:  c.LineStart,
			LineEnd:    c.LineEnd,
			Lang:       c.Lang,
			Source:     c.Source,
		}
	}

	report, err := s.ingest.Ingest(r.Context(), req.IndexName, inputs, req.Reset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Partial failures are reported in the body, not as a request error.
	writeJSON(w, http.StatusOK, ingestReportToWire(report))
}

// AskRequest is the POST /ask body. TopK and Alpha default to 10 and 0.5
// when omitted; an explicit invalid value (top_k <= 0) is rejected.
type AskRequest struct {
	IndexName string   `json:"index_name"`
	Query     string   `json:"query"`
	TopK      *int     `json:"top_k,omitempty"`
	Alpha     *float64 `json:"alpha,omitempty"`
	Rerank    bool     `json:"rerank,omitempty"`
}

// ResultPayload is one ranked clause in the reply.
type ResultPayload struct {
	ContractID   string   `json:"contract_id"`
	ClauseID     string   `json:"clause_id"`
	Heading      string   `json:"heading,omitempty"`
	TextSnippet  string   `json:"text_snippet"`
	Page         int      `json:"page,omitempty"`
	LineRange    [2]int   `json:"line_range"`
	Lang         string   `json:"lang,omitempty"`
	LexicalScore float64  `json:"lexical_score"`
	VectorScore  float64  `json:"vector_score"`
	FusedScore   float64  `json:"fused_score"`
	RerankScore  *float64 `json:"rerank_score,omitempty"`
	Highlight    []string `json:"highlight,omitempty"`
}

// AskResponse is the POST /ask reply.
type AskResponse struct {
	Query    string          `json:"query"`
	Reranked bool            `json:"reranked"`
	Results  []ResultPayload `json:"results"`
}

// Ask handles POST /ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.IndexName == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "index_name is required")
		return
	}

	topK := request.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	alpha := request.DefaultAlpha
	if req.Alpha != nil {
		alpha = *req.Alpha
	}

	query, err := request.New(req.Query, topK, alpha, req.Rerank)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	answer, err := s.ask.Ask(r.Context(), req.IndexName, &query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := AskResponse{
		Query:    answer.Query,
		Reranked: answer.Reranked,
		Results:  make([]ResultPayload, len(answer.Results)),
	}
	for i := range answer.Results {
		resp.Results[i] = resultToWire(&answer.Results[i])
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func ingestReportToWire(report domain.IngestReport) IngestResponse {
	resp := IngestResponse{
		IndexName:      report.IndexName,
		CollectionName: report.CollectionName,
		IndexedCount:   report.IndexedCount,
		Reset:          report.Reset,
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, BatchFailurePayload{
			Offset: f.Offset,
			Count:  f.Count,
			Stage:  f.Stage,
			Error:  safeDomainMessage(f.Err),
		})
	}
	return resp
}

func resultToWire(res *result.Result) ResultPayload {
	clause := res.Clause()
	item := ResultPayload{
		ContractID:   clause.ContractID(),
		ClauseID:     clause.ClauseID(),
		Heading:      clause.Heading(),
		TextSnippet:  res.Snippet(),
		Page:         clause.Page(),
		LineRange:    [2]int{clause.LineStart(), clause.LineEnd()},
		Lang:         clause.Lang(),
		LexicalScore: res.LexicalScore(),
		VectorScore:  res.VectorScore(),
		FusedScore:   res.FusedScore(),
		Highlight:    res.Highlights(),
	}
	if score, ok := res.RerankScore(); ok {
		item.RerankScore = &score
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrDimensionMismatch,
		domain.ErrIndexNotFound,
		domain.ErrCollectionNotFound,
		domain.ErrEmbeddingUnavailable,
		domain.ErrQueryTimeout,
		domain.ErrRerankUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
