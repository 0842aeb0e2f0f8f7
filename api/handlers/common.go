package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/rag"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/reasoning"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🎯 Engine 依赖接口
// =============================================================================

// Engine 是处理器依赖的管线能力集合，由根包 Engine 实现。
type Engine interface {
	Ingest(ctx context.Context, doc *types.LegalDocument) error
	Update(ctx context.Context, doc *types.LegalDocument) error
	Remove(ctx context.Context, documentID string) error
	AddRelation(source, target string, kind types.RelationKind, strength float64)
	Retrieve(ctx context.Context, qc types.QueryContext) (*types.RetrievalResult, error)
	Reason(ctx context.Context, query string, result *types.RetrievalResult) (*reasoning.Outcome, error)
	MultiHop(ctx context.Context, query string, advanced bool) (*rag.MultiHopResult, error)
	SystemStatus(ctx context.Context) types.SystemStatus
}

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构。
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo 错误信息结构。
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应。
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	// 编码失败时响应头已写出，只能放弃
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应。
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError 写入错误响应。结构化错误按错误码映射状态码，
// 其余一律 500。
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	code := types.ErrInternalError
	message := "internal error"
	component := ""
	retryable := false

	var structured *types.Error
	if errors.As(err, &structured) {
		code = structured.Code
		message = structured.Message
		component = structured.Component
		retryable = structured.Retryable
	}

	status := mapErrorCodeToHTTPStatus(code)
	if logger != nil {
		logger.Error("api error",
			zap.String("code", string(code)),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(code),
			Message:   message,
			Component: component,
			Retryable: retryable,
		},
		Timestamp: time.Now(),
	})
}

// WriteMethodNotAllowed 写入 405 响应。
func WriteMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteJSON(w, http.StatusMethodNotAllowed, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(types.ErrInvalidRequest),
			Message: "method not allowed",
		},
		Timestamp: time.Now(),
	})
}

// decodeJSON 解析请求体，拒绝未知字段。
func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return types.NewError(types.ErrInvalidRequest, "invalid request body").WithCause(err)
	}
	return nil
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case types.ErrInvalidRequest, types.ErrInvalidDocument:
		return http.StatusBadRequest
	case types.ErrDocumentNotFound:
		return http.StatusNotFound
	case types.ErrRateLimited:
		return http.StatusTooManyRequests

	// 上游能力故障
	case types.ErrEmbeddingFailed, types.ErrGenerationFailed,
		types.ErrRerankFailed, types.ErrCitationLookupFailed,
		types.ErrVectorSearchFailed:
		return http.StatusBadGateway
	case types.ErrTimeout:
		return http.StatusGatewayTimeout

	// 存储与内部错误
	case types.ErrStoreFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
