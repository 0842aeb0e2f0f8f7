package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/api"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🔍 检索与问答 Handler
// =============================================================================

// QueryHandler 检索、问答与多跳端点。
type QueryHandler struct {
	engine Engine
	logger *zap.Logger
}

// NewQueryHandler 创建检索处理器。
func NewQueryHandler(engine Engine, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{engine: engine, logger: logger}
}

// HandleRetrieve 处理 POST /api/v1/retrieve，返回完整检索结果
// （排名、引用、矛盾、置信度、推理轨迹）。
func (h *QueryHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	qc, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Retrieve(r.Context(), qc)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// HandleAsk 处理 POST /api/v1/ask：先检索再走推理循环，
// 返回带引用与轨迹的回答。
func (h *QueryHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	qc, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Retrieve(r.Context(), qc)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	outcome, err := h.engine.Reason(r.Context(), qc.Query, result)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, outcome)
}

// HandleMultiHop 处理 POST /api/v1/multihop。
func (h *QueryHandler) HandleMultiHop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req api.MultiHopRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	result, err := h.engine.MultiHop(r.Context(), req.Query, req.Advanced)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// decodeQuery 解析并校验检索请求体。
func (h *QueryHandler) decodeQuery(w http.ResponseWriter, r *http.Request) (types.QueryContext, bool) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w, http.MethodPost)
		return types.QueryContext{}, false
	}

	var qc types.QueryContext
	if err := decodeJSON(r, &qc); err != nil {
		WriteError(w, err, h.logger)
		return types.QueryContext{}, false
	}
	if strings.TrimSpace(qc.Query) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "query is required"), h.logger)
		return types.QueryContext{}, false
	}
	return qc, true
}
