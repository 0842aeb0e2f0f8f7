package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/api"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 📄 文档维护 Handler
// =============================================================================

// DocumentsHandler 文档摄取、更新、删除与关系维护。
type DocumentsHandler struct {
	engine Engine
	logger *zap.Logger
}

// NewDocumentsHandler 创建文档处理器。
func NewDocumentsHandler(engine Engine, logger *zap.Logger) *DocumentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentsHandler{engine: engine, logger: logger}
}

// HandleDocuments 处理 POST（摄取）与 PUT（更新）。
// 请求体是一份 api.DocumentRequest，元数据包经解析器收敛。
func (h *DocumentsHandler) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodPut:
	default:
		WriteMethodNotAllowed(w, "POST, PUT")
		return
	}

	var req api.DocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	doc := req.ToDocument()

	var err error
	if r.Method == http.MethodPost {
		err = h.engine.Ingest(r.Context(), doc)
	} else {
		err = h.engine.Update(r.Context(), doc)
	}
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("document stored",
		zap.String("document_id", doc.ID),
		zap.String("method", r.Method),
	)
	WriteSuccess(w, map[string]string{"document_id": doc.ID})
}

// HandleDocumentByID 处理 DELETE /api/v1/documents/{id}。
func (h *DocumentsHandler) HandleDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteMethodNotAllowed(w, http.MethodDelete)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "document id is required"), h.logger)
		return
	}

	if err := h.engine.Remove(r.Context(), id); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("document removed", zap.String("document_id", id))
	WriteSuccess(w, map[string]string{"document_id": id})
}

// HandleRelations 处理 POST /api/v1/relations，手工补充图谱边。
func (h *DocumentsHandler) HandleRelations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req api.RelationRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.engine.AddRelation(req.Source, req.Target, req.Kind, req.Strength)
	WriteSuccess(w, map[string]string{"source": req.Source, "target": req.Target})
}
