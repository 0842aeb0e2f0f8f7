package api

import (
	"strings"
	"time"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 📦 请求结构
// =============================================================================

// DocumentRequest 文档摄取/更新请求。Meta 是开放的键值包，
// 经 types.ParseDocumentMeta 收敛为封闭结构：未知键与类型错误的
// 已知键记入 Quarantined，从不带着未定型的值进入管线。
type DocumentRequest struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Content      string             `json:"content"`
	Jurisdiction string             `json:"jurisdiction"`
	Type         types.DocumentType `json:"type"`
	LastUpdated  time.Time          `json:"last_updated,omitempty"`
	Citations    []string           `json:"citations,omitempty"`
	Meta         map[string]any     `json:"meta,omitempty"`
}

// ToDocument 转换为语料库文档，元数据经解析器收敛。
func (r *DocumentRequest) ToDocument() *types.LegalDocument {
	return &types.LegalDocument{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		Jurisdiction: r.Jurisdiction,
		Type:         r.Type,
		LastUpdated:  r.LastUpdated,
		Citations:    r.Citations,
		Meta:         types.ParseDocumentMeta(r.Meta),
	}
}

// RelationRequest 手工添加一条文档关系边。
type RelationRequest struct {
	Source   string             `json:"source"`
	Target   string             `json:"target"`
	Kind     types.RelationKind `json:"kind"`
	Strength float64            `json:"strength"`
}

// Validate 校验关系请求。
func (r *RelationRequest) Validate() error {
	if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
		return types.NewError(types.ErrInvalidRequest, "relation source and target are required")
	}
	if r.Source == r.Target {
		return types.NewError(types.ErrInvalidRequest, "relation cannot point at its own document")
	}
	if r.Strength < 0 || r.Strength > 1 {
		return types.NewError(types.ErrInvalidRequest, "relation strength must be in [0, 1]")
	}
	return nil
}

// MultiHopRequest 多跳检索请求。Advanced 为真时跳过复杂度判定，
// 直接走多跳分解。
type MultiHopRequest struct {
	Query    string `json:"query"`
	Advanced bool   `json:"advanced,omitempty"`
}

// Validate 校验多跳请求。
func (r *MultiHopRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return types.NewError(types.ErrInvalidRequest, "query is required")
	}
	return nil
}
