package rag

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// ⚖️ 矛盾检测
// =============================================================================
// 对幸存块两两比较（结果集已被 max_results 截断，O(n²) 可接受）。
// 本阶段只标注不删除：冲突的权威本身对法律读者有用。
// =============================================================================

// ContradictionDetector 检测结果集内的冲突权威。
// 严重性只能由结果中实际存在的块计算，不前瞻未检索的文档。
type ContradictionDetector struct {
	logger *zap.Logger
}

// NewContradictionDetector 创建矛盾检测器。
func NewContradictionDetector(logger *zap.Logger) *ContradictionDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContradictionDetector{logger: logger.With(zap.String("component", "contradiction_detector"))}
}

// 立场标记词：块文本对这些谓词的肯定/否定立场用于判定直接冲突
var holdingMarkers = []string{
	"permitted", "prohibited", "allowed", "enforceable", "valid",
	"liable", "required", "constitutional", "admissible", "binding",
}

// 否定前缀
var negations = []string{"not ", "never ", "no longer ", "n't "}

// Detect 返回文档对级别的矛盾发现，按 (文档A, 文档B, 类型) 去重排序。
func (d *ContradictionDetector) Detect(chunks []types.ScoredChunk, docs map[string]types.LegalDocument) []types.ContradictionInfo {
	type pairKey struct {
		a, b string
		t    types.ConflictType
	}
	found := make(map[pairKey]types.ContradictionInfo)

	for i := 0; i < len(chunks); i++ {
		for j := i + 1; j < len(chunks); j++ {
			a, b := &chunks[i].Chunk, &chunks[j].Chunk
			if a.DocumentID == b.DocumentID {
				continue
			}
			docA, okA := docs[a.DocumentID]
			docB, okB := docs[b.DocumentID]
			if !okA || !okB {
				continue
			}
			if !sharedTopic(a, b) {
				continue
			}

			info, ok := d.compare(a, b, &docA, &docB)
			if !ok {
				continue
			}
			key := pairKey{a: info.DocumentA, b: info.DocumentB, t: info.Type}
			if _, dup := found[key]; !dup {
				found[key] = info
			}
		}
	}

	out := make([]types.ContradictionInfo, 0, len(found))
	for _, info := range found {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentA != out[j].DocumentA {
			return out[i].DocumentA < out[j].DocumentA
		}
		if out[i].DocumentB != out[j].DocumentB {
			return out[i].DocumentB < out[j].DocumentB
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// compare 判定一对块是否冲突及其类型与严重性。
// 文档对按 ID 归一化排序，保证 (A,B) 与 (B,A) 产生同一发现。
func (d *ContradictionDetector) compare(a, b *types.Chunk, docA, docB *types.LegalDocument) (types.ContradictionInfo, bool) {
	marker, opposed := opposedStance(a.Content, b.Content)

	switch {
	case opposed && docA.Jurisdiction == docB.Jurisdiction:
		// 同辖区对同一谓词持相反立场：直接冲突
		severity := types.SeverityMedium
		if bindingDoc(docA) && bindingDoc(docB) {
			severity = types.SeverityHigh
		}
		return normalizedInfo(docA, docB, types.ConflictDirect, severity, fmt.Sprintf(
			"documents hold opposite positions on %q within jurisdiction %s",
			marker, docA.Jurisdiction)), true

	case opposed:
		// 不同辖区规则相反：辖区冲突
		severity := types.SeverityLow
		if bindingDoc(docA) || bindingDoc(docB) {
			severity = types.SeverityMedium
		}
		return normalizedInfo(docA, docB, types.ConflictJurisdictional, severity, fmt.Sprintf(
			"jurisdictions %s and %s state different rules on %q",
			docA.Jurisdiction, docB.Jurisdiction, marker)), true

	case docA.Jurisdiction == docB.Jurisdiction && supersedes(docA, docB):
		// 同辖区同主题的成文法规，后者在时间上取代前者
		severity := types.SeverityLow
		if bindingDoc(docA) && bindingDoc(docB) {
			severity = types.SeverityMedium
		}
		older, newer := docA, docB
		if docB.LastUpdated.Before(docA.LastUpdated) {
			older, newer = docB, docA
		}
		return normalizedInfo(docA, docB, types.ConflictTemporal, severity, fmt.Sprintf(
			"%s (%s) may supersede %s (%s) in jurisdiction %s",
			newer.Title, newer.LastUpdated.Format("2006-01-02"),
			older.Title, older.LastUpdated.Format("2006-01-02"),
			docA.Jurisdiction)), true
	}

	return types.ContradictionInfo{}, false
}

// sharedTopic 两块是否涉及重叠的法律概念或共同立场谓词
func sharedTopic(a, b *types.Chunk) bool {
	for _, c := range a.LegalConcepts {
		for _, cb := range b.LegalConcepts {
			if c == cb {
				return true
			}
		}
	}
	la, lb := strings.ToLower(a.Content), strings.ToLower(b.Content)
	for _, m := range holdingMarkers {
		if strings.Contains(la, m) && strings.Contains(lb, m) {
			return true
		}
	}
	return false
}

// opposedStance 返回首个双方立场相反的谓词。
func opposedStance(textA, textB string) (string, bool) {
	la, lb := strings.ToLower(textA), strings.ToLower(textB)
	for _, m := range holdingMarkers {
		sa, sb := stance(la, m), stance(lb, m)
		if sa != 0 && sb != 0 && sa != sb {
			return m, true
		}
	}
	return "", false
}

// stance 返回文本对谓词的立场：+1 肯定，-1 否定，0 未提及
func stance(lower, marker string) int {
	idx := strings.Index(lower, marker)
	if idx < 0 {
		return 0
	}
	prefix := lower[:idx]
	for _, neg := range negations {
		if strings.HasSuffix(prefix, neg) {
			return -1
		}
	}
	return 1
}

// supersedes 同主题成文法规、更新时间相差超过一年时视为时间性取代
func supersedes(a, b *types.LegalDocument) bool {
	if !statutory(a.Type) || !statutory(b.Type) {
		return false
	}
	gap := a.LastUpdated.Sub(b.LastUpdated)
	if gap < 0 {
		gap = -gap
	}
	return gap > 365*24*time.Hour
}

func statutory(t types.DocumentType) bool {
	return t == types.DocTypeStatute || t == types.DocTypeRegulation
}

func bindingDoc(doc *types.LegalDocument) bool {
	return doc.Meta.PrecedentialValue == types.PrecedentBinding
}

// normalizedInfo 按文档 ID 排序 A/B，保证发现的键稳定
func normalizedInfo(docA, docB *types.LegalDocument, t types.ConflictType, s types.ConflictSeverity, explanation string) types.ContradictionInfo {
	a, b := docA.ID, docB.ID
	if b < a {
		a, b = b, a
	}
	return types.ContradictionInfo{
		DocumentA:   a,
		DocumentB:   b,
		Type:        t,
		Severity:    s,
		Explanation: explanation,
	}
}
