package rag

import (
	"fmt"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 📊 置信度评分
// =============================================================================

// ConfidenceScorer 把块级相似度、引用验证率、时间相关性和矛盾惩罚
// 合并为一个 [0,1] 标量，并产出人类可读的依据说明。
type ConfidenceScorer struct {
	cfg config.ConfidenceConfig
}

// NewConfidenceScorer 创建置信度评分器。
func NewConfidenceScorer(cfg config.ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg}
}

// Score 就地填写 result.Confidence 并追加依据说明。
// 高严重性矛盾越多，置信度严格越低（其他信号不变时）。
func (s *ConfidenceScorer) Score(result *types.RetrievalResult) {
	if len(result.Chunks) == 0 {
		result.Confidence = 0
		result.Reasoning = append(result.Reasoning, "no supporting chunks retrieved")
		return
	}

	similarity := meanFusedScore(result.Chunks)
	citationRate, verified, total := citationRate(result.Citations)
	temporal := meanTemporalRelevance(result.Chunks)

	base := s.cfg.SimilarityWeight*similarity +
		s.cfg.CitationWeight*citationRate +
		s.cfg.TemporalWeight*temporal

	penalty := 0.0
	var high, medium, low int
	for _, c := range result.Contradictions {
		switch c.Severity {
		case types.SeverityHigh:
			penalty += s.cfg.HighPenalty
			high++
		case types.SeverityMedium:
			penalty += s.cfg.MediumPenalty
			medium++
		default:
			penalty += s.cfg.LowPenalty
			low++
		}
	}

	result.Confidence = clamp01(base - penalty)

	result.Reasoning = append(result.Reasoning, similarityNote(similarity))
	if total > 0 {
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("%d of %d citations verified", verified, total))
	} else {
		result.Reasoning = append(result.Reasoning, "no citations to verify")
	}
	result.Reasoning = append(result.Reasoning,
		fmt.Sprintf("average temporal relevance %.2f", temporal))
	if high+medium+low > 0 {
		result.Reasoning = append(result.Reasoning, fmt.Sprintf(
			"contradiction penalty applied: %d high, %d medium, %d low (-%.2f)",
			high, medium, low, penalty))
	}
}

func similarityNote(similarity float64) string {
	switch {
	case similarity >= 0.5:
		return fmt.Sprintf("strong semantic match (avg fused score %.2f)", similarity)
	case similarity >= 0.2:
		return fmt.Sprintf("moderate semantic match (avg fused score %.2f)", similarity)
	default:
		return fmt.Sprintf("weak semantic match (avg fused score %.2f)", similarity)
	}
}

func meanFusedScore(chunks []types.ScoredChunk) float64 {
	sum := 0.0
	for _, c := range chunks {
		sum += clamp01(c.FusedScore)
	}
	return sum / float64(len(chunks))
}

func meanTemporalRelevance(chunks []types.ScoredChunk) float64 {
	sum := 0.0
	for _, c := range chunks {
		sum += clamp01(c.Chunk.TemporalRelevance)
	}
	return sum / float64(len(chunks))
}

// citationRate 返回验证比例。无引用时取中性值 0.5，
// 避免无引用语料被系统性压分或抬分。
func citationRate(citations []types.CitationInfo) (rate float64, verified, total int) {
	total = len(citations)
	if total == 0 {
		return 0.5, 0, 0
	}
	for _, c := range citations {
		if c.Verified {
			verified++
		}
	}
	return float64(verified) / float64(total), verified, total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
