package rag

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 📄 文档分块与富集
// =============================================================================

// Chunker 将法律文档切分为句边界对齐的重叠块，并为每块提取
// 法律概念、引用字符串和时间相关性评分。
type Chunker struct {
	cfg       config.ChunkingConfig
	tokenizer Tokenizer
	logger    *zap.Logger
	now       func() time.Time
}

// NewChunker 创建文档分块器。
func NewChunker(cfg config.ChunkingConfig, tokenizer Tokenizer, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokenizer == nil {
		tokenizer = NewEstimatorTokenizer()
	}
	return &Chunker{
		cfg:       cfg,
		tokenizer: tokenizer,
		logger:    logger.With(zap.String("component", "chunker")),
		now:       time.Now,
	}
}

// Chunk 将文档切分为有序块列表。
// 空文档或无法切分的文档返回零个块，不是错误。
func (c *Chunker) Chunk(doc *types.LegalDocument) []types.Chunk {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	sentences := splitSentences(doc.Content)
	if len(sentences) == 0 {
		return nil
	}

	// 按句累积，加入下一句会超出 MaxChunkTokens 时封块
	var pieces []string
	var current []string
	currentTokens := 0
	for _, s := range sentences {
		n := c.tokenizer.CountTokens(s)
		if len(current) > 0 && currentTokens+n > c.cfg.MaxChunkTokens {
			pieces = append(pieces, strings.Join(current, " "))
			current = current[:0]
			currentTokens = 0
		}
		current = append(current, s)
		currentTokens += n
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}

	// 过小的尾块并入前一块
	if len(pieces) > 1 {
		last := pieces[len(pieces)-1]
		if c.tokenizer.CountTokens(last) < c.cfg.MinChunkTokens {
			pieces[len(pieces)-2] = pieces[len(pieces)-2] + " " + last
			pieces = pieces[:len(pieces)-1]
		}
	}

	temporal := TemporalRelevance(doc.LastUpdated, c.cfg.MaxAge, c.now())

	chunks := make([]types.Chunk, 0, len(pieces))
	prev := ""
	for i, piece := range pieces {
		content := piece
		overlap := 0
		if i > 0 && c.cfg.OverlapTokens > 0 {
			tail := tailWords(prev, c.cfg.OverlapTokens)
			if tail != "" {
				content = tail + " " + piece
				overlap = c.tokenizer.CountTokens(tail)
			}
		}
		prev = piece

		chunks = append(chunks, types.Chunk{
			ID:                fmt.Sprintf("%s-%04d", doc.ID, i),
			DocumentID:        doc.ID,
			Content:           content,
			Position:          i,
			TokenCount:        c.tokenizer.CountTokens(content),
			OverlapTokens:     overlap,
			LegalConcepts:     ExtractConcepts(content),
			Citations:         ExtractCitations(content),
			Confidence:        chunkConfidence(doc),
			TemporalRelevance: temporal,
		})
	}

	c.logger.Debug("document chunked",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Int("max_tokens", c.cfg.MaxChunkTokens),
		zap.Int("overlap", c.cfg.OverlapTokens))

	return chunks
}

// chunkConfidence 块的初始置信度继承自文档的摄取置信度
func chunkConfidence(doc *types.LegalDocument) float64 {
	if doc.Meta.IngestionConfidence > 0 {
		return doc.Meta.IngestionConfidence
	}
	return 1.0
}

// TemporalRelevance 计算时间相关性：max(0, 1 - age/maxAge)。
// maxAge 非正时使用一年视野。
func TemporalRelevance(lastUpdated time.Time, maxAge time.Duration, now time.Time) float64 {
	if lastUpdated.IsZero() {
		return 0
	}
	if maxAge <= 0 {
		maxAge = 365 * 24 * time.Hour
	}
	age := now.Sub(lastUpdated)
	if age < 0 {
		age = 0
	}
	rel := 1 - float64(age)/float64(maxAge)
	if rel < 0 {
		return 0
	}
	return rel
}

// =============================================================================
// ✂️ 句子切分
// =============================================================================

// 句号前的词属于常见法律缩写时不视为句边界
var legalAbbreviations = map[string]bool{
	"no": true, "inc": true, "corp": true, "ltd": true, "co": true,
	"stat": true, "cir": true, "supp": true, "app": true, "rev": true,
	"sec": true, "al": true, "etc": true, "vol": true, "art": true,
	"cf": true, "ed": true, "reh'g": true, "dist": true,
}

// splitSentences 在 [.!?] 后跟空白处切句，跳过法律缩写
// （"U.S."、"v."、"F.3d" 等）内部的句号。
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		isBoundary := false
		switch r {
		case '!', '?':
			isBoundary = i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
		case '\n':
			isBoundary = true
		case '.':
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				break
			}
			word := precedingWord(runes, i)
			if isAbbreviation(word) {
				break
			}
			isBoundary = true
		}
		if isBoundary {
			s := strings.TrimSpace(string(runes[start : i+1]))
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// precedingWord 返回句号前紧邻的词（不含句号本身）
func precedingWord(runes []rune, dot int) string {
	end := dot
	start := end
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return string(runes[start:end])
}

func isAbbreviation(word string) bool {
	if word == "" {
		return false
	}
	// 内部含句号的词（U.S、F.3d、v. 链）不是句尾
	if strings.Contains(word, ".") {
		return true
	}
	lower := strings.ToLower(word)
	if legalAbbreviations[lower] {
		return true
	}
	// 单字母缩写（中间名、"v"）
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}
	return false
}

// =============================================================================
// 🔍 法律概念与引用提取
// =============================================================================

// 精选法律术语集，概念提取用大小写不敏感子串匹配
var legalConcepts = []string{
	"stare decisis", "res judicata", "collateral estoppel", "due process",
	"equal protection", "habeas corpus", "negligence", "strict liability",
	"breach of contract", "consideration", "burden of proof", "probable cause",
	"reasonable doubt", "summary judgment", "injunction", "jurisdiction",
	"standing", "mens rea", "actus reus", "proximate cause", "damages",
	"fiduciary duty", "good faith", "estoppel", "precedent", "certiorari",
	"remand", "statute of limitations", "sovereign immunity",
	"qualified immunity", "preemption", "severability", "force majeure",
	"indemnification", "arbitration", "class action", "discovery",
	"admissibility", "hearsay", "voir dire", "subpoena",
}

// ExtractConcepts 返回块文本中出现的法律概念，按术语表顺序。
func ExtractConcepts(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, concept := range legalConcepts {
		if strings.Contains(lower, concept) {
			out = append(out, concept)
		}
	}
	return out
}

// 卷-判例汇编-页码式引用模式
var citationPatterns = []*regexp.Regexp{
	// 联邦法典: 42 U.S.C. § 1983
	regexp.MustCompile(`\b\d{1,3}\s+U\.S\.C\.\s*§+\s*\d+[a-z]?(?:\([a-z0-9]+\))?`),
	// 联邦最高法院: 347 U.S. 483
	regexp.MustCompile(`\b\d{1,4}\s+U\.S\.\s+\d{1,5}\b`),
	regexp.MustCompile(`\b\d{1,4}\s+S\.\s?Ct\.\s+\d{1,5}\b`),
	// 联邦上诉法院: 123 F.2d/3d/4th 456
	regexp.MustCompile(`\b\d{1,4}\s+F\.(?:2d|3d|4th)\s+\d{1,5}\b`),
	// 联邦地区法院: 789 F. Supp. 2d 12
	regexp.MustCompile(`\b\d{1,4}\s+F\.\s?Supp\.(?:\s?(?:2d|3d))?\s+\d{1,5}\b`),
	// 区域汇编: 12 N.E.2d 345, 67 P.3d 890
	regexp.MustCompile(`\b\d{1,4}\s+(?:[A-Z]\.)+(?:\s?(?:2d|3d))?\s+\d{1,5}\b`),
}

// ExtractCitations 返回块文本中的引用字符串，按出现顺序去重。
func ExtractCitations(text string) []string {
	seen := make(map[string]bool)
	type match struct {
		start int
		text  string
	}
	var matches []match
	for _, pat := range citationPatterns {
		for _, loc := range pat.FindAllStringIndex(text, -1) {
			m := strings.TrimSpace(text[loc[0]:loc[1]])
			if !seen[m] {
				seen[m] = true
				matches = append(matches, match{start: loc[0], text: m})
			}
		}
	}
	// 按文本出现位置排序，保证提取顺序确定
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.text)
	}
	return out
}

// RecognizedCitation 判断字符串是否匹配任一已知引用格式。
func RecognizedCitation(citation string) bool {
	for _, pat := range citationPatterns {
		if loc := pat.FindStringIndex(citation); loc != nil && loc[0] == 0 && loc[1] == len(citation) {
			return true
		}
	}
	return false
}
