package rag

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Tokenizer 分词器接口，用于分块时的 token 计数
type Tokenizer interface {
	CountTokens(text string) int
}

// TiktokenTokenizer 基于 tiktoken 的分词器。
// 编码数据在首次使用时惰性初始化；初始化失败时回退到估算。
type TiktokenTokenizer struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
	logger   *zap.Logger
}

// 模型名到 tiktoken 编码的映射
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4o-mini":            "o200k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-3-large": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
}

// NewTiktokenTokenizer 创建 tiktoken 分词器。
// 未知模型默认使用 cl100k_base 编码。
func NewTiktokenTokenizer(model string, logger *zap.Logger) *TiktokenTokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	encoding, ok := modelEncodings[model]
	if !ok {
		encoding = "cl100k_base"
	}
	return &TiktokenTokenizer{encoding: encoding, logger: logger}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens 返回文本的 token 数。
// tiktoken 初始化失败时回退到词级估算并记录警告。
func (t *TiktokenTokenizer) CountTokens(text string) int {
	if err := t.init(); err != nil {
		t.logger.Warn("tiktoken unavailable, falling back to estimate", zap.Error(err))
		return estimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// EstimatorTokenizer 无外部数据依赖的估算分词器。
// 拉丁文本按词计数，CJK 文本按字符计数，结果确定。
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer 创建估算分词器。
func NewEstimatorTokenizer() *EstimatorTokenizer { return &EstimatorTokenizer{} }

// CountTokens 实现 Tokenizer。
func (EstimatorTokenizer) CountTokens(text string) int { return estimateTokens(text) }

func estimateTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
			count++
			inWord = false
		case unicode.IsSpace(r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

// NewTokenizer 按配置选择分词器：指定了模型名则用 tiktoken，
// 否则用估算分词器。
func NewTokenizer(model string, logger *zap.Logger) Tokenizer {
	if model == "" {
		return NewEstimatorTokenizer()
	}
	return NewTiktokenTokenizer(model, logger)
}

// tailWords 返回文本末尾至多 n 个空白分隔的词，用作下一块的重叠前缀。
// 词级近似即可，重叠只为保留跨块上下文。
func tailWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[len(fields)-n:], " ")
}
